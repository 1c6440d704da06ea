package api

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"bookcraft-cli/internal/model"

	"golang.org/x/sync/errgroup"
)

type BookInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty" validate:"omitempty,url"`
}

func (c *Client) ListBooks(ctx context.Context, search string) ([]model.Book, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var out []model.Book
	err := c.do(ctx, http.MethodGet, "/api/books", q, nil, &out)
	return out, err
}

func (c *Client) GetBook(ctx context.Context, id string) (*model.Book, error) {
	var out model.Book
	if err := c.do(ctx, http.MethodGet, "/api/books/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (*model.Book, error) {
	var out model.Book
	if err := c.do(ctx, http.MethodPost, "/api/books", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, in BookInput) (*model.Book, error) {
	var out model.Book
	if err := c.do(ctx, http.MethodPatch, "/api/books/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/books/"+url.PathEscape(id), nil, nil, nil)
}

// BookTree returns the book with its sections and each section's chapters,
// fetching the chapter lists concurrently.
func (c *Client) BookTree(ctx context.Context, id string) (*model.Book, error) {
	book, err := c.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := c.ListSections(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range sections {
		i := i
		g.Go(func() error {
			chs, err := c.ListChapters(gctx, sections[i].ID)
			if err != nil {
				return err
			}
			sort.SliceStable(chs, func(a, b int) bool { return chs[a].Order < chs[b].Order })
			sections[i].Chapters = chs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(sections, func(a, b int) bool { return sections[a].Order < sections[b].Order })
	book.Sections = sections
	return book, nil
}

func (c *Client) ListSections(ctx context.Context, bookID string) ([]model.Section, error) {
	var out []model.Section
	err := c.do(ctx, http.MethodGet, "/api/books/"+url.PathEscape(bookID)+"/sections", nil, nil, &out)
	return out, err
}

func (c *Client) CreateSection(ctx context.Context, bookID, title string) (*model.Section, error) {
	var out model.Section
	body := map[string]any{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/books/"+url.PathEscape(bookID)+"/sections", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSection(ctx context.Context, id, title string) (*model.Section, error) {
	var out model.Section
	body := map[string]any{"title": title}
	if err := c.do(ctx, http.MethodPatch, "/api/sections/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sections/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ReorderSections(ctx context.Context, bookID string, order []model.OrderEntry) error {
	body := map[string]any{"order": order}
	return c.do(ctx, http.MethodPut, "/api/books/"+url.PathEscape(bookID)+"/sections/order", nil, body, nil)
}

func (c *Client) ListChapters(ctx context.Context, sectionID string) ([]model.Chapter, error) {
	var out []model.Chapter
	err := c.do(ctx, http.MethodGet, "/api/sections/"+url.PathEscape(sectionID)+"/chapters", nil, nil, &out)
	return out, err
}

func (c *Client) GetChapter(ctx context.Context, id string) (*model.Chapter, error) {
	var out model.Chapter
	if err := c.do(ctx, http.MethodGet, "/api/chapters/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateChapter(ctx context.Context, sectionID, title string) (*model.Chapter, error) {
	var out model.Chapter
	body := map[string]any{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/sections/"+url.PathEscape(sectionID)+"/chapters", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateChapter(ctx context.Context, id, title string) (*model.Chapter, error) {
	var out model.Chapter
	body := map[string]any{"title": title}
	if err := c.do(ctx, http.MethodPatch, "/api/chapters/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChapter(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/chapters/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ReorderChapters(ctx context.Context, sectionID string, order []model.OrderEntry) error {
	body := map[string]any{"order": order}
	return c.do(ctx, http.MethodPut, "/api/sections/"+url.PathEscape(sectionID)+"/chapters/order", nil, body, nil)
}
