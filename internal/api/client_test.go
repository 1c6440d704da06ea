package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"

	"bookcraft-cli/internal/model"
	"bookcraft-cli/internal/validate"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, messages any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success":  success,
		"data":     data,
		"messages": messages,
	})
}

func TestClient_SendsBearerTokenAndDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/books" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected X-Request-ID header")
		}
		if r.URL.Query().Get("search") != "bio" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		writeEnvelope(w, http.StatusOK, true, []model.Book{{ID: "book-1", Title: "Biology"}}, nil)
	}))
	defer server.Close()

	c, err := New(server.URL, WithToken("test-token"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	books, err := c.ListBooks(context.Background(), "bio")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Biology" {
		t.Fatalf("unexpected books: %+v", books)
	}
}

func TestClient_ValidationErrorsAreFieldKeyed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnprocessableEntity, false, nil, map[string]any{
			"title": []string{"is required"},
			"cover": "must be an image",
		})
	}))
	defer server.Close()

	c, _ := New(server.URL)
	_, err := c.CreateBook(context.Background(), BookInput{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	if got := verr.Fields["title"]; len(got) != 1 || got[0] != "is required" {
		t.Fatalf("unexpected title messages: %v", got)
	}
	var fe validate.FieldErrors
	if !errors.As(err, &fe) || len(fe["cover"]) != 1 {
		t.Fatalf("expected FieldErrors to unwrap, got %v", fe)
	}
}

func TestClient_UnauthorizedAndNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			writeEnvelope(w, http.StatusNotFound, false, nil, "chapter not found")
		}
	}))
	defer server.Close()

	c, _ := New(server.URL)
	if _, err := c.Me(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	_, err := c.GetChapter(context.Background(), "ch-404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Messages[0] != "chapter not found" {
		t.Fatalf("expected message to be kept, got %v", err)
	}
}

func TestClient_SuccessFalseWithOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, []string{"quota exceeded"})
	}))
	defer server.Close()

	c, _ := New(server.URL)
	err := c.DeleteBlock(context.Background(), "b1")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Messages[0] != "quota exceeded" {
		t.Fatalf("unexpected messages: %v", apiErr.Messages)
	}
}

func TestClient_LoginSetsTokenAndCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			writeEnvelope(w, http.StatusOK, true, map[string]any{
				"token": "fresh-token",
				"user":  model.User{ID: "u1", Email: "ada@example.com"},
			}, nil)
		case "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				t.Errorf("expected new token on follow-up request, got %q", r.Header.Get("Authorization"))
			}
			ck, err := r.Cookie("token")
			if err != nil || ck.Value != "fresh-token" {
				t.Errorf("expected token cookie, got %v (%v)", ck, err)
			}
			writeEnvelope(w, http.StatusOK, true, model.User{ID: "u1"}, nil)
		}
	}))
	defer server.Close()

	jar, _ := cookiejar.New(nil)
	c, _ := New(server.URL, WithHTTPClient(&http.Client{Jar: jar}))
	tok, user, err := c.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok != "fresh-token" || user.ID != "u1" {
		t.Fatalf("unexpected login result: %q %+v", tok, user)
	}
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}
}

func TestClient_ReorderBlocksSendsFullOrder(t *testing.T) {
	var got struct {
		Order []model.OrderEntry `json:"order"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/chapters/ch1/blocks/order" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		writeEnvelope(w, http.StatusOK, true, nil, nil)
	}))
	defer server.Close()

	c, _ := New(server.URL)
	order := []model.OrderEntry{{ID: "b2", Order: 0}, {ID: "b1", Order: 1}}
	if err := c.ReorderBlocks(context.Background(), "ch1", order); err != nil {
		t.Fatalf("ReorderBlocks: %v", err)
	}
	if len(got.Order) != 2 || got.Order[0].ID != "b2" {
		t.Fatalf("unexpected order body: %+v", got.Order)
	}
}

func TestClient_BookTreeFetchesChaptersPerSection(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/api/books/bk":
			writeEnvelope(w, http.StatusOK, true, model.Book{ID: "bk", Title: "Physics"}, nil)
		case "/api/books/bk/sections":
			writeEnvelope(w, http.StatusOK, true, []model.Section{
				{ID: "s2", Order: 2},
				{ID: "s1", Order: 1},
			}, nil)
		case "/api/sections/s1/chapters":
			writeEnvelope(w, http.StatusOK, true, []model.Chapter{{ID: "c2", Order: 5}, {ID: "c1", Order: 1}}, nil)
		case "/api/sections/s2/chapters":
			writeEnvelope(w, http.StatusOK, true, []model.Chapter{{ID: "c3"}}, nil)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c, _ := New(server.URL)
	book, err := c.BookTree(context.Background(), "bk")
	if err != nil {
		t.Fatalf("BookTree: %v", err)
	}
	if len(book.Sections) != 2 || book.Sections[0].ID != "s1" {
		t.Fatalf("expected sections sorted by order, got %+v", book.Sections)
	}
	if book.Sections[0].Chapters[0].ID != "c1" {
		t.Fatalf("expected chapters sorted by order, got %+v", book.Sections[0].Chapters)
	}
	if hits["/api/sections/s2/chapters"] != 1 {
		t.Fatalf("expected one fetch per section, got %v", hits)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty URL")
	}
	if _, err := New("ftp://example.com"); err == nil {
		t.Fatalf("expected error for non-http URL")
	}
}
