package widget

import (
	"errors"
	"fmt"
	"strings"
)

const blankMarker = "___"

func countBlanks(template string) int {
	return strings.Count(template, blankMarker)
}

// Summary is a one-line label for list views.
func Summary(p Payload) string {
	switch v := p.(type) {
	case Heading:
		return fmt.Sprintf("H%d %s", v.Level, v.Text)
	case Text:
		return firstLine(v.Markdown)
	case Image:
		if v.Alt != "" {
			return "image: " + v.Alt
		}
		return "image: " + v.URL
	case Banner:
		return "banner: " + v.Title
	case Quote:
		return "“" + firstLine(v.Text) + "”"
	case Video:
		return "video: " + v.URL
	case Divider:
		return "────"
	case Choice:
		return firstLine(v.Prompt)
	case TrueFalse:
		return "true/false: " + firstLine(v.Statement)
	case FillBlank:
		return firstLine(v.Template)
	case DragDrop:
		return fmt.Sprintf("drag & drop: %d items", len(v.Items))
	case WordSearch:
		return fmt.Sprintf("word search: %d words", len(v.Words))
	case Matching:
		return fmt.Sprintf("matching: %d pairs", len(v.Pairs))
	default:
		return ""
	}
}

// Markdown renders a preview of the payload as markdown.
func Markdown(p Payload) string {
	switch v := p.(type) {
	case Heading:
		return strings.Repeat("#", clamp(v.Level, 1, 4)) + " " + v.Text
	case Text:
		return v.Markdown
	case Image:
		md := fmt.Sprintf("![%s](%s)", v.Alt, v.URL)
		if v.Caption != "" {
			md += "\n\n*" + v.Caption + "*"
		}
		return md
	case Banner:
		md := "# " + v.Title
		if v.Subtitle != "" {
			md += "\n\n" + v.Subtitle
		}
		return md
	case Quote:
		md := "> " + strings.ReplaceAll(v.Text, "\n", "\n> ")
		if v.Author != "" {
			md += "\n>\n> — " + v.Author
		}
		return md
	case Video:
		return "[video](" + v.URL + ")"
	case Divider:
		return "---"
	case Choice:
		return "**" + v.Prompt + "**"
	case TrueFalse:
		return "**True or false?** " + v.Statement
	case FillBlank:
		return v.Template
	case DragDrop:
		var b strings.Builder
		b.WriteString("**" + v.Prompt + "**\n\n")
		for _, it := range v.Items {
			b.WriteString("- " + it + "\n")
		}
		return b.String()
	case WordSearch:
		return "Find: " + strings.Join(v.Words, ", ")
	case Matching:
		var b strings.Builder
		for _, p := range v.Pairs {
			b.WriteString("- " + p.Left + " ↔ " + p.Right + "\n")
		}
		return b.String()
	default:
		return ""
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EditableText returns the free-text field of payloads that have one.
func EditableText(p Payload) (string, bool) {
	switch v := p.(type) {
	case Text:
		return v.Markdown, true
	case Heading:
		return v.Text, true
	case Quote:
		return v.Text, true
	case FillBlank:
		return v.Template, true
	}
	return "", false
}

// WithText returns p with its free-text field replaced.
func WithText(p Payload, text string) (Payload, error) {
	switch v := p.(type) {
	case Text:
		v.Markdown = text
		return v, nil
	case Heading:
		v.Text = text
		return v, nil
	case Quote:
		v.Text = text
		return v, nil
	case FillBlank:
		v.Template = text
		return v, nil
	}
	if p == nil {
		return nil, errors.New("nil widget payload")
	}
	return nil, fmt.Errorf("%s widgets have no editable text", p.Type())
}
