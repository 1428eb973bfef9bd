package scenario

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

const DefaultStyle = "monokai"

// Markdown returns the renderer shared by scenario descriptions and reports.
func Markdown(style string) goldmark.Markdown {
	if style == "" {
		style = DefaultStyle
	}
	return goldmark.New(
		goldmark.WithExtensions(
			meta.Meta,
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
	)
}

// parseMarkdown reads a scenario whose definition is the YAML frontmatter
// and whose description is the document body.
func parseMarkdown(content []byte) (*Scenario, error) {
	front, body, ok := splitFrontmatter(string(content))
	if !ok {
		return nil, fmt.Errorf("%w: markdown scenario needs a YAML frontmatter block", ErrInvalidStep)
	}

	var sc Scenario
	if err := yaml.Unmarshal([]byte(front), &sc); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	var buf bytes.Buffer
	context := parser.NewContext()
	if err := Markdown(DefaultStyle).Convert(content, &buf, parser.WithContext(context)); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	if sc.Name == "" {
		if title, ok := meta.Get(context)["title"].(string); ok {
			sc.Name = title
		}
	}
	if sc.Description == "" {
		sc.Description = strings.TrimSpace(body)
	}
	sc.DescriptionHTML = buf.String()

	return &sc, nil
}

func splitFrontmatter(content string) (front, body string, ok bool) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return "", content, false
	}

	end := strings.Index(content[4:], "\n---")
	if end == -1 {
		return "", content, false
	}
	end += 4

	front = content[4:end]
	if end+5 < len(content) {
		body = content[end+5:]
	}
	return front, body, true
}
