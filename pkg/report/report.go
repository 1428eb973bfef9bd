// Package report renders scenario results as Markdown and HTML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/withgalaxy/stash/pkg/scenario"
)

// Markdown writes a GFM document describing res.
func Markdown(res *scenario.Result) (string, error) {
	var b strings.Builder
	sc := res.Scenario

	fmt.Fprintf(&b, "# %s\n\n", sc.Name)
	if sc.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", sc.Description)
	}

	status := "passed"
	if !res.Passed() {
		status = "failed"
	}
	fmt.Fprintf(&b, "Run `%s` %s in %s with %d notification(s).\n\n", res.ID, status, res.Duration, len(res.Notifications))

	b.WriteString("| step | kind | notified | changed |\n")
	b.WriteString("|------|------|----------|---------|\n")
	for _, sr := range res.Steps {
		changed := "-"
		if len(sr.Changed) > 0 {
			changed = strings.Join(sr.Changed, ", ")
		}
		fmt.Fprintf(&b, "| %d | %s | %v | %s |\n", sr.Index, sr.Kind, sr.Notified, changed)
	}
	b.WriteString("\n")

	if !res.Passed() {
		b.WriteString("## Failures\n\n")
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "- %s\n", f.Error())
		}
		b.WriteString("\n")
	}

	final, err := json.MarshalIndent(res.Final, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode final state: %w", err)
	}
	b.WriteString("## Final state\n\n```json\n")
	b.Write(final)
	b.WriteString("\n```\n")

	return b.String(), nil
}

// HTML renders one or more results into a standalone page using the chroma
// style for code blocks.
func HTML(results []*scenario.Result, style string) ([]byte, error) {
	md := scenario.Markdown(style)

	var body bytes.Buffer
	for _, res := range results {
		doc, err := Markdown(res)
		if err != nil {
			return nil, err
		}
		body.WriteString("<section>\n")
		if err := md.Convert([]byte(doc), &body); err != nil {
			return nil, fmt.Errorf("convert report: %w", err)
		}
		body.WriteString("</section>\n")
	}

	title := "stash report"
	if len(results) == 1 {
		title = results[0].Scenario.Name
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	return page.Bytes(), nil
}
