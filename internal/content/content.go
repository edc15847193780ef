// Package content prepares user-authored text for display. Chat bodies and
// diary entries come from other members and must never reach a rendered
// surface unsanitized.
package content

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	policy = bluemonday.UGCPolicy()

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
)

// Sanitize removes unsafe HTML from the input string using a strict policy.
// It is used for chat messages and nicknames before they are shown.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Escape escapes special characters like "<" to become "&lt;".
// It matches the behavior of html/template and is safe for use in HTML attributes.
func Escape(input string) string {
	return template.HTMLEscapeString(input)
}

// RenderDiary converts a markdown diary entry to sanitized HTML. Diary
// authors get basic formatting; anything the policy rejects is stripped
// after rendering.
func RenderDiary(input string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return "", fmt.Errorf("render diary: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}
