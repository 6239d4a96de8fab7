// Package format renders structured notes and templates as HTML fragments.
// Rendering is pure: output depends only on the inputs, with map sub-keys
// sorted so repeated calls produce identical markup.
package format

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Nephrolytics-ai/medscribe/internal/types"
)

const (
	notDocumented = "<em>Not documented</em>"
	indent        = "&nbsp;&nbsp;&nbsp;&nbsp;"
)

// RenderNote renders extracted field values against their template. Fields
// are grouped under section headings in the order sections first appear in
// the template, and within a section follow template field order. Fields the
// transcript never mentioned render as "Not documented".
func RenderNote(template types.Template, values types.FieldValues) string {
	var b strings.Builder
	if template.Name != "" {
		fmt.Fprintf(&b, "<strong>Template:</strong> %s<br><br>", html.EscapeString(template.Name))
	}

	for _, section := range sectionOrder(template) {
		fmt.Fprintf(&b, "<strong><u>%s</u></strong><br>", html.EscapeString(section))
		for _, field := range template.Fields {
			if field.Section != section {
				continue
			}
			writeField(&b, field.Label, values[field.Key], 0)
		}
		b.WriteString("<br>")
	}
	return b.String()
}

// RenderTemplate renders a template's field definitions for preview.
func RenderTemplate(template types.Template) string {
	var b strings.Builder
	if template.Name != "" {
		fmt.Fprintf(&b, "<strong>Template:</strong> %s<br><br>", html.EscapeString(template.Name))
	}

	for _, section := range sectionOrder(template) {
		fmt.Fprintf(&b, "<strong><u>%s</u></strong><br>", html.EscapeString(section))
		for _, field := range template.Fields {
			if field.Section != section {
				continue
			}
			fmt.Fprintf(&b, "<strong>%s:</strong><br>", html.EscapeString(field.Label))
			if field.Description != "" {
				fmt.Fprintf(&b, "%sDescription: %s<br>", indent, html.EscapeString(field.Description))
			}
			fmt.Fprintf(&b, "%sType: %s<br>", indent, field.ValueType)
		}
		b.WriteString("<br>")
	}
	return b.String()
}

// sectionOrder returns sections in first-appearance order.
func sectionOrder(template types.Template) []string {
	seen := make(map[string]struct{}, len(template.Fields))
	order := make([]string, 0, len(template.Fields))
	for _, field := range template.Fields {
		if _, ok := seen[field.Section]; ok {
			continue
		}
		seen[field.Section] = struct{}{}
		order = append(order, field.Section)
	}
	return order
}

func writeField(b *strings.Builder, label string, value any, depth int) {
	pad := strings.Repeat(indent, depth)

	switch v := value.(type) {
	case nil:
		fmt.Fprintf(b, "%s<strong>%s:</strong> %s<br>", pad, html.EscapeString(label), notDocumented)
	case map[string]any:
		fmt.Fprintf(b, "%s<strong>%s:</strong><br>", pad, html.EscapeString(label))
		for _, key := range sortedKeys(v) {
			writeField(b, titleCase(key), v[key], depth+1)
		}
	default:
		fmt.Fprintf(b, "%s<strong>%s:</strong> %s<br>", pad, html.EscapeString(label), html.EscapeString(fmt.Sprintf("%v", v)))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func titleCase(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}
	return strings.Join(words, " ")
}
