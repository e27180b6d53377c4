package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// normalizeSpace collapses multiple spaces into one and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanText normalizes whitespace (alias for normalizeSpace)
func cleanText(s string) string {
	return normalizeSpace(s)
}

// appendUnique appends a string to a slice if it doesn't already exist (case-insensitive).
func appendUnique(list []string, v string) []string {
	vClean := strings.TrimSpace(v)
	if vClean == "" {
		return list
	}

	vLower := strings.ToLower(vClean)
	for _, existing := range list {
		if strings.ToLower(existing) == vLower {
			return list
		}
	}
	return append(list, vClean)
}

func containsString(list []string, v string) bool {
	for _, existing := range list {
		if existing == v {
			return true
		}
	}
	return false
}

// HTMLToText converts markup to plain text, collapsing whitespace. Notice
// descriptions occasionally embed HTML fragments inside CDATA sections.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html // Fallback to original if parsing fails
	}
	return cleanText(doc.Text())
}
