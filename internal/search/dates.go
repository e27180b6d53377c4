package search

import (
	"strings"
	"time"
)

// dateLayouts lists the date shapes seen across the feed's schema
// generations, tried in order.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
}

// NormalizeDate converts a raw date string to ISO 8601 (YYYY-MM-DD). Strings
// that match none of the known layouts are returned verbatim so that partial
// or annotated dates survive for display.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
