package search

import "testing"

func TestNormalizeDate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"20250701", "2025-07-01"},
		{"2025-07-01", "2025-07-01"},
		{"01.07.2025", "2025-07-01"},
		{"01/07/2025", "2025-07-01"},
		{"  2025-07-01  ", "2025-07-01"},
		{"2025-07-01 10:00", "2025-07-01 10:00"}, // unknown shape passes through
		{"nav zināms", "nav zināms"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDate(tc.in); got != tc.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
