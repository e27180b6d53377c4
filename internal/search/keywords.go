package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// inflectionEndings lists the Latvian noun and adjective endings the matcher
// strips and re-attaches when generating variations. Covers the seven cases
// in both numbers plus common derivational suffixes.
var inflectionEndings = []string{
	"s", "a", "as", "am", "ā", "ām", "i", "u", "us", "os", "es",
	"em", "ēm", "is", "im", "ī", "iem", "ēs", "e", "ē", "ei",
	"ai", "ais", "ās", "ajā", "ajam", "ajai", "ajo", "ajās",
	"ajiem", "ajām", "ajos", "ums", "umam", "umu", "umos",
	"šana", "šanas", "šanu", "šanai", "tājs", "tāja", "tāju",
	"nieks", "nieka", "nieku", "niekiem", "ība", "ības", "ību",
}

var diacriticReplacer = strings.NewReplacer(
	"ā", "a", "č", "c", "ē", "e", "ģ", "g",
	"ī", "i", "ķ", "k", "ļ", "l", "ņ", "n",
	"š", "s", "ū", "u", "ž", "z",
	"Ā", "A", "Č", "C", "Ē", "E", "Ģ", "G",
	"Ī", "I", "Ķ", "K", "Ļ", "L", "Ņ", "N",
	"Š", "S", "Ū", "U", "Ž", "Z",
)

// NormalizeLatvian folds Latvian diacritics to their ASCII base letters and
// lowercases the result.
func NormalizeLatvian(text string) string {
	return strings.ToLower(diacriticReplacer.Replace(text))
}

// Variations expands a word into the set of inflected forms the matcher
// recognizes: the word itself, the word with each ending attached, every
// stem obtained by stripping a matching ending (with all endings re-attached
// to each stem), and the diacritic-folded form. Stems are only produced when
// the word is comfortably longer than the ending, measured in runes.
func Variations(word string) map[string]struct{} {
	w := strings.ToLower(word)
	vars := map[string]struct{}{w: {}}

	wRunes := []rune(w)
	for _, ending := range inflectionEndings {
		vars[w+ending] = struct{}{}
	}
	for _, ending := range inflectionEndings {
		endRunes := utf8.RuneCountInString(ending)
		if len(wRunes) > endRunes+2 && strings.HasSuffix(w, ending) {
			stem := string(wRunes[:len(wRunes)-endRunes])
			vars[stem] = struct{}{}
			for _, e := range inflectionEndings {
				vars[stem+e] = struct{}{}
			}
		}
	}

	vars[NormalizeLatvian(word)] = struct{}{}
	return vars
}

// sortedVariations returns the variation set as a sorted slice, for callers
// that need deterministic iteration.
func sortedVariations(word string) []string {
	set := Variations(word)
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ContainsKeyword reports whether text contains the keyword in any inflected
// form. Multi-word keywords match when every word is present somewhere in
// the text, in any order. Single words are additionally checked against the
// diacritic-folded text so that "buvnieciba" finds "būvniecība".
func ContainsKeyword(text, keyword string) bool {
	textLower := strings.ToLower(text)

	if strings.Contains(strings.TrimSpace(keyword), " ") {
		for _, word := range strings.Fields(keyword) {
			found := false
			for v := range Variations(word) {
				if containsWholeWord(textLower, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	textNorm := NormalizeLatvian(text)
	for v := range Variations(keyword) {
		if containsWholeWord(textLower, v) {
			return true
		}
		if containsWholeWord(textNorm, NormalizeLatvian(v)) {
			return true
		}
	}
	return false
}

// containsWholeWord reports whether word occurs in text delimited by
// non-word runes or the string edges. Boundary detection is done by hand
// because regexp's \b only understands ASCII word characters and would split
// Latvian words at their diacritics.
func containsWholeWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; start <= len(text)-len(word); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		i := start + idx
		if boundaryBefore(text, i) && boundaryAfter(text, i+len(word)) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// Snippet is a keyword occurrence with surrounding context for display.
type Snippet struct {
	Keyword   string `json:"keyword"`
	Variation string `json:"variation"`
	Context   string `json:"context"`
}

// ContextSnippets pulls a short context window around the first occurrence
// of each of the first few keywords. Only a couple of variations per keyword
// are tried to keep the cost bounded.
func ContextSnippets(text string, keywords []string, contextLength int) []Snippet {
	if contextLength <= 0 {
		contextLength = 100
	}
	textLower := strings.ToLower(text)

	var snippets []Snippet
	limit := len(keywords)
	if limit > 3 {
		limit = 3
	}
	for _, kw := range keywords[:limit] {
		variations := sortedVariations(kw)
		if len(variations) > 2 {
			variations = variations[:2]
		}
		for _, v := range variations {
			pos := indexWholeWord(textLower, v)
			if pos < 0 {
				continue
			}
			start := pos - contextLength
			if start < 0 {
				start = 0
			}
			end := pos + len(v) + contextLength
			if end > len(text) {
				end = len(text)
			}
			// Back off to rune boundaries so the window never splits a
			// multi-byte character.
			for start > 0 && !utf8.RuneStart(text[start]) {
				start--
			}
			for end < len(text) && !utf8.RuneStart(text[end]) {
				end++
			}
			snippet := text[start:end]
			if start > 0 {
				snippet = "..." + snippet
			}
			if end < len(text) {
				snippet += "..."
			}
			snippets = append(snippets, Snippet{Keyword: kw, Variation: v, Context: snippet})
			break
		}
	}
	return snippets
}

// indexWholeWord returns the byte offset of the first whole-word occurrence
// of word in text, or -1.
func indexWholeWord(text, word string) int {
	if word == "" {
		return -1
	}
	for start := 0; start <= len(text)-len(word); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return -1
		}
		i := start + idx
		if boundaryBefore(text, i) && boundaryAfter(text, i+len(word)) {
			return i
		}
		start = i + 1
	}
	return -1
}
