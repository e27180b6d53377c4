package search

import "testing"

func TestVariations_IncludesInflectedForms(t *testing.T) {
	vars := Variations("sports")

	for _, want := range []string{"sports", "sporta", "sportu", "sport"} {
		if _, ok := vars[want]; !ok {
			t.Errorf("expected variation %q", want)
		}
	}
}

func TestVariations_ShortWordKeepsNoStem(t *testing.T) {
	// "osis" minus "is" would leave a two-rune stem; the guard requires the
	// word to be longer than the ending plus two runes.
	vars := Variations("osi")
	if _, ok := vars["o"]; ok {
		t.Error("short words must not be stemmed down to fragments")
	}
}

func TestVariations_RuneAwareLengthGuard(t *testing.T) {
	// "ētē" is three runes but six bytes; byte-based length math would let
	// the "ē" ending strip here.
	vars := Variations("ētē")
	if _, ok := vars["ēt"]; ok {
		t.Error("length guard must count runes, not bytes")
	}
}

func TestVariations_IncludesNormalizedForm(t *testing.T) {
	vars := Variations("būvniecība")
	if _, ok := vars["buvnieciba"]; !ok {
		t.Error("expected diacritic-folded variation")
	}
}

func TestNormalizeLatvian(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Būvniecība", "buvnieciba"},
		{"ŠŪNA", "suna"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeLatvian(tc.in); got != tc.want {
			t.Errorf("NormalizeLatvian(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContainsKeyword_InflectedMatch(t *testing.T) {
	text := "Sporta inventāra piegāde skolām"
	if !ContainsKeyword(text, "sports") {
		t.Error(`"sports" should match "Sporta" via inflection`)
	}
}

func TestContainsKeyword_WholeWordOnly(t *testing.T) {
	if ContainsKeyword("transports pilsētā", "sport") {
		t.Error(`"sport" must not match inside "transports"`)
	}
}

func TestContainsKeyword_DiacriticBoundary(t *testing.T) {
	// A word ending in a diacritic must still terminate at a word boundary.
	if !ContainsKeyword("piegāde skolā", "piegāde") {
		t.Error("word with trailing diacritics should match at boundaries")
	}
	if ContainsKeyword("nepiegāde", "piegāde") {
		t.Error("must not match inside a longer word")
	}
}

func TestContainsKeyword_NormalizedQueryFindsDiacriticText(t *testing.T) {
	if !ContainsKeyword("Būvniecības darbi", "buvnieciba") {
		t.Error("ASCII query should match diacritic text via normalization")
	}
}

func TestContainsKeyword_PhraseRequiresAllWordsAnyOrder(t *testing.T) {
	text := "Inventāra piegāde sporta skolām"
	if !ContainsKeyword(text, "sporta inventārs") {
		t.Error("phrase should match with words in any order")
	}
	if ContainsKeyword(text, "sporta halle") {
		t.Error("phrase must fail when any word is missing")
	}
}

func TestContextSnippets(t *testing.T) {
	text := "Pašvaldība izsludina konkursu par sporta inventāra piegādi vispārējās izglītības iestādēm."
	snippets := ContextSnippets(text, []string{"sports"}, 20)
	if len(snippets) != 1 {
		t.Fatalf("expected one snippet, got %d", len(snippets))
	}
	if snippets[0].Keyword != "sports" {
		t.Errorf("keyword = %q", snippets[0].Keyword)
	}
	if snippets[0].Context == "" {
		t.Error("expected non-empty context")
	}
}

func TestContextSnippets_LimitsKeywords(t *testing.T) {
	text := "a b c d e"
	kws := []string{"a", "b", "c", "d"}
	snippets := ContextSnippets(text, kws, 10)
	if len(snippets) > 3 {
		t.Fatalf("snippets limited to the first three keywords, got %d", len(snippets))
	}
}
