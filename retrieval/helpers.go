package retrieval

import (
	"strings"
)

// ftsSpecial strips FTS5 syntax characters. Dots stay so clause numbers
// such as "12.1" survive as one term.
var ftsSpecial = strings.NewReplacer(
	"\"", " ", "*", " ", "(", " ", ")", " ",
	"+", " ", "-", " ", "^", " ", ":", " ",
	"?", " ", "[", " ", "]", " ", "{", " ",
	"}", " ", "!", " ", ",", " ", ";", " ",
)

// significantTerms returns the lower-cased, de-duplicated words of query
// that are worth matching: longer than two characters and neither stop
// words nor field-query boilerplate.
func significantTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.Fields(ftsSpecial.Replace(query)) {
		w = strings.ToLower(strings.Trim(w, ".'"))
		if len(w) > 2 && !isStopWord(w) && !seen[w] {
			seen[w] = true
			terms = append(terms, w)
		}
	}
	return terms
}

// keyPhrases returns the multi-word guidance phrases listed after
// "Key phrases:" in a field query.
func keyPhrases(query string) []string {
	i := strings.Index(query, "Key phrases:")
	if i < 0 {
		return nil
	}
	rest := query[i+len("Key phrases:"):]
	if j := strings.Index(rest, ". Return"); j >= 0 {
		rest = rest[:j]
	}

	var phrases []string
	for _, p := range strings.Split(rest, ",") {
		words := strings.Fields(ftsSpecial.Replace(strings.ToLower(p)))
		if len(words) > 1 {
			phrases = append(phrases, strings.Join(words, " "))
		}
	}
	return phrases
}

// sanitizeFTSQuery builds an FTS5 OR query from query: each multi-word key
// phrase as a quoted phrase, then each significant term quoted. It returns
// "" when nothing searchable is left.
func sanitizeFTSQuery(query string) string {
	var parts []string
	for _, p := range keyPhrases(query) {
		parts = append(parts, `"`+p+`"`)
	}
	for _, t := range significantTerms(query) {
		parts = append(parts, `"`+t+`"`)
	}
	return strings.Join(parts, " OR ")
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"shall": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "which": true, "who": true, "whom": true,
	"where": true, "when": true, "how": true, "why": true, "not": true,
	"no": true, "nor": true, "if": true, "then": true, "than": true,
	"so": true, "as": true, "about": true, "into": true, "between": true,
	"any": true, "all": true, "its": true, "their": true,

	// field-query boilerplate
	"find": true, "sections": true, "containing": true, "information": true,
	"key": true, "phrases": true, "return": true, "relevant": true,
	"context": true, "extract": true, "following": true,
}

func isStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}
