package sources

import "strings"

// InsertMarker appends a citation token to a snippet of extracted text,
// placing it just before the final sentence punctuation when there is one.
// This is a best-effort heuristic: marker placement inside model-extracted
// text is approximate, not a hard contract.
func InsertMarker(text, token string) string {
	trimmed := strings.TrimRight(text, " \t\n")
	if trimmed == "" {
		return token
	}
	last := trimmed[len(trimmed)-1]
	if last == '.' || last == '!' || last == '?' {
		return trimmed[:len(trimmed)-1] + " " + token + string(last)
	}
	return trimmed + " " + token
}

// InsertMarkers appends several tokens to one snippet; a single sentence may
// be supported by multiple sources.
func InsertMarkers(text string, tokens []string) string {
	out := text
	for _, tok := range tokens {
		out = InsertMarker(out, tok)
	}
	return out
}
