package sources

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Ref is a registered source: a long URL (or document identifier), a display
// label, and the short token that stands in for it inside generated text.
type Ref struct {
	Token string `json:"token"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

// tokenPattern matches the short tokens minted by a Registry ([s1], [s42], ...).
var tokenPattern = regexp.MustCompile(`\[s\d+\]`)

// Registry maps long URLs to short session-stable tokens. Tokens are assigned
// at first sighting and never reassigned; registering the same URL again
// returns the original token. Safe for concurrent use by sibling workers.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]Ref
	byURL   map[string]string // normalized URL -> token
	next    int
}

func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[string]Ref),
		byURL:   make(map[string]string),
		next:    1,
	}
}

// Assign returns the Ref for rawURL, minting a token on first sighting.
// The label is kept from the first registration; later labels are ignored so
// resolution stays stable.
func (r *Registry) Assign(rawURL, label string) Ref {
	key := normalizeURL(rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()

	if tok, ok := r.byURL[key]; ok {
		return r.byToken[tok]
	}
	tok := fmt.Sprintf("[s%d]", r.next)
	r.next++
	ref := Ref{Token: tok, URL: rawURL, Label: label}
	if ref.Label == "" {
		ref.Label = displayLabel(rawURL)
	}
	r.byURL[key] = tok
	r.byToken[tok] = ref
	return ref
}

// Resolve returns the Ref for a token, if registered.
func (r *Registry) Resolve(token string) (Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byToken[token]
	return ref, ok
}

// Len reports the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}

// TokensIn returns the registered tokens that appear in text, ordered by
// first appearance, deduplicated.
func (r *Registry) TokensIn(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		if _, ok := r.byToken[m]; ok {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// ResolveText rewrites every registered token in text to a markdown link and
// strips tokens that match the token shape but were never registered. It
// returns the rewritten text plus the pruned source list: exactly the refs
// whose tokens appeared.
func (r *Registry) ResolveText(text string) (string, []Ref) {
	used := r.TokensIn(text)

	r.mu.RLock()
	resolved := tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		if ref, ok := r.byToken[tok]; ok {
			return fmt.Sprintf("[%s](%s)", ref.Label, ref.URL)
		}
		return "" // unregistered token shape: drop it
	})
	refs := make([]Ref, 0, len(used))
	for _, tok := range used {
		refs = append(refs, r.byToken[tok])
	}
	r.mu.RUnlock()

	return resolved, refs
}

// Snapshot returns all registered refs ordered by token number.
func (r *Registry) Snapshot() []Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Ref, 0, len(r.byToken))
	for _, ref := range r.byToken {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return tokenNum(out[i].Token) < tokenNum(out[j].Token) })
	return out
}

func tokenNum(tok string) int {
	var n int
	fmt.Sscanf(tok, "[s%d]", &n)
	return n
}

// normalizeURL canonicalizes a URL for dedupe purposes: lowercased scheme and
// host, default ports and trailing slashes removed, fragment dropped.
// Non-URL document identifiers pass through trimmed.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// displayLabel derives a human label from a URL when the caller supplied none.
func displayLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}
