// Package search maintains the inverted indexes: content tokens to post
// ids and handle/display-name prefixes to user ids. Indexing runs
// inline on post and profile writes; lookups are AND-intersections over
// bounded key scans.
package search

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxTokensPerPost = 50
	maxQueryTerms    = 10
	maxKeysPerTerm   = 500
	minPrefixLen     = 3
	maxPrefixLen     = 15
)

// tokenSplit collapses every run outside [\w@#] into a separator, so
// mentions and hashtags survive tokenization whole.
var tokenSplit = regexp.MustCompile(`[^\w@#]+`)

// stopwords are common words too frequent to discriminate.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "but": true, "by": true, "for": true,
	"from": true, "has": true, "have": true, "he": true, "in": true,
	"is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "she": true, "that": true, "the": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "will": true,
	"with": true, "you": true,
}

// Tokenize lowercases content and splits it on non-word runs, keeping
// deduped tokens of length two or more that are either non-stopwords or
// @/# prefixed, capped at 50.
func Tokenize(content string) []string {
	parts := tokenSplit.Split(strings.ToLower(content), -1)

	seen := make(map[string]bool, len(parts))
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) < 2 || seen[p] {
			continue
		}
		if !strings.HasPrefix(p, "@") && !strings.HasPrefix(p, "#") && stopwords[p] {
			continue
		}
		seen[p] = true
		tokens = append(tokens, p)
		if len(tokens) == maxTokensPerPost {
			break
		}
	}
	return tokens
}

// QueryTerms tokenizes a search query, capped at ten terms.
func QueryTerms(query string) []string {
	terms := Tokenize(query)
	if len(terms) > maxQueryTerms {
		terms = terms[:maxQueryTerms]
	}
	return terms
}

// prefixes returns every leading substring of s with length 3..15,
// counted in runes.
func prefixes(s string) []string {
	runes := []rune(s)
	end := len(runes)
	if end > maxPrefixLen {
		end = maxPrefixLen
	}
	var out []string
	for i := minPrefixLen; i <= end; i++ {
		out = append(out, string(runes[:i]))
	}
	return out
}

// KeyWord marks token's presence in a post; the value is the post's
// creation time in unix milliseconds.
func KeyWord(token, postID string) string { return fmt.Sprintf("word:%s:%s", token, postID) }

// keyWordScan is the scan prefix listing every post containing token.
func keyWordScan(token string) string { return fmt.Sprintf("word:%s:", token) }

// KeyPostTokens is the reverse map used to unindex a post.
func KeyPostTokens(postID string) string { return fmt.Sprintf("idx:%s", postID) }

// KeyHandlePrefix and KeyNamePrefix hold user-id lists per prefix. The
// `-idx` segment keeps them clear of the handle reservation keyspace.
func KeyHandlePrefix(prefix string) string { return fmt.Sprintf("handle-idx:%s", prefix) }
func KeyNamePrefix(prefix string) string   { return fmt.Sprintf("name-idx:%s", prefix) }
