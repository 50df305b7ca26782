package search

import (
	"fmt"
	"strings"
)

// ParsedQuery is the structured form of a search_items query string.
// Within one key, multiple values OR; across keys, AND.
type ParsedQuery struct {
	Statuses []string
	Types    []string
	IsOpen   *bool
	Priority string
	Keywords []string
	Matched  bool // true if any key:value or bare-word token was recognized
}

// InvalidQueryError is returned by ParseQuery for a query string it
// deliberately refuses to interpret, rather than silently degrading it.
type InvalidQueryError struct {
	Reason string
}

func (e InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// ParseQuery tokenizes a query string into key:value filters plus bare-word
// keywords. Values may be quoted to keep embedded spaces as one token. A
// leading "-" on a key:value token (negation) is rejected with
// InvalidQueryError rather than silently folded into the keyword list:
// negation isn't implemented, and a query like "-status:Closed" would
// otherwise be misread as a bare-word search for the literal text.
func ParseQuery(query string) (ParsedQuery, error) {
	var pq ParsedQuery
	for _, tok := range tokenize(query) {
		if strings.HasPrefix(tok, "-") {
			if _, _, isFilter := splitToken(tok[1:]); isFilter {
				return ParsedQuery{}, InvalidQueryError{Reason: fmt.Sprintf("negation is not supported: %q", tok)}
			}
		}

		key, value, isFilter := splitToken(tok)
		if !isFilter {
			pq.Keywords = append(pq.Keywords, tok)
			pq.Matched = true
			continue
		}

		switch strings.ToLower(key) {
		case "status":
			pq.Statuses = append(pq.Statuses, value)
			pq.Matched = true
		case "type":
			pq.Types = append(pq.Types, value)
			pq.Matched = true
		case "priority":
			pq.Priority = strings.ToUpper(value)
			pq.Matched = true
		case "is":
			switch strings.ToLower(value) {
			case "open":
				open := false
				pq.IsOpen = &open
				pq.Matched = true
			case "closed":
				closed := true
				pq.IsOpen = &closed
				pq.Matched = true
			default:
				pq.Keywords = append(pq.Keywords, tok)
				pq.Matched = true
			}
		default:
			// Unrecognized key: treat the whole token as a bare keyword
			// rather than silently dropping it.
			pq.Keywords = append(pq.Keywords, tok)
			pq.Matched = true
		}
	}
	return pq, nil
}

// tokenize splits a query string on whitespace, respecting double-quoted
// spans so `tags:"two words"` survives as one token.
func tokenize(query string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tokens = append(tokens, current.String())
		current.Reset()
	}

	for _, r := range query {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// splitToken splits "key:value" into its parts. Returns isFilter=false if
// tok has no recognized key prefix.
func splitToken(tok string) (key, value string, isFilter bool) {
	idx := strings.IndexByte(tok, ':')
	if idx <= 0 || idx == len(tok)-1 {
		return "", "", false
	}
	k := tok[:idx]
	switch strings.ToLower(k) {
	case "status", "type", "priority", "is":
		return k, tok[idx+1:], true
	default:
		return "", "", false
	}
}
