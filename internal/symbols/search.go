// Package symbols provides case-insensitive symbol/name search with
// relevance ranking over a flat instrument list.
package symbols

import (
	"sort"
	"strings"

	"chartengine/internal/model"
)

// Match-kind scores. The highest applicable score wins per entry.
const (
	scoreSymbolExact    = 100
	scoreSymbolPrefix   = 80
	scoreSymbolContains = 60
	scoreNamePrefix     = 40
	scoreNameContains   = 20
)

type scoredEntry struct {
	entry model.SymbolEntry
	score int
}

// Search ranks entries against query and returns at most maxResults.
//
// Results sort by score descending, then symbol ascending for stability.
// An empty query returns the first maxResults entries unranked. Scoring is
// a single full-string match over symbol then name; multi-token matching
// across more fields was considered and rejected as a product decision.
func Search(entries []model.SymbolEntry, query string, maxResults int) []model.SymbolEntry {
	if maxResults < 0 {
		maxResults = 0
	}

	if query == "" {
		n := len(entries)
		if n > maxResults {
			n = maxResults
		}
		out := make([]model.SymbolEntry, n)
		copy(out, entries[:n])
		return out
	}

	q := strings.ToLower(query)

	scored := make([]scoredEntry, 0, len(entries))
	for _, e := range entries {
		sym := strings.ToLower(e.Symbol)
		name := strings.ToLower(e.Name)

		var score int
		switch {
		case sym == q:
			score = scoreSymbolExact
		case strings.HasPrefix(sym, q):
			score = scoreSymbolPrefix
		case strings.Contains(sym, q):
			score = scoreSymbolContains
		case strings.HasPrefix(name, q):
			score = scoreNamePrefix
		case strings.Contains(name, q):
			score = scoreNameContains
		default:
			continue
		}

		scored = append(scored, scoredEntry{entry: e, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].entry.Symbol < scored[j].entry.Symbol
	})

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	out := make([]model.SymbolEntry, len(scored))
	for i, s := range scored {
		out[i] = s.entry
	}
	return out
}
