package market

import (
	"context"
	"strings"
)

// TickerVariants returns the casing fallbacks to try for a ticker, in order:
// as configured, upper, lower, title. Duplicates collapse while preserving
// first occurrence.
func TickerVariants(base string) []string {
	b := strings.TrimSpace(base)
	lower := strings.ToLower(b)
	title := lower
	if lower != "" {
		title = strings.ToUpper(lower[:1]) + lower[1:]
	}

	candidates := []string{b, strings.ToUpper(b), lower, title}
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// FetchFunc fetches rows for one ticker spelling.
type FetchFunc func(ctx context.Context, ticker string) ([]map[string]any, error)

// FetchWithFallback tries each casing variant of base until one yields a
// non-empty result, returning that result and the spelling used. When every
// variant comes back empty or failing, the last attempt's (possibly empty)
// rows and spelling are returned; fetch errors only fail the attempt, not
// the whole fallback. The error is non-nil only when every variant failed,
// letting callers tell an empty market from an unreachable one.
func FetchWithFallback(ctx context.Context, base string, fetch FetchFunc) (rows []map[string]any, tickerUsed string, err error) {
	tickerUsed = base
	allFailed := true
	var lastErr error
	for _, t := range TickerVariants(base) {
		got, ferr := fetch(ctx, t)
		tickerUsed = t
		if ferr != nil {
			rows = nil
			lastErr = ferr
			continue
		}
		allFailed = false
		rows = got
		if len(got) > 0 {
			return rows, tickerUsed, nil
		}
	}
	if allFailed && lastErr != nil {
		return nil, tickerUsed, lastErr
	}
	return rows, tickerUsed, nil
}
