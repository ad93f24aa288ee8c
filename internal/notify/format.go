package notify

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCompact renders an amount at a precision matched to its magnitude:
// whole numbers with thousands separators above 1000, more decimals the
// smaller the value, trailing zeros trimmed.
func FormatCompact(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "??"
	}
	abs := math.Abs(f)
	switch {
	case abs >= 1000:
		return groupThousands(strconv.FormatFloat(math.Round(f), 'f', 0, 64))
	case abs < 1:
		return trimZeros(strconv.FormatFloat(f, 'f', 8, 64))
	case abs < 100:
		return trimZeros(strconv.FormatFloat(f, 'f', 4, 64))
	default:
		return trimZeros(strconv.FormatFloat(f, 'f', 2, 64))
	}
}

// FormatDecimal renders an exact decimal amount for display. Precision is
// held exact up to this point; rounding happens only here.
func FormatDecimal(d decimal.Decimal) string {
	return FormatCompact(d.InexactFloat64())
}

// FormatPrice renders an optional price, "??" when absent.
func FormatPrice(p *float64) string {
	if p == nil {
		return "??"
	}
	return FormatCompact(*p)
}

// ShortAddr abbreviates a hex address or hash for captions.
func ShortAddr(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// ImageURL builds the collectible image location from the gateway base, the
// collection CID and the token id.
func ImageURL(base, cid, tokenID string) string {
	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/%s/%s.png", base, cid, tokenID)
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
