package monitor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"trade-monitor/internal/types"
)

// A cell is a number only when its text is a plain JSON number literal.
// Leading zeros, a '+' sign, hex, NaN/Inf and grouped digits stay strings.
var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Integers beyond this lose precision as float64.
const maxSafeInteger = 1 << 53

type cellTyper struct {
	nulls map[string]struct{}
}

func newCellTyper(nullTokens []string) cellTyper {
	nulls := make(map[string]struct{}, len(nullTokens))
	for _, t := range nullTokens {
		nulls[strings.TrimSpace(t)] = struct{}{}
	}
	return cellTyper{nulls: nulls}
}

func (c cellTyper) value(raw string) types.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return types.Null()
	}
	if _, ok := c.nulls[s]; ok {
		return types.Null()
	}
	if n, ok := parseNumber(s); ok {
		return n
	}
	return types.String(s)
}

func parseNumber(s string) (types.Value, bool) {
	if !numberPattern.MatchString(s) {
		return types.Value{}, false
	}
	if !strings.ContainsAny(s, ".eE") {
		// checked before conversion; float64 rounds 2^53+1 down to 2^53
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n > maxSafeInteger || n < -maxSafeInteger {
			return types.Value{}, false
		}
		return types.Number(s, float64(n)), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return types.Value{}, false
	}
	return types.Number(s, f), true
}
