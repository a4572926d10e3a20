// various helpers for shaping API output

package tdp

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

// enable CORS headers for the API
func EnableCors(w *http.ResponseWriter) {
	(*w).Header().Set("Access-Control-Allow-Origin", "*")
}

// formats v with places decimals and comma thousand separators
func commaFormat(v float64, places int) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', places, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	if v < 0 && strings.Trim(s, "0.") != "" {
		return "-" + b.String()
	}
	return b.String()
}

// FormatMoney renders v as dollars, e.g. $1,234,567. Negative amounts read $-5.
func FormatMoney(v float64, places int) string {
	if v < 0 {
		return "$-" + commaFormat(-v, places)
	}
	return "$" + commaFormat(v, places)
}

// FormatAxis renders an axis tick compactly: 1.25m, 250k, 9,999.
func FormatAxis(d float64) string {
	dmil := d / 1000000
	a := math.Abs(d)
	switch {
	case a > 99999999:
		return commaFormat(dmil, 0) + "m"
	case a > 9999999:
		return trimZeros(dmil, 1) + "m"
	case a > 999999:
		return trimZeros(dmil, 2) + "m"
	case a > 99999:
		return commaFormat(d/1000, 0) + "k"
	}
	return commaFormat(d, 0)
}

// drops trailing zero decimals, at most places of them
func trimZeros(v float64, places int) string {
	for p := places; p > 0; p-- {
		s := commaFormat(v, p)
		if !strings.HasSuffix(s, "0") {
			return s
		}
	}
	return commaFormat(v, 0)
}
