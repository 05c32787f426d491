package symbols

import (
	"strings"
	"unicode"

	"github.com/bobmcallan/finsight/internal/models"
)

// Normalize returns the market's canonical form of s. It is idempotent:
// Normalize(m, Normalize(m, s)) == Normalize(m, s).
//
//	CN: bare digits ("SH600519" -> "600519")
//	HK: digits left-padded to five ("700" -> "00700")
//	US: upper-case with '-' and '.' replaced by '_' ("brk-a" -> "BRK_A")
func Normalize(m models.Market, s string) string {
	s = strings.TrimSpace(s)
	switch m {
	case models.MarketMainland:
		return digitsOnly(s)
	case models.MarketHongKong:
		d := digitsOnly(s)
		for len(d) > 5 && d[0] == '0' {
			d = d[1:]
		}
		if len(d) < 5 {
			d = strings.Repeat("0", 5-len(d)) + d
		}
		return d
	case models.MarketUS:
		up := strings.ToUpper(s)
		for _, sf := range suffixes {
			if sf.market == models.MarketUS && strings.HasSuffix(up, sf.text) && len(up) > len(sf.text) {
				up = up[:len(up)-len(sf.text)]
				break
			}
		}
		return strings.NewReplacer("-", "_", ".", "_").Replace(up)
	}
	return s
}

// FormatForProvider returns the symbol exactly as the data provider expects
// it. Applied to every symbol before it reaches a DataAdapter.
func FormatForProvider(m models.Market, s string) string {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, p := range prefixes {
		if p.market == m && strings.HasPrefix(upper, p.text) {
			s = s[len(p.text):]
			break
		}
	}
	return Normalize(m, s)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
