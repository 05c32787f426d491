// Package symbols classifies raw ticker strings into markets and formats
// them for the data provider.
package symbols

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/bobmcallan/finsight/internal/models"
)

// InvalidSymbolError is returned when a symbol cannot be classified and no
// default market applies.
type InvalidSymbolError struct {
	Input  string
	Reason string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("invalid symbol '%s': %s", e.Input, e.Reason)
}

type affix struct {
	text   string
	market models.Market
}

// Longer prefixes precede their single-letter forms so "HK." is not read as "H."
var prefixes = []affix{
	{"CN.", models.MarketMainland},
	{"HK.", models.MarketHongKong},
	{"US.", models.MarketUS},
	{"A.", models.MarketMainland},
	{"H.", models.MarketHongKong},
	{"U.", models.MarketUS},
}

var suffixes = []affix{
	{".NASDAQ", models.MarketUS},
	{".NYSE", models.MarketUS},
	{".SS", models.MarketMainland},
	{".SH", models.MarketMainland},
	{".SZ", models.MarketMainland},
	{".BJ", models.MarketMainland},
	{".HK", models.MarketHongKong},
	{".US", models.MarketUS},
	{".O", models.MarketUS},
}

var (
	mainlandPattern = regexp.MustCompile(`^(?i)(SH|SZ|BJ)?\d{6}$`)
	hongKongPattern = regexp.MustCompile(`^\d{1,5}$`)
	usPattern       = regexp.MustCompile(`^[A-Za-z]{1,5}([-._][A-Za-z]{1,2})?$`)
)

// Identifier infers a symbol's market. The zero value has no default market.
type Identifier struct {
	defaultMarket models.Market
}

// Option configures an Identifier
type Option func(*Identifier)

// WithDefaultMarket sets the market used when no rule classifies a symbol.
// Invalid markets are ignored.
func WithDefaultMarket(m models.Market) Option {
	return func(i *Identifier) {
		if m.Valid() {
			i.defaultMarket = m
		}
	}
}

// NewIdentifier creates an Identifier
func NewIdentifier(opts ...Option) *Identifier {
	i := &Identifier{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// DefaultMarket returns the configured fallback market, or "" if none.
func (i *Identifier) DefaultMarket() models.Market {
	return i.defaultMarket
}

// Identify classifies raw and returns its market with the normalized symbol.
// Rules apply in order: explicit prefix, exchange suffix, format, default market.
func (i *Identifier) Identify(raw string) (models.Market, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", &InvalidSymbolError{Input: raw, Reason: "symbol is empty"}
	}
	upper := strings.ToUpper(s)

	for _, p := range prefixes {
		if strings.HasPrefix(upper, p.text) {
			body := strings.TrimSpace(s[len(p.text):])
			if body == "" {
				return "", "", &InvalidSymbolError{Input: raw, Reason: "nothing follows market prefix " + p.text}
			}
			if !validBody(p.market, body) {
				return "", "", &InvalidSymbolError{Input: raw, Reason: "no valid symbol after market prefix " + p.text}
			}
			return p.market, Normalize(p.market, body), nil
		}
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(upper, sf.text) && len(s) > len(sf.text) {
			body := strings.TrimSpace(s[:len(s)-len(sf.text)])
			if !validBody(sf.market, body) {
				return "", "", &InvalidSymbolError{Input: raw, Reason: "no valid symbol before exchange suffix " + sf.text}
			}
			return sf.market, Normalize(sf.market, body), nil
		}
	}

	if m, ok := inferFromFormat(s); ok {
		return m, Normalize(m, s), nil
	}

	if i.defaultMarket != "" {
		return i.defaultMarket, s, nil
	}
	return "", "", &InvalidSymbolError{Input: raw, Reason: "market could not be inferred and no default market is configured"}
}

// validBody reports whether the text left after stripping a market prefix or
// exchange suffix can name a symbol: CN and HK codes need digits, US tickers
// need a letter.
func validBody(m models.Market, body string) bool {
	switch m {
	case models.MarketMainland, models.MarketHongKong:
		return digitsOnly(body) != ""
	case models.MarketUS:
		return strings.IndexFunc(body, func(r rune) bool {
			return r < unicode.MaxASCII && unicode.IsLetter(r)
		}) >= 0
	}
	return false
}

func inferFromFormat(s string) (models.Market, bool) {
	switch {
	case mainlandPattern.MatchString(s):
		return models.MarketMainland, true
	case hongKongPattern.MatchString(s):
		return models.MarketHongKong, true
	case usPattern.MatchString(s):
		return models.MarketUS, true
	}
	return "", false
}

var defaultIdentifier = NewIdentifier()

// Identify classifies raw with no default market.
func Identify(raw string) (models.Market, string, error) {
	return defaultIdentifier.Identify(raw)
}
