// Package models defines data structures for finsight
package models

import (
	"fmt"
	"strings"
	"time"
)

// Market partitions symbols, field configuration and cached data.
type Market string

const (
	MarketMainland Market = "CN" // Shanghai / Shenzhen / Beijing A-shares
	MarketHongKong Market = "HK"
	MarketUS       Market = "US"
)

// AllMarkets lists every market in display order.
var AllMarkets = []Market{MarketMainland, MarketHongKong, MarketUS}

// String returns the market code.
func (m Market) String() string {
	return string(m)
}

// Label returns a human-readable market name.
func (m Market) Label() string {
	switch m {
	case MarketMainland:
		return "Mainland China (A-share)"
	case MarketHongKong:
		return "Hong Kong"
	case MarketUS:
		return "United States"
	default:
		return string(m)
	}
}

// Valid reports whether m is one of the three supported markets.
func (m Market) Valid() bool {
	switch m {
	case MarketMainland, MarketHongKong, MarketUS:
		return true
	}
	return false
}

// ParseMarket accepts market codes and common names (case-insensitive):
// CN/A/MAINLAND/A_STOCK, HK/H/HONGKONG/HK_STOCK, US/U/US_STOCK.
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CN", "A", "MAINLAND", "A_STOCK", "ASHARE", "A_SHARE", "CHINA":
		return MarketMainland, nil
	case "HK", "H", "HONGKONG", "HONG_KONG", "HK_STOCK":
		return MarketHongKong, nil
	case "US", "U", "US_STOCK", "USA":
		return MarketUS, nil
	}
	return "", fmt.Errorf("unknown market '%s'", s)
}

// PeriodType is the reporting period a financial record covers.
type PeriodType string

const (
	PeriodAnnual     PeriodType = "ANNUAL"
	PeriodSemiAnnual PeriodType = "SEMI_ANNUAL"
	PeriodQuarterly  PeriodType = "QUARTERLY"
)

// ParsePeriodType accepts the enum names plus the Chinese labels used by
// the data provider (年报, 中报, 季报, 一季报, 三季报).
func ParsePeriodType(s string) (PeriodType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ANNUAL", "YEARLY", "FY", "年报", "年度":
		return PeriodAnnual, nil
	case "SEMI_ANNUAL", "SEMIANNUAL", "HALF", "H1", "中报", "半年报", "中期":
		return PeriodSemiAnnual, nil
	case "QUARTERLY", "QUARTER", "Q", "季报", "一季报", "三季报", "季度":
		return PeriodQuarterly, nil
	}
	return "", fmt.Errorf("unknown period type '%s'", s)
}

// InferPeriodType derives the period from a report date's month/day.
// Unrecognised dates default to quarterly.
func InferPeriodType(reportDate time.Time) PeriodType {
	switch {
	case reportDate.Month() == time.December && reportDate.Day() == 31:
		return PeriodAnnual
	case reportDate.Month() == time.June && reportDate.Day() == 30:
		return PeriodSemiAnnual
	default:
		return PeriodQuarterly
	}
}

// FinancialRecord is one reporting-period snapshot for a symbol.
// RawFields is keyed by the data provider's native field name.
type FinancialRecord struct {
	Symbol     string                     `json:"symbol"`
	Market     Market                     `json:"market"`
	ReportDate time.Time                  `json:"report_date"`
	PeriodType PeriodType                 `json:"period_type"`
	RawFields  map[string]interface{}     `json:"raw_fields"`
	Metadata   map[string]FieldResolution `json:"metadata,omitempty"` // native name -> how it was resolved
}

// FieldNames returns the record's native field names.
func (r *FinancialRecord) FieldNames() []string {
	names := make([]string, 0, len(r.RawFields))
	for k := range r.RawFields {
		names = append(names, k)
	}
	return names
}
