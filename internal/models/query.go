package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for report and filter dates.
const DateLayout = "2006-01-02"

// QueryRequest asks for a symbol's financial records, optionally projected
// down to the requested fields and filtered by date range and period.
type QueryRequest struct {
	Symbol     string     `json:"symbol"`
	Fields     []string   `json:"fields,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	PeriodType PeriodType `json:"period_type,omitempty"`
	AllowFuzzy *bool      `json:"allow_fuzzy,omitempty"` // nil uses the configured default
}

// QueryResult is the facade's only output shape. Failures are reported via
// Success=false and Message, never as errors.
type QueryResult struct {
	Success      bool               `json:"success"`
	Symbol       string             `json:"symbol,omitempty"`
	Market       Market             `json:"market,omitempty"`
	Records      []FinancialRecord  `json:"records"`
	Message      string             `json:"message,omitempty"`
	TotalRecords int                `json:"total_records"`
	Resolutions  []ResolutionResult `json:"resolutions,omitempty"`
	Suggestions  []string           `json:"suggestions,omitempty"`
}

// CacheStats summarises the record cache.
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
}

// ParseQueryDate parses an optional YYYY-MM-DD filter date. Blank input
// returns nil.
func ParseQueryDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date '%s' (expected YYYY-MM-DD)", s)
	}
	return &t, nil
}
