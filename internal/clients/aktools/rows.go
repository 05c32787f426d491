package aktools

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/finsight/internal/models"
)

// dateColumns are the report-date column names used across akshare functions.
var dateColumns = []string{"REPORT_DATE", "报告期", "STD_REPORT_DATE", "日期", "report_date"}

// periodColumns carry an explicit report type on some endpoints.
var periodColumns = []string{"REPORT_TYPE", "报告类型", "DATE_TYPE"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z07:00",
	"20060102",
	"2006/01/02",
}

// ParseRows converts provider rows into records. Rows with no parsable
// report date are skipped and counted.
func ParseRows(market models.Market, symbol string, rows []map[string]interface{}) ([]models.FinancialRecord, int) {
	records := make([]models.FinancialRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		reportDate, ok := reportDate(row)
		if !ok {
			skipped++
			continue
		}

		raw := make(map[string]interface{}, len(row))
		for k, v := range row {
			if isDateColumn(k) {
				if t, ok := ParseDate(v); ok {
					raw[k] = t.Format("2006-01-02")
					continue
				}
			}
			raw[k] = ParseValue(v)
		}

		records = append(records, models.FinancialRecord{
			Symbol:     symbol,
			Market:     market,
			ReportDate: reportDate,
			PeriodType: periodType(row, reportDate),
			RawFields:  raw,
		})
	}
	return records, skipped
}

func isDateColumn(name string) bool {
	for _, col := range dateColumns {
		if col == name {
			return true
		}
	}
	return false
}

func reportDate(row map[string]interface{}) (time.Time, bool) {
	for _, col := range dateColumns {
		v, ok := row[col]
		if !ok {
			continue
		}
		if t, ok := ParseDate(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate accepts the date encodings AKTools emits: ISO strings with or
// without time, compact yyyymmdd, and epoch milliseconds.
func ParseDate(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateDay(t), true
			}
		}
	case json.Number:
		if ms, err := x.Int64(); err == nil && ms > 0 {
			return truncateDay(time.UnixMilli(ms).UTC()), true
		}
	case float64:
		if x > 0 {
			return truncateDay(time.UnixMilli(int64(x)).UTC()), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func periodType(row map[string]interface{}, reportDate time.Time) models.PeriodType {
	for _, col := range periodColumns {
		if s, ok := row[col].(string); ok {
			if p, err := models.ParsePeriodType(s); err == nil {
				return p
			}
		}
	}
	return models.InferPeriodType(reportDate)
}

var unitMultipliers = []struct {
	suffix string
	factor float64
}{
	{"万亿", 1e12},
	{"亿", 1e8},
	{"万", 1e4},
}

// ParseValue normalises a provider cell. JSON numbers become float64;
// decimal strings and strings such as "862.28亿" or "15.38%" become float64
// in base units (percent values stay in percent). Placeholders ("--",
// "False", "") become nil. Anything else is returned unchanged.
func ParseValue(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string:
		s := strings.TrimSpace(x)
		switch s {
		case "", "--", "-", "False", "false", "None", "nan", "NaN":
			return nil
		}
		num := strings.TrimSuffix(s, "%")
		suffixed := num != s
		factor := 1.0
		for _, u := range unitMultipliers {
			if strings.HasSuffix(num, u.suffix) {
				num = strings.TrimSuffix(num, u.suffix)
				factor = u.factor
				suffixed = true
				break
			}
		}
		// bare integer strings are usually codes ("00700", "600519")
		if !suffixed && !strings.Contains(num, ".") {
			return s
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64); err == nil {
			return f * factor
		}
		return s
	}
	return v
}
