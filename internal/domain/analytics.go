package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyTrend is one month's aggregate in a spending time series.
// Month is a zero-padded "YYYY-MM" key; months without expenses in the
// requested window produce no entry.
type MonthlyTrend struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// CategoryBreakdownItem is one category's share of spending in a window.
// Color carries the category's current color, not the color at the time
// the expenses were recorded.
type CategoryBreakdownItem struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
	Color        string          `json:"color"`
	Percentage   float64         `json:"percentage"`
}

// CategoryBreakdown is the full per-category report: items sorted by
// total descending, plus the grand total and record count across all
// categories.
type CategoryBreakdown struct {
	Breakdown []CategoryBreakdownItem `json:"breakdown"`
	Total     decimal.Decimal         `json:"total"`
	Count     int                     `json:"count"`
}

// TrendsReport is the monthly-trends response, echoing the window the
// aggregation ran over.
type TrendsReport struct {
	Trends    []MonthlyTrend `json:"trends"`
	Range     int            `json:"range"`
	StartDate time.Time      `json:"startDate"`
	EndDate   time.Time      `json:"endDate"`
}

// BreakdownReport is the category-breakdown response, echoing the window
// the aggregation ran over.
type BreakdownReport struct {
	CategoryBreakdown
	Range     int       `json:"range"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}
