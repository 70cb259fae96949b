// Package proxy is the validating relay between the dashboard and the
// upstream chart provider.
package proxy

import (
	"net/url"
	"regexp"
	"strconv"
)

const maxSymbolLength = 12

var (
	symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.^-]+$`)
	periodPattern = regexp.MustCompile(`^[0-9]+$`)
)

var allowedIntervals = map[string]bool{
	"1m": true, "2m": true, "5m": true, "15m": true, "30m": true, "60m": true, "90m": true,
	"1h": true, "1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

// ChartParams is a validated chart request.
type ChartParams struct {
	Symbol   string
	Period1  int64
	Period2  int64
	Interval string
}

// FieldError describes one rejected request parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks the symbol path segment and chart query. Every problem is
// reported; params are only meaningful when the returned slice is empty.
func Validate(symbol string, query url.Values) (ChartParams, []FieldError) {
	var problems []FieldError
	params := ChartParams{Symbol: symbol, Interval: query.Get("interval")}

	switch {
	case symbol == "":
		problems = append(problems, FieldError{"symbol", "symbol is required"})
	case len(symbol) > maxSymbolLength:
		problems = append(problems, FieldError{"symbol", "symbol must be at most 12 characters"})
	case !symbolPattern.MatchString(symbol):
		problems = append(problems, FieldError{"symbol", "symbol contains invalid characters"})
	}

	p1, ok1 := parsePeriod(query.Get("period1"))
	if !ok1 {
		problems = append(problems, FieldError{"period1", "period1 must be a non-negative integer"})
	}
	p2, ok2 := parsePeriod(query.Get("period2"))
	if !ok2 {
		problems = append(problems, FieldError{"period2", "period2 must be a non-negative integer"})
	}
	if ok1 && ok2 && p1 >= p2 {
		problems = append(problems, FieldError{"period1", "period1 must be before period2"})
	}
	params.Period1, params.Period2 = p1, p2

	if !allowedIntervals[params.Interval] {
		problems = append(problems, FieldError{"interval", "interval is not supported"})
	}

	return params, problems
}

// Query renders the params as the upstream query string.
func (p ChartParams) Query() url.Values {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(p.Period1, 10))
	q.Set("period2", strconv.FormatInt(p.Period2, 10))
	q.Set("interval", p.Interval)
	return q
}

func parsePeriod(raw string) (int64, bool) {
	if !periodPattern.MatchString(raw) {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
