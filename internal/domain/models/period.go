package models

import (
	"fmt"
	"strings"
	"time"
)

// Period is the candlestick resolution as stored by the indexer.
type Period string

const (
	Period1M  Period = "period_1m"
	Period5M  Period = "period_5m"
	Period15M Period = "period_15m"
	Period30M Period = "period_30m"
	Period1H  Period = "period_1h"
	Period4H  Period = "period_4h"
	Period1D  Period = "period_1d"
)

// Periods lists every supported period from shortest to longest.
var Periods = []Period{Period1M, Period5M, Period15M, Period30M, Period1H, Period4H, Period1D}

var periodDurations = map[Period]time.Duration{
	Period1M:  time.Minute,
	Period5M:  5 * time.Minute,
	Period15M: 15 * time.Minute,
	Period30M: 30 * time.Minute,
	Period1H:  time.Hour,
	Period4H:  4 * time.Hour,
	Period1D:  24 * time.Hour,
}

// aliases maps broker enum names and charting resolutions onto periods.
var aliases = map[string]Period{
	"OneMinute":      Period1M,
	"FiveMinutes":    Period5M,
	"FifteenMinutes": Period15M,
	"ThirtyMinutes":  Period30M,
	"OneHour":        Period1H,
	"FourHours":      Period4H,
	"OneDay":         Period1D,

	"1":   Period1M,
	"5":   Period5M,
	"15":  Period15M,
	"30":  Period30M,
	"60":  Period1H,
	"240": Period4H,
	"1D":  Period1D,
	"D":   Period1D,
}

// IsValid reports whether p is one of the known periods.
func (p Period) IsValid() bool {
	_, ok := periodDurations[p]
	return ok
}

// Duration returns the bar width. Unknown periods return 0.
func (p Period) Duration() time.Duration {
	return periodDurations[p]
}

func (p Period) String() string { return string(p) }

// ParsePeriod accepts database names, broker names and charting resolutions.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if p := Period(s); p.IsValid() {
		return p, nil
	}
	if p, ok := aliases[s]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown period: %q", s)
}

// PeriodStartTime truncates t to the start of the period boundary that contains it.
func PeriodStartTime(t time.Time, p Period) time.Time {
	d := p.Duration()
	if d <= 0 {
		return t
	}
	return t.UTC().Truncate(d)
}
