// Package parser turns "<when> <what>" input into an instant and a text.
package parser

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the absolute date-time form users type.
const Layout = "2006-01-02 15:04"

// Result is a parsed time expression plus whatever text followed it.
type Result struct {
	FireAt time.Time
	Text   string
}

// Parser parses user input. A false result means the input was not
// understood, which is a user mistake rather than a system fault.
type Parser interface {
	Parse(ctx context.Context, input string) (Result, bool)
}

var (
	relativePattern = regexp.MustCompile(`(?is)^(\d+)\s*([a-z]+)[\s,]+(.+)$`)
	absolutePattern = regexp.MustCompile(`(?s)^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2})[\s,]+(.+)$`)
)

var units = map[string]time.Duration{
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       24 * time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
}

// SimpleParser understands "10m text", "2 hours, text" and
// "2025-12-02 18:30 text".
type SimpleParser struct {
	now func() time.Time
	loc *time.Location
}

func NewSimpleParser(now func() time.Time, loc *time.Location) *SimpleParser {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &SimpleParser{now: now, loc: loc}
}

func (p *SimpleParser) Parse(_ context.Context, input string) (Result, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}, false
	}

	if m := relativePattern.FindStringSubmatch(input); m != nil {
		unit, ok := units[strings.ToLower(m[2])]
		if !ok {
			return Result{}, false
		}
		amount, err := strconv.ParseInt(m[1], 10, 32)
		if err != nil || amount <= 0 || amount > math.MaxInt64/int64(unit) {
			return Result{}, false
		}
		text := strings.TrimSpace(m[3])
		if text == "" {
			return Result{}, false
		}
		return Result{FireAt: p.now().Add(time.Duration(amount) * unit), Text: text}, true
	}

	if m := absolutePattern.FindStringSubmatch(input); m != nil {
		at, err := time.ParseInLocation(Layout, m[1]+" "+m[2], p.loc)
		if err != nil {
			return Result{}, false
		}
		text := strings.TrimSpace(m[3])
		if text == "" {
			return Result{}, false
		}
		return Result{FireAt: at, Text: text}, true
	}

	return Result{}, false
}
