package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule allows Limit requests per fixed Window.
type Rule struct {
	Limit  int64
	Window time.Duration
	text   string
}

func (r Rule) String() string {
	if r.text != "" {
		return r.text
	}
	return fmt.Sprintf("%d per %s", r.Limit, r.Window)
}

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRules parses limit strings such as "200 per day;50 per hour" or
// "10/minute". Rules are separated by ';' or ','. An empty string yields no
// rules.
func ParseRules(s string) ([]Rule, error) {
	var rules []Rule
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rule, err := parseRule(part)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// MustParseRules is ParseRules for fixed policies compiled into the binary.
func MustParseRules(s string) []Rule {
	rules, err := ParseRules(s)
	if err != nil {
		panic(err)
	}
	return rules
}

func parseRule(s string) (Rule, error) {
	var count, unit string
	if i := strings.Index(s, "/"); i >= 0 {
		count, unit = s[:i], s[i+1:]
	} else {
		fields := strings.Fields(s)
		if len(fields) != 3 || strings.ToLower(fields[1]) != "per" {
			return Rule{}, fmt.Errorf("invalid rate limit %q: want \"N per unit\"", s)
		}
		count, unit = fields[0], fields[2]
	}

	n, err := strconv.ParseInt(strings.TrimSpace(count), 10, 64)
	if err != nil || n <= 0 {
		return Rule{}, fmt.Errorf("invalid rate limit %q: count must be a positive integer", s)
	}

	unit = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "s")
	window, ok := units[unit]
	if !ok {
		return Rule{}, fmt.Errorf("invalid rate limit %q: unknown unit %q", s, unit)
	}

	return Rule{Limit: n, Window: window, text: fmt.Sprintf("%d per %s", n, unit)}, nil
}
