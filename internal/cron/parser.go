// Package cron parses recurrence expressions for recurring publish jobs.
package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type Schedule interface {
	Next(after time.Time) time.Time
}

type Parser struct {
	parser cron.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Parse compiles a recurrence expression in the given IANA timezone.
// An empty timezone defaults to UTC.
func (p *Parser) Parse(expression string, timezone string) (Schedule, error) {
	sched, err := p.parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}

	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	return &schedule{sched: sched, loc: loc}, nil
}

// Next returns the next occurrence of the expression after the given time,
// normalized to UTC. Convenience for callers that do not cache schedules.
func (p *Parser) Next(expression, timezone string, after time.Time) (time.Time, error) {
	sched, err := p.Parse(expression, timezone)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after).UTC(), nil
}

type schedule struct {
	sched cron.Schedule
	loc   *time.Location
}

func (s *schedule) Next(after time.Time) time.Time {
	return s.sched.Next(after.In(s.loc))
}
