// Package dispatch decides which scheduled map events are due at a given
// match second.
package dispatch

import (
	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/model"
)

// Rule fires Kind at First and then every Interval seconds. A zero Interval
// makes the rule one-shot.
type Rule struct {
	Kind     catalog.Kind
	First    int
	Interval int
}

// Due reports whether the rule fires at elapsed.
func (rule Rule) Due(elapsed int) bool {
	if rule.Interval <= 0 {
		return elapsed == rule.First
	}
	return elapsed >= rule.First && (elapsed-rule.First)%rule.Interval == 0
}

// DefaultRules returns the rune, lotus, tormentor and neutral item schedule.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: catalog.BountyRune, First: 0, Interval: 180},
		{Kind: catalog.PowerRune, First: 360, Interval: 120},
		{Kind: catalog.WisdomRune, First: 420, Interval: 420},
		{Kind: catalog.Lotus, First: 180, Interval: 180},
		{Kind: catalog.WaterRune, First: 120},
		{Kind: catalog.WaterRune, First: 240},
		{Kind: catalog.TormentorSpawned, First: 1200},
		{Kind: catalog.NeutralTier1, First: 420},
		{Kind: catalog.NeutralTier2, First: 1020},
		{Kind: catalog.NeutralTier3, First: 1620},
		{Kind: catalog.NeutralTier4, First: 2220},
		{Kind: catalog.NeutralTier5, First: 3600},
	}
}

// Dispatcher evaluates rules and tracks the day/night phase.
type Dispatcher struct {
	rules []Rule
	cycle int
	night bool
}

// New creates a Dispatcher. A nil rules slice uses DefaultRules.
func New(rules []Rule, config model.EngineConfig) *Dispatcher {
	if rules == nil {
		rules = DefaultRules()
	}
	config = config.Normalize()
	return &Dispatcher{
		rules: append([]Rule(nil), rules...),
		cycle: config.DayNightCycle,
		night: true,
	}
}

// Evaluate returns the kinds due at elapsed in rule order, followed by the
// day/night transition if one happens. Call it once per advanced second.
func (dispatcher *Dispatcher) Evaluate(elapsed int) []catalog.Kind {
	var due []catalog.Kind
	for _, rule := range dispatcher.rules {
		if rule.Due(elapsed) {
			due = append(due, rule.Kind)
		}
	}

	if elapsed >= 0 && elapsed%dispatcher.cycle == 0 {
		dispatcher.night = !dispatcher.night
		if dispatcher.night {
			due = append(due, catalog.NightStarted)
		} else {
			due = append(due, catalog.DayStarted)
		}
	}
	return due
}

// IsNight reports the current phase. Pre-game counts as night.
func (dispatcher *Dispatcher) IsNight() bool {
	return dispatcher.night
}

// Reset restores the pre-game phase.
func (dispatcher *Dispatcher) Reset() {
	dispatcher.night = true
}
