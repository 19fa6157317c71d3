// Package catalog defines the closed set of match event kinds, their stable
// notification identifiers and their localized texts.
package catalog

import (
	"fmt"
	"strings"
)

// Kind identifies an event. Values are persisted and must never change.
type Kind string

const (
	GameStarted Kind = "game_started"
	GamePaused  Kind = "game_paused"
	GameResumed Kind = "game_resumed"
	GameEnded   Kind = "game_ended"

	BountyRune       Kind = "bounty_rune"
	PowerRune        Kind = "power_rune"
	WisdomRune       Kind = "wisdom_rune"
	WaterRune        Kind = "water_rune"
	Lotus            Kind = "lotus"
	DayStarted       Kind = "day_started"
	NightStarted     Kind = "night_started"
	TormentorSpawned Kind = "tormentor_spawned"
	NeutralTier1     Kind = "neutral_item_tier_1"
	NeutralTier2     Kind = "neutral_item_tier_2"
	NeutralTier3     Kind = "neutral_item_tier_3"
	NeutralTier4     Kind = "neutral_item_tier_4"
	NeutralTier5     Kind = "neutral_item_tier_5"

	RoshanKilled              Kind = "roshan_killed"
	RoshanRespawnMin          Kind = "roshan_respawn_min"
	RoshanRespawnMax          Kind = "roshan_respawn_max"
	AegisExpired              Kind = "aegis_expired"
	DireTormentorKilled       Kind = "dire_tormentor_killed"
	DireTormentorRespawned    Kind = "dire_tormentor_respawned"
	RadiantTormentorKilled    Kind = "radiant_tormentor_killed"
	RadiantTormentorRespawned Kind = "radiant_tormentor_respawned"
)

// Category groups kinds by how they are produced.
type Category string

const (
	CategoryLifecycle Category = "lifecycle"
	CategoryPeriodic  Category = "periodic"
	CategoryTriggered Category = "triggered"
)

// Entry describes one kind.
type Entry struct {
	Kind     Kind
	ID       int
	Category Category
	Icons    []string
}

var entries = []Entry{
	{GameStarted, 1, CategoryLifecycle, []string{"dire", "radiant"}},
	{GamePaused, 2, CategoryLifecycle, []string{"dire", "radiant"}},
	{GameResumed, 3, CategoryLifecycle, []string{"dire", "radiant"}},
	{GameEnded, 4, CategoryLifecycle, []string{"dire", "radiant"}},

	{BountyRune, 10, CategoryPeriodic, []string{"bounty"}},
	{PowerRune, 11, CategoryPeriodic, []string{"haste", "illusion", "invisibility", "regeneration", "amplify_damage", "arcane", "shield"}},
	{WisdomRune, 12, CategoryPeriodic, []string{"wisdom"}},
	{WaterRune, 13, CategoryPeriodic, []string{"water"}},
	{Lotus, 14, CategoryPeriodic, []string{"lotus"}},
	{DayStarted, 15, CategoryPeriodic, []string{"day"}},
	{NightStarted, 16, CategoryPeriodic, []string{"night"}},
	{TormentorSpawned, 17, CategoryPeriodic, []string{"dire_tormentor", "radiant_tormentor"}},
	{NeutralTier1, 20, CategoryPeriodic, []string{"neutral_tier_1"}},
	{NeutralTier2, 21, CategoryPeriodic, []string{"neutral_tier_2"}},
	{NeutralTier3, 22, CategoryPeriodic, []string{"neutral_tier_3"}},
	{NeutralTier4, 23, CategoryPeriodic, []string{"neutral_tier_4"}},
	{NeutralTier5, 24, CategoryPeriodic, []string{"neutral_tier_5"}},

	{RoshanKilled, 30, CategoryTriggered, []string{"roshan"}},
	{RoshanRespawnMin, 31, CategoryTriggered, []string{"roshan"}},
	{RoshanRespawnMax, 32, CategoryTriggered, []string{"roshan"}},
	{AegisExpired, 33, CategoryTriggered, []string{"aegis"}},
	{DireTormentorKilled, 40, CategoryTriggered, []string{"dire_tormentor"}},
	{DireTormentorRespawned, 41, CategoryTriggered, []string{"dire_tormentor"}},
	{RadiantTormentorKilled, 42, CategoryTriggered, []string{"radiant_tormentor"}},
	{RadiantTormentorRespawned, 43, CategoryTriggered, []string{"radiant_tormentor"}},
}

var byKind = indexEntries(entries)

func indexEntries(list []Entry) map[Kind]Entry {
	index := make(map[Kind]Entry, len(list))
	for _, entry := range list {
		index[entry.Kind] = entry
	}
	return index
}

// Lookup returns the entry for kind.
func Lookup(kind Kind) (Entry, bool) {
	entry, ok := byKind[kind]
	if !ok {
		return Entry{}, false
	}
	entry.Icons = append([]string(nil), entry.Icons...)
	return entry, true
}

// Kinds returns every known kind in catalog order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(entries))
	for _, entry := range entries {
		kinds = append(kinds, entry.Kind)
	}
	return kinds
}

// ParseKind resolves a stored identifier.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := byKind[kind]; !ok {
		return "", fmt.Errorf("unknown event kind %q", value)
	}
	return kind, nil
}

// ID returns the stable notification identifier, or 0 for unknown kinds.
func (kind Kind) ID() int {
	return byKind[kind].ID
}

func (kind Kind) String() string {
	return string(kind)
}
