// Package gametime converts signed match seconds to and from the "MM:SS"
// strings shown next to every event.
package gametime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed indicates the input is not a "[-]MM:SS" match time.
var ErrMalformed = errors.New("malformed match time")

// Format renders seconds as "MM:SS", prefixed with "-" for pre-match time.
// Minutes are not wrapped into hours: 3600 renders as "60:00".
func Format(seconds int) string {
	sign := ""
	magnitude := uint(seconds)
	if seconds < 0 {
		sign = "-"
		magnitude = uint(-(seconds + 1)) + 1
	}
	return fmt.Sprintf("%s%02d:%02d", sign, magnitude/60, magnitude%60)
}

// FormatDuration renders a wall-clock duration as "MM:SS", truncated to
// whole seconds. Negative durations render as "00:00".
func FormatDuration(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}
	return Format(int(duration / time.Second))
}

// Parse reads a string produced by Format. A leading "+" is accepted.
func Parse(value string) (int, error) {
	raw := strings.TrimSpace(value)
	negative := false
	switch {
	case strings.HasPrefix(raw, "-"):
		negative = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}

	minutesPart, secondsPart, ok := strings.Cut(raw, ":")
	if !ok || minutesPart == "" || len(secondsPart) != 2 {
		return 0, fmt.Errorf("parse %q: %w", value, ErrMalformed)
	}
	seconds, err := parseDigits(secondsPart)
	if err != nil || seconds > 59 {
		return 0, fmt.Errorf("parse %q seconds: %w", value, ErrMalformed)
	}
	minutes, err := parseDigits(minutesPart)
	if err != nil || minutes > (math.MaxInt-seconds)/60 {
		return 0, fmt.Errorf("parse %q minutes: %w", value, ErrMalformed)
	}

	total := minutes*60 + seconds
	if negative {
		total = -total
	}
	return total, nil
}

func parseDigits(value string) (int, error) {
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, ErrMalformed
		}
	}
	return strconv.Atoi(value)
}
