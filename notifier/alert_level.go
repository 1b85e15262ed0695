package notifier

import (
	"fmt"
	"strings"
)

// AlertLevel is the four-step impact scale. Values are ordered:
// green < yellow < orange < red.
type AlertLevel int

const (
	LevelGreen AlertLevel = iota
	LevelYellow
	LevelOrange
	LevelRed
)

var levelNames = [...]string{"green", "yellow", "orange", "red"}

func (l AlertLevel) String() string {
	if l < LevelGreen || l > LevelRed {
		return fmt.Sprintf("alertlevel(%d)", int(l))
	}
	return levelNames[l]
}

// InvalidAlertLevelError reports a level string outside the closed set.
// It is a fatal input-validation failure; callers must not degrade it
// to a default level.
type InvalidAlertLevelError struct {
	Value string
}

func (e *InvalidAlertLevelError) Error() string {
	return fmt.Sprintf("invalid alert level %q (want green, yellow, orange or red)", e.Value)
}

func ParseAlertLevel(s string) (AlertLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return LevelGreen, nil
	case "yellow":
		return LevelYellow, nil
	case "orange":
		return LevelOrange, nil
	case "red":
		return LevelRed, nil
	default:
		return LevelGreen, &InvalidAlertLevelError{Value: s}
	}
}
