package enums

import "fmt"

// SelectionMode is the stored cardinality rule of a modifier group.
type SelectionMode string

const (
	// SelectionModeSingle behaves like a radio group: at most one option.
	SelectionModeSingle SelectionMode = "single"
	// SelectionModeMulti behaves like checkboxes.
	SelectionModeMulti SelectionMode = "multi"
)

var validSelectionModes = []SelectionMode{
	SelectionModeSingle,
	SelectionModeMulti,
}

func (m SelectionMode) String() string {
	return string(m)
}

func (m SelectionMode) IsValid() bool {
	for _, candidate := range validSelectionModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseSelectionMode converts raw input into a SelectionMode.
func ParseSelectionMode(value string) (SelectionMode, error) {
	for _, candidate := range validSelectionModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid selection mode %q", value)
}
