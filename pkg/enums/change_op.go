package enums

import (
	"fmt"
	"strings"
)

// ChangeOp is the kind of row change carried by a change notification.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeMask selects which ChangeOps a subscriber wants.
type ChangeMask uint8

const (
	MaskInsert ChangeMask = 1 << iota
	MaskUpdate
	MaskDelete

	MaskAll = MaskInsert | MaskUpdate | MaskDelete
)

func (o ChangeOp) String() string {
	return string(o)
}

func (o ChangeOp) IsValid() bool {
	return o.mask() != 0
}

func (o ChangeOp) mask() ChangeMask {
	switch o {
	case ChangeInsert:
		return MaskInsert
	case ChangeUpdate:
		return MaskUpdate
	case ChangeDelete:
		return MaskDelete
	}
	return 0
}

// Matches reports whether op is selected by the mask.
func (m ChangeMask) Matches(op ChangeOp) bool {
	return m&op.mask() != 0
}

// ParseChangeMask accepts "*" or a comma separated list such as "insert,update".
func ParseChangeMask(value string) (ChangeMask, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "*" {
		return MaskAll, nil
	}
	var mask ChangeMask
	for _, part := range strings.Split(value, ",") {
		op := ChangeOp(strings.ToLower(strings.TrimSpace(part)))
		if !op.IsValid() {
			return 0, fmt.Errorf("invalid change op %q", part)
		}
		mask |= op.mask()
	}
	return mask, nil
}
