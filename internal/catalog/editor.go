package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
)

// RenameFunc writes a new name and returns the refreshed list.
type RenameFunc[T any] func(ctx context.Context, id uuid.UUID, name string) (T, error)

// Editor is the inline rename state of one list: at most one row is in
// editing state, holding a draft name until it is saved or cancelled.
type Editor[T any] struct {
	rename  RenameFunc[T]
	editing uuid.UUID
	draft   string
}

func NewEditor[T any](rename RenameFunc[T]) *Editor[T] {
	return &Editor[T]{rename: rename}
}

// CategoryEditor binds an Editor to one organization's category list. The
// HTTP surface stays stateless (PATCH then refetch); the editor is for
// callers that hold a list open, such as the staff console's Go client.
func CategoryEditor(svc Service, orgID uuid.UUID) *Editor[*Listing[CategoryDTO]] {
	return NewEditor(func(ctx context.Context, id uuid.UUID, name string) (*Listing[CategoryDTO], error) {
		return svc.RenameCategory(ctx, orgID, id, name)
	})
}

// Begin swaps the row into editing state, replacing any other draft.
func (e *Editor[T]) Begin(id uuid.UUID, current string) {
	e.editing = id
	e.draft = current
}

func (e *Editor[T]) SetDraft(name string) {
	e.draft = name
}

// Editing reports the row being edited and its draft.
func (e *Editor[T]) Editing() (uuid.UUID, string, bool) {
	return e.editing, e.draft, e.editing != uuid.Nil
}

// Save validates the draft, writes it and clears the editing state. On
// failure the draft is kept so the user can correct it.
func (e *Editor[T]) Save(ctx context.Context) (T, error) {
	var zero T
	if e.editing == uuid.Nil {
		return zero, pkgerrors.New(pkgerrors.CodeStateConflict, "no row is being edited")
	}
	if strings.TrimSpace(e.draft) == "" {
		return zero, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	out, err := e.rename(ctx, e.editing, e.draft)
	if err != nil {
		return zero, err
	}
	e.Cancel()
	return out, nil
}

// Cancel discards the draft without writing.
func (e *Editor[T]) Cancel() {
	e.editing = uuid.Nil
	e.draft = ""
}
