package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/collector/internal/store"
)

// Outcome classifies what happened to one imported row.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// upserter writes one row at a time inside the import transaction.
type upserter struct {
	normalizer *Normalizer
	logger     *slog.Logger
}

// apply creates or updates the card identified by the row's natural key.
//
// A skipped row comes back as OutcomeSkipped with a *RowError. Any other
// non-nil error leaves the transaction in an unknown state and must abort
// the import.
func (u *upserter) apply(ctx context.Context, tx store.Tx, row Row) (Outcome, error) {
	setID, hasSet := row.Lookup(aliasSetID...)
	number, hasNumber := row.Lookup(aliasNumber...)
	if !hasSet || !hasNumber {
		return OutcomeSkipped, &RowError{Row: row.Index, Msg: msgMissingKey}
	}

	card, err := tx.FindCardByKey(ctx, setID, number)
	isNew := errors.Is(err, store.ErrNotFound)
	if err != nil && !isNew {
		return 0, fmt.Errorf("find card %s/%s: %w", setID, number, err)
	}
	if isNew {
		if _, ok := row.Lookup(aliasName...); !ok {
			return OutcomeSkipped, &RowError{Row: row.Index, Msg: msgMissingName}
		}
		card = store.Card{SetID: setID, Number: number}
	}

	u.normalizer.Patch(ctx, row, setID, number).Apply(&card)

	sp := fmt.Sprintf("sp_%d", row.Index)
	if err := tx.Savepoint(ctx, sp); err != nil {
		return 0, err
	}
	if isNew {
		err = tx.InsertCard(ctx, &card)
	} else {
		err = tx.SaveCard(ctx, &card)
	}
	if err != nil {
		if !store.IsIntegrityViolation(err) {
			return 0, fmt.Errorf("save card %s/%s: %w", setID, number, err)
		}
		if rbErr := tx.RollbackTo(ctx, sp); rbErr != nil {
			return 0, fmt.Errorf("rollback row %d: %w", row.Index, rbErr)
		}
		if relErr := tx.Release(ctx, sp); relErr != nil {
			return 0, fmt.Errorf("release row %d: %w", row.Index, relErr)
		}
		u.logger.Debug("row rejected by store",
			"row", row.Index,
			"set_id", setID,
			"number", number,
			"error", err,
		)
		return OutcomeSkipped, &RowError{Row: row.Index, Msg: err.Error(), Err: err}
	}
	if err := tx.Release(ctx, sp); err != nil {
		return 0, err
	}

	if isNew {
		return OutcomeCreated, nil
	}
	return OutcomeUpdated, nil
}
