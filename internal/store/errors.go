package store

import (
	"errors"
	"fmt"
)

// TxError reports a failed or aborted profile store transaction. Nothing
// the transaction wrote is visible after a TxError.
type TxError struct {
	// Op is the store operation ("put items", "delete recipe").
	Op string

	// Recipe is the recipe the operation targeted.
	Recipe string

	// Stage is where the transaction failed: begin, delete, prepare,
	// insert or commit.
	Stage string

	Err error
}

// Error implements the error interface.
func (e *TxError) Error() string {
	return fmt.Sprintf("%s %q: %s: %v", e.Op, e.Recipe, e.Stage, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

func newTxError(op, recipeName, stage string, err error) *TxError {
	return &TxError{Op: op, Recipe: recipeName, Stage: stage, Err: err}
}

// IsTxError returns true if err is or wraps a *TxError.
func IsTxError(err error) bool {
	var te *TxError
	return errors.As(err, &te)
}
