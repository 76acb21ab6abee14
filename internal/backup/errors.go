package backup

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFileRead is wrapped by ImportFile when the backup file cannot be read.
var ErrFileRead = errors.New("backup file read failed")

// ValidationError reports a document rejected before import.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid backup document: %s", e.Problems[0])
	}
	return fmt.Sprintf("invalid backup document: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
