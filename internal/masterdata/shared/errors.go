package shared

import (
	"fmt"

	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var (
	ErrNotFound      = fmt.Errorf("resource %w", internalShared.ErrNotFound)
	ErrDuplicate     = fmt.Errorf("duplicate entry: %w", internalShared.ErrConflict)
	ErrInUse         = fmt.Errorf("resource still referenced: %w", internalShared.ErrConflict)
	ErrInvalidID     = fmt.Errorf("invalid ID: %w", internalShared.ErrValidation)
	ErrRequiredField = fmt.Errorf("field is required: %w", internalShared.ErrValidation)
)

// TranslateWriteError maps constraint failures raised by postgres onto catalog errors.
func TranslateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case internalShared.IsUniqueViolation(err):
		return ErrDuplicate
	case internalShared.IsForeignKeyViolation(err):
		return ErrInUse
	default:
		return err
	}
}
