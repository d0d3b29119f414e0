package usecase

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors for use case layer
var (
	// ErrValidation marks rejected input; the offending field is attached as FieldKey
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied is returned before any existence check
	ErrPermissionDenied = errors.New("permission denied")

	// Not found errors
	ErrRiskNotFound      = errors.New("risk not found")
	ErrTreatmentNotFound = errors.New("treatment not found")
)

// Context keys for error values
const (
	FieldKey       = "field"
	RiskIDKey      = "risk_id"
	TreatmentIDKey = "treatment_id"
	WorkspaceIDKey = "workspace_id"
	OperationKey   = "operation"
)

func validationError(field, format string, args ...any) error {
	return goerr.Wrap(ErrValidation, fmt.Sprintf(format, args...), goerr.V(FieldKey, field))
}

// FieldOf returns the field name carried by a validation error, or "" if none
func FieldOf(err error) string {
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return ""
	}
	if field, ok := ge.Values()[FieldKey].(string); ok {
		return field
	}
	return ""
}
