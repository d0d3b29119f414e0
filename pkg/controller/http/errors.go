package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/errutil"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// handleError maps use case sentinels to HTTP statuses. Anything unknown is
// a server error and goes through errutil.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		logging.From(ctx).Warn("invalid request", "error", err.Error())
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Field: usecase.FieldOf(err),
		})

	case errors.Is(err, usecase.ErrPermissionDenied):
		logging.From(ctx).Warn("permission denied", "error", err.Error())
		writeJSON(ctx, w, http.StatusForbidden, errorResponse{Error: usecase.ErrPermissionDenied.Error()})

	case errors.Is(err, usecase.ErrRiskNotFound):
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: usecase.ErrRiskNotFound.Error()})

	case errors.Is(err, usecase.ErrTreatmentNotFound):
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: usecase.ErrTreatmentNotFound.Error()})

	default:
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
	}
}

// badRequest builds a validation error for input rejected before it
// reaches a use case
func badRequest(field, msg string) error {
	return goerr.Wrap(usecase.ErrValidation, msg, goerr.V(usecase.FieldKey, field))
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}
