package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

// Handle logs err with its goerr values and stack, and reports it to Sentry
// when a client is configured. The error is returned unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	capture(ctx, err, msg)
	return err
}

func capture(ctx context.Context, err error, msg string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)

		var ge *goerr.Error
		if errors.As(err, &ge) {
			values := sentry.Context{}
			for k, v := range ge.Values() {
				values[k] = fmt.Sprint(v)
			}
			scope.SetContext("values", values)
		}
	})

	if id := hub.CaptureException(err); id != nil {
		logging.From(ctx).Debug("reported error to sentry", "event_id", string(*id))
	}
}

// HandleHTTP logs err like Handle and writes a JSON error body with
// statusCode. Server errors never expose the underlying message.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	msg := err.Error()
	if statusCode >= http.StatusInternalServerError {
		_ = Handle(ctx, err, "HTTP error")
		msg = http.StatusText(statusCode)
	} else {
		logging.From(ctx).Warn("HTTP error", "status", statusCode, "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encErr := json.NewEncoder(w).Encode(map[string]string{"error": msg}); encErr != nil {
		logging.From(ctx).Error("failed to encode error response", "error", encErr)
	}
}
