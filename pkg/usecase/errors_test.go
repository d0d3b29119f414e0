package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		usecase.ErrValidation,
		usecase.ErrPermissionDenied,
		usecase.ErrRiskNotFound,
		usecase.ErrTreatmentNotFound,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			gt.Value(t, errors.Is(a, b)).Equal(i == j)
		}
	}
}

func TestFieldOf(t *testing.T) {
	t.Run("wrapped validation error keeps field", func(t *testing.T) {
		err := goerr.Wrap(usecase.ErrValidation, "probability out of range", goerr.V(usecase.FieldKey, "probability"))
		err = goerr.Wrap(err, "failed to create risk", goerr.V(usecase.RiskIDKey, int64(3)))

		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
		gt.Value(t, usecase.FieldOf(err)).Equal("probability")
	})

	t.Run("plain error has no field", func(t *testing.T) {
		gt.Value(t, usecase.FieldOf(errors.New("plain"))).Equal("")
	})
}
