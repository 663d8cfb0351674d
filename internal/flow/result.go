package flow

import (
	"errors"

	"payflow-backend/internal/models"
	"payflow-backend/internal/redirect"
)

// genericFailureMessage is the customer-safe message used when the gateway
// recorded no specific error.
const genericFailureMessage = "failed to complete payment"

// Interpret maps a processed authentication result onto the terminal flow
// result. A confirmed intent always wins: a cancel signal that raced a
// successful confirmation reads as completed. An explicit cancel comes next.
// Everything else is a failure, preferring the gateway's recorded error
// message over the generic one.
func Interpret(processed *redirect.ProcessedResult) models.Result {
	if processed == nil || processed.Intent == nil {
		return models.ResultFailed{Err: errors.New(genericFailureMessage)}
	}

	if processed.Intent.Confirmed() {
		return models.ResultCompleted{}
	}

	if processed.Outcome == redirect.OutcomeCanceled {
		return models.ResultCanceled{}
	}

	if lastErr := processed.Intent.LastError(); lastErr != nil && lastErr.Message != "" {
		return models.ResultFailed{Err: errors.New(lastErr.Message)}
	}

	return models.ResultFailed{Err: errors.New(genericFailureMessage)}
}
