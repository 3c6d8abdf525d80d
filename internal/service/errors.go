package service

import (
	"fmt"
	"time"

	"github.com/voucherly/voucher-service/internal/models"
)

// ErrorCode discriminates why a redemption was refused. Codes are stable and
// returned verbatim to clients.
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "voucher_not_found"
	CodeInactive           ErrorCode = "voucher_inactive"
	CodeNotStarted         ErrorCode = "voucher_not_started"
	CodeExpired            ErrorCode = "voucher_expired"
	CodeExhausted          ErrorCode = "voucher_exhausted"
	CodeBelowMinimum       ErrorCode = "below_min_order_amount"
	CodeAlreadyRedeemed    ErrorCode = "already_redeemed"
	CodeConcurrentConflict ErrorCode = "concurrent_conflict"
	CodePersistenceFailure ErrorCode = "persistence_failure"
)

// RedemptionError is the engine's error type. The optional fields carry the
// discriminating detail for the code that set them (window bound, minimum,
// prior redemption time).
type RedemptionError struct {
	Code           ErrorCode
	Message        string
	WindowStart    *time.Time
	WindowEnd      *time.Time
	MinOrderAmount int64
	RedeemedAt     *time.Time

	cause error
}

func (e *RedemptionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RedemptionError) Unwrap() error { return e.cause }

func errNotFound(code string) *RedemptionError {
	return &RedemptionError{Code: CodeNotFound, Message: fmt.Sprintf("voucher %q not found", code)}
}

func errInactive() *RedemptionError {
	return &RedemptionError{Code: CodeInactive, Message: "voucher is not active"}
}

func errNotStarted(start time.Time) *RedemptionError {
	return &RedemptionError{
		Code:        CodeNotStarted,
		Message:     "voucher validity window has not started",
		WindowStart: &start,
	}
}

func errExpired(end time.Time) *RedemptionError {
	return &RedemptionError{
		Code:      CodeExpired,
		Message:   "voucher validity window has ended",
		WindowEnd: &end,
	}
}

func errExhausted() *RedemptionError {
	return &RedemptionError{Code: CodeExhausted, Message: "voucher redemption limit reached"}
}

func errBelowMinimum(min int64) *RedemptionError {
	return &RedemptionError{
		Code:           CodeBelowMinimum,
		Message:        "order amount is below the voucher minimum",
		MinOrderAmount: min,
	}
}

func errAlreadyRedeemed(prior *models.Redemption) *RedemptionError {
	e := &RedemptionError{Code: CodeAlreadyRedeemed, Message: "voucher already redeemed by this user"}
	if prior != nil {
		t := prior.RedeemedAt
		e.RedeemedAt = &t
	}
	return e
}

func errConcurrentConflict(attempts int) *RedemptionError {
	return &RedemptionError{
		Code:    CodeConcurrentConflict,
		Message: fmt.Sprintf("redemption conflicted %d times, request may be retried", attempts),
	}
}

func errPersistence(op string, cause error) *RedemptionError {
	return &RedemptionError{
		Code:    CodePersistenceFailure,
		Message: op,
		cause:   cause,
	}
}
