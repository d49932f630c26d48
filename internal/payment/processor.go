// Package payment defines the boundary to the payment provider.  The
// booking service only needs a yes/no answer and a provider reference, so
// the interface stays that small; MockProcessor stands in until a real
// gateway is wired.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Result is the outcome of one charge attempt.
type Result struct {
	OK        bool
	Reference string
}

// Processor charges amount (smallest currency unit) using method.  A
// declined charge is reported as Result{OK: false} with a nil error; the
// error return is reserved for failing to reach the provider.
type Processor interface {
	Attempt(ctx context.Context, method string, amount int64) (Result, error)
}

// MethodTestFail always declines.  Used by QA to exercise the declined path.
const MethodTestFail = "test_fail"

// KnownMethods lists the payment methods the storefront offers.
var KnownMethods = []string{"creditcard", "debitcard", "banking", "momo", "vnpay", "zalopay", "cash"}

// ErrInvalidAmount is returned for non-positive charges.
var ErrInvalidAmount = errors.New("payment: amount must be positive")

// MockProcessor accepts every charge except MethodTestFail.  With Strict
// set, methods outside KnownMethods are declined too.
type MockProcessor struct {
	Strict bool
}

// NewMockProcessor returns a MockProcessor.
func NewMockProcessor(strict bool) *MockProcessor {
	return &MockProcessor{Strict: strict}
}

// Attempt implements Processor.
func (p *MockProcessor) Attempt(ctx context.Context, method string, amount int64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if method == MethodTestFail {
		return Result{OK: false}, nil
	}
	if p.Strict && !IsKnownMethod(method) {
		return Result{OK: false}, nil
	}
	return Result{OK: true, Reference: "PAY-" + uuid.NewString()}, nil
}

// IsKnownMethod reports whether method is one of KnownMethods.
func IsKnownMethod(method string) bool {
	method = strings.ToLower(strings.TrimSpace(method))
	for _, m := range KnownMethods {
		if m == method {
			return true
		}
	}
	return false
}
