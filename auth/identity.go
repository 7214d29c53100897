package auth

import (
	"context"
	"fmt"
	"time"

	"social-chat/contract"
	"social-chat/errors"
)

type verification struct {
	principal contract.Principal
	err       error
}

// VerifyWithTimeout asks the provider for the principal behind token and fails closed:
// a provider that does not answer within timeout, or a cancelled context, yields ErrForbidden.
// A zero timeout only honors ctx.
func VerifyWithTimeout(ctx context.Context, provider contract.IdentityProvider, token string, timeout time.Duration) (contract.Principal, error) {
	if token == "" {
		return contract.Principal{}, fmt.Errorf("%w: missing token", errors.ErrUnauthenticated)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan verification, 1)
	go func() {
		principal, err := provider.VerifyToken(ctx, token)
		done <- verification{principal: principal, err: err}
	}()

	select {
	case <-ctx.Done():
		return contract.Principal{}, fmt.Errorf("%w: identity verification aborted: %v", errors.ErrForbidden, ctx.Err())
	case result := <-done:
		switch {
		case result.err == nil:
			return result.principal, nil
		case errors.Is(result.err, context.DeadlineExceeded), errors.Is(result.err, context.Canceled):
			return contract.Principal{}, fmt.Errorf("%w: identity verification aborted: %v", errors.ErrForbidden, result.err)
		case errors.Is(result.err, errors.ErrUnauthenticated), errors.Is(result.err, errors.ErrForbidden):
			return contract.Principal{}, result.err
		default:
			return contract.Principal{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, result.err)
		}
	}
}
