// Package biometric defines the platform biometric collaborator consumed by
// the gatekeeper. The platform side owns attempt counting and lockout timing;
// this package only names the outcomes the gatekeeper must distinguish.
package biometric

import (
	"context"
	"errors"
)

var (
	// ErrRejected means the user failed or dismissed the prompt.
	ErrRejected = errors.New("biometric rejected")

	// ErrLockout means the platform refuses further attempts for now.
	ErrLockout = errors.New("biometric lockout")
)

// Verifier prompts the user for a biometric check. A nil error means the
// check succeeded; ErrLockout and ErrRejected are the recognized failures,
// anything else is treated as a rejection.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Unavailable is a Verifier for platforms without biometrics; every
// verification is rejected.
type Unavailable struct{}

func (Unavailable) Verify(context.Context) error { return ErrRejected }
