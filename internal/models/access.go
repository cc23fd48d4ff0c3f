package models

// AccessState is the read-only snapshot of the gatekeeper exposed to
// consuming layers. The gatekeeper service is its single source of truth.
type AccessState struct {
	// Open reports whether an unlocked session is active.
	Open bool

	// HasCode reports whether an access code has been set.
	HasCode bool

	// BiometricEnabled reports whether biometric unlock is allowed.
	// Only meaningful when HasCode is true.
	BiometricEnabled bool

	// WelcomeAcknowledged is set once the user dismissed onboarding.
	WelcomeAcknowledged bool

	// LegacyMigrationAvailable reports whether a one-shot import from the
	// legacy storage format is still offered.
	LegacyMigrationAvailable bool
}
