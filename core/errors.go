package core

import "errors"

var (
	// ErrInvalidDevice means the code is not in the provisioned fleet.
	ErrInvalidDevice = errors.New("invalid device code")

	// ErrDeviceTaken means the device is already bound to an active account.
	ErrDeviceTaken = errors.New("device already in use")

	// ErrDuplicateAccount means the username or email is already registered.
	ErrDuplicateAccount = errors.New("username or email already registered")

	// ErrDeviceConflict means a dormant account's device was claimed by
	// someone else while the account was deactivated.
	ErrDeviceConflict = errors.New("device in use by another account")

	// ErrUnknownDevice means no account is bound to the code.
	ErrUnknownDevice = errors.New("device not registered")

	// ErrAccountInactive means the account is deactivated or deleted.
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrOutOfRange means the BPM value is outside the physiological range.
	ErrOutOfRange = errors.New("bpm out of valid range")

	// ErrUnauthorized means the actor lacks the required role relationship.
	ErrUnauthorized = errors.New("not authorized")

	// ErrIntegrityViolation means persisted state encodes an impossible
	// combination (active and deleted at once). Never repaired silently.
	ErrIntegrityViolation = errors.New("account state integrity violation")
)
