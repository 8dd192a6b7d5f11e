// Package errors defines the failure taxonomy shared across the decryption
// engine. Callers branch on these sentinels with errors.Is to decide whether
// to prompt for a passphrase, report tampering, or give up on a scheme.
package errors

import (
	"errors"
)

var (
	// ErrMalformedInput indicates structurally invalid input: ciphertext
	// shorter than one IV, a ciphertext body that is not a whole number of
	// blocks, or a license artifact missing a required field.
	ErrMalformedInput = errors.New("malformed input")

	// ErrIntegrityFailure indicates a padding or key-length check failed
	// after decryption. This is the "wrong passphrase or tampered data"
	// signal and is never retried internally.
	ErrIntegrityFailure = errors.New("integrity check failed")

	// ErrUnsupportedScheme indicates the resource is protected by a
	// proprietary scheme this engine recognizes but cannot decrypt.
	ErrUnsupportedScheme = errors.New("unsupported protection scheme")

	// ErrCredentialsRequired indicates a license-encrypted resource was
	// requested before any passphrase was supplied.
	ErrCredentialsRequired = errors.New("credentials required")
)
