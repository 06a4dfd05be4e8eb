package domain

import "errors"

// Faults. Expected negative verification outcomes are VerifyStatus values,
// never errors.
var (
	ErrKeyLoad        = errors.New("key material unavailable")
	ErrInvalidFlavour = errors.New("invalid receipt flavour")
	ErrNotFound       = errors.New("not found")
	ErrSigning        = errors.New("receipt signing failed")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Token decoding failures. They never leave the verifier as errors; they
// explain why a token was classified invalid.
var (
	ErrTokenMalformed   = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrKeyUnknown       = errors.New("key unknown")
	ErrClaimsInvalid    = errors.New("claims invalid")
)
