package models

import "errors"

// Sentinel errors shared by repositories and services. Handlers translate
// these into HTTP status codes; anything else is reported as a storage error.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenUsed        = errors.New("token already used")
	ErrTokenExpired     = errors.New("token expired")
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrTokenExists signals a token value collision on insert. Only
	// realistic for 4-char pairing codes, where the issuer redraws.
	ErrTokenExists = errors.New("token already exists")

	ErrInvalidPurchase = errors.New("invalid purchase payload")

	// ErrBalanceConflict means the conditional credits write lost a race:
	// the balance changed between the caller's read and the apply. Retryable.
	ErrBalanceConflict = errors.New("balance changed concurrently")

	// ErrIDExhausted means account id generation hit the collision retry
	// bound. Fatal for the request; must never fall back to a duplicate id.
	ErrIDExhausted = errors.New("unable to allocate account identifier")

	ErrInvalidAddress = errors.New("invalid device address")
	ErrInvalidEmail   = errors.New("invalid email address")
)
