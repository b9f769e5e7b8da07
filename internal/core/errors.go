package core

import "errors"

var (
	// ErrAuthentication covers wrong password, wrong device and tampering alike
	ErrAuthentication   = errors.New("could not unlock - check your password")
	ErrNotFound         = errors.New("wallet not found")
	ErrAlreadyExists    = errors.New("wallet already exists")
	ErrPasswordRequired = errors.New("password required")
	ErrInvalidName      = errors.New("invalid wallet name")
	ErrInvalidSecret    = errors.New("decrypted secret is invalid")
)
