package models

import "errors"

var (
	// ErrNoRecord is returned when a lookup matches nothing.
	ErrNoRecord = errors.New("models: no matching record found")

	// ErrInvalidCredentials is returned by Authenticate when either the
	// identifier or the password is wrong. Callers must not distinguish.
	ErrInvalidCredentials = errors.New("models: invalid credentials")

	// ErrDuplicateUser is returned when the email or phone is taken.
	ErrDuplicateUser = errors.New("models: user already exists")
)
