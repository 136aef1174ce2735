package core

import "errors"

// Error taxonomy shared by every layer. Storage maps driver errors onto
// ErrNotFound/ErrDatabase, the backup engine wraps file failures in ErrIO,
// and handlers translate whatever they receive into a status code. Callers
// match with errors.Is; context travels in the %w chain.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrDatabase      = errors.New("database error")
	ErrIO            = errors.New("io error")
	ErrInternal      = errors.New("internal error")
)
