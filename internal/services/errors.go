package services

import "errors"

// ErrInvalidInput marks caller mistakes that map to 400 responses.
var ErrInvalidInput = errors.New("invalid input")
