package store

import "errors"

// ErrIDExhausted means the id generator kept returning ids already in use.
var ErrIDExhausted = errors.New("could not generate a unique expense id")
