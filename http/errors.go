package http

import "errors"

var (
	ErrMalformedOrTooLarge = errors.New("http: malformed or too large request")
	ErrResponseTooLarge    = errors.New("http: response header block too large")
	ErrAmbiguousBody       = errors.New("http: response has both an in-memory and a file body")
	ErrFileShrunk          = errors.New("http: file shorter than declared length")
	ErrInvalidRange        = errors.New("http: invalid range")
	ErrAlreadyResponded    = errors.New("http: response already sent")
)
