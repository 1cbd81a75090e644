package sitecheck

import "errors"

// ErrInvalidInput is returned when a URL list or engine argument is rejected.
//
// Callers must fix the input and resubmit; nothing is polled when an input
// error is returned. Test with errors.Is, as the returned errors carry detail.
var ErrInvalidInput = errors.New("invalid input")
