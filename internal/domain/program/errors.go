package program

import "errors"

var (
	ErrNotFound = errors.New("program not found")
	ErrInactive = errors.New("program is not active")
)
