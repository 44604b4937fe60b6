package domain

import "errors"

var (
	ErrShortRow       = errors.New("catalog row has too few fields")
	ErrUnexpectedCode = errors.New("unexpected http status")
	ErrNoPageImage    = errors.New("page declares no image")
)
