package core

import "errors"

var (
	ErrNotFound       = errors.New("drawing not found")
	ErrInvalidDrawing = errors.New("invalid drawing")
	ErrUnknownType    = errors.New("unknown drawing type")
	ErrEmptySource    = errors.New("empty source id")
)
