package storage

import "errors"

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrEmptyKey      = errors.New("storage: empty key")
	ErrCorruptFile   = errors.New("storage: file is not a valid storage document")
	ErrUnknownDriver = errors.New("storage: unknown driver")
)
