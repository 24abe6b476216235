package area

import "errors"

var (
	ErrAreaNotFound = errors.New("attendance area not found")
)
