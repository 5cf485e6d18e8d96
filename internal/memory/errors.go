package memory

import "errors"

// Sentinel errors for the memory network. Callers match with errors.Is;
// wrapped messages carry the offending id or parameter.
var (
	ErrDuplicateID      = errors.New("duplicate id")
	ErrNotFound         = errors.New("not found")
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownCategory  = errors.New("unknown category")
)
