package deflator

import "errors"

// Error kinds the deflator can report. Once set, the engine moves to its
// terminal state and makes no further progress until Reset is called.
var (
	ErrBadState     = errors.New("deflator: engine is in its terminal error state")
	ErrOutOfMemory  = errors.New("deflator: allocation failed")
	ErrLevel        = errors.New("deflator: compression level out of range")
	ErrIncorrectUse = errors.New("deflator: call made out of the required order")
)
