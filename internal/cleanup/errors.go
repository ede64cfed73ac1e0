package cleanup

import (
	"errors"

	"github.com/pysugar/drivesweep/internal/db"
)

var (
	// ErrNotFound means the user or file is absent locally.
	ErrNotFound = db.ErrNotFound
	// ErrValidation marks malformed input, rejected before any remote or store call.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated means the request carried no usable session.
	ErrUnauthenticated = errors.New("unauthenticated")
)
