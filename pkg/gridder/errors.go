package gridder

import "errors"

// Failure kinds surfaced by the pipeline. Callers match with errors.Is; the
// wrapped messages carry the actionable detail.
var (
	// ErrInput marks malformed or empty observation data.
	ErrInput = errors.New("input error")

	// ErrConfig marks an invalid solver or output configuration, detected
	// before any computation begins.
	ErrConfig = errors.New("configuration error")

	// ErrSingular marks a singular (or numerically singular) linear system.
	// It is never retried automatically; the remedy is to deduplicate the
	// observations or switch to the regularized solver.
	ErrSingular = errors.New("singular system")

	// ErrResource marks a refusal to allocate a matrix beyond the configured
	// memory ceiling.
	ErrResource = errors.New("resource limit")
)
