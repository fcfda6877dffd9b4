package pool

import "errors"

// ErrInvalidWorkerBounds is returned by New/Builder.Build when
// Config.MaxWorkers is smaller than Config.MinWorkers.
var ErrInvalidWorkerBounds = errors.New("pool: max_workers is smaller than min_workers")
