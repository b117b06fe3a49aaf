package supervisor

import "errors"

// ErrSpawnFailure is wrapped around any pipe or process-creation error
// encountered while launching the worker pool.
var ErrSpawnFailure = errors.New("supervisor: failed to spawn worker")
