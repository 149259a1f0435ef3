package core

import "errors"

// ErrUnknownTask is returned when a Handle names no task the pool has ever
// seen, one whose result has already been consumed and whose node has left
// the graph, or one removed by
// CancelTask/CancelAll — cancellation is reported the same way as an
// unrecognized handle, since both mean "nothing left to observe here".
var ErrUnknownTask = errors.New("core: unknown task handle")
