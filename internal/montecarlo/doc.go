// Package montecarlo estimates π by sampling points in the unit square across
// parallel workers and counting how many fall inside the quarter circle.
//
// A Run owns its Counters for its whole lifetime. Workers publish into them
// once per batch; a progress reporter may poll Run.Snapshot concurrently and
// stops when Run.Done is closed.
package montecarlo
