// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] executes independent operations concurrently and returns the
// first error. [RunBounded] runs at most N tasks at a time and reports every
// task's error separately, which the fleet upgrade uses to keep one tenant's
// failure from affecting its siblings.
package async
