// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max
// attempts, initial delay, maximum delay and a retry predicate. Sleeping goes
// through a [poll.Clock] so callers can drive the loop from a fake clock. It
// backs the instance existence poll after a launch and the provider adapters'
// handling of locked resources.
package retry
