// Package reconcile implements the fleet convergence engine.
//
// The [Engine] turns one validated [config.Params] value into calls against a
// [fleet.API]. It is composed of small components, leaves first:
//
//   - [Query] reads instances through a filter
//   - [AttributeReconciler] corrects safety attributes
//   - [Provisioner] creates on-demand or spot instances idempotently
//   - [SpotWaiter] waits for spot requests to resolve into instances
//   - [StateWaiter] polls instance ids until they reach a lifecycle state
//   - [Terminator] and [Lifecycle] handle absent, running, stopped, restarted
//   - [CountReconciler] drives exact fleet size mode
//
// Every component is single-threaded. Waits are sleep-and-repoll loops over a
// [poll.Clock] bounded by a wall-clock deadline, and the context passed to
// the engine cancels any sleep in progress. Nothing is rolled back: instances
// created or terminated before a failure stay that way.
package reconcile
