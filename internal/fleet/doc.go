// Package fleet defines the provider-agnostic data model and the Fleet API
// consumed by the reconciliation engine.
//
// The engine in internal/reconcile never talks to a cloud SDK directly. It
// calls the [API] interface, which is implemented by the adapters under
// internal/platform (EC2, Hetzner Cloud and an in-memory simulator). Adapters
// translate provider objects into [Instance] and [SpotRequest] values and
// classify provider failures into [APIError] codes, so the engine can tell a
// transient condition from a terminal one without inspecting error text.
//
// # Tag filters
//
// A [TagFilter] is a tagged variant with three shapes:
//
//   - [Exists]: a single tag key must be present
//   - [ExistsAny]: at least one of several tag keys must be present
//   - [Equals]: every listed key must carry the given value
//
// [ParseTagFilter] converts the loosely typed configuration value (a bare
// string, a list, a mapping, or a string literal of either) into a TagFilter
// once at the boundary.
//
// # Errors
//
// Engine failures are reported as [*Error] with a [Kind] (validation,
// capability, provisioning, termination, attribute, spot request, state
// change, timeout). Provider failures are reported by adapters as
// [*APIError] carrying a normalized [ErrorCode] and the raw provider code.
package fleet
