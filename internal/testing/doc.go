// Package testing provides test utilities, mocks, and fixtures shared by the
// engine, adapter and CLI tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - MockFleetAPI: testify mock of fleet.API
//   - FakeClock: poll.Clock whose sleeps advance virtual time instantly
//   - InstanceBuilder: fluent builder for fleet.Instance values
//
// Usage:
//
//	api := testutil.NewMockFleetAPI()
//	api.On("ListInstances", mock.Anything, mock.Anything).Return(
//	    []fleet.Instance{testutil.NewInstance("i-1").Running().Build()}, nil)
//
//	clock := testutil.NewFakeClock()
package testing
