// Package hcloud implements fleet.API on top of the Hetzner Cloud API.
//
// # Mapping
//
// Servers are instances and labels are tags. The engine concepts that Hetzner
// has no native form for are mapped as follows:
//
//   - The idempotency token is stored in the label fleetctl.io/client-token
//     and hidden from the reported tags.
//   - Termination protection is the server delete (and rebuild) protection.
//   - Security groups are firewalls, looked up by name or id.
//   - vpc_subnet_id names a network the server is attached to.
//
// Deleted servers disappear from the API immediately. The client remembers
// the servers it deleted and keeps reporting them in state terminated, so
// waits on termination converge.
//
// Spot capacity, instance profiles and source/destination checking do not
// exist on Hetzner; the corresponding calls fail with fleet.CodeUnsupported
// and Capabilities reports them as absent.
//
// # Error Handling
//
// hcloud API errors are classified into fleet.APIError codes:
//
//   - not_found: fleet.CodeInstanceNotFound
//   - locked, conflict, resource_unavailable: retried with exponential backoff
//   - invalid_input, invalid_server_type: returned without retrying
package hcloud
