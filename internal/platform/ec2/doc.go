// Package ec2 implements fleet.API on top of Amazon EC2 using aws-sdk-go-v2.
//
// Filters are pushed to DescribeInstances: tag equality as tag:<key>,
// existence as tag-key, plus instance-state-name, availability-zone and
// client-token. Reservations are flattened into a single instance list.
//
// Provider error codes are classified into fleet.APIError codes:
//
//   - InvalidInstanceID.NotFound: fleet.CodeInstanceNotFound
//   - InvalidInstanceID (raised for instances with several interfaces when
//     changing sourceDestCheck): fleet.CodeMultipleInterfaces
//   - UnsupportedOperation: fleet.CodeUnsupported
package ec2
