// Package s3 uploads run reports to S3 or an S3-compatible object store.
//
// Reports are addressed with s3://bucket/key URIs. The bucket is created on
// first use when it does not exist yet.
package s3
