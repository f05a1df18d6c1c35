package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Location is the bucket and key of an uploaded report.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseURI parses an s3://bucket/key URI.
func ParseURI(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid report uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return Location{}, fmt.Errorf("invalid report uri %q: scheme must be s3", uri)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return Location{}, fmt.Errorf("invalid report uri %q: expected s3://bucket/key", uri)
	}
	return Location{Bucket: u.Host, Key: key}, nil
}

// UploadReport encodes report as indented JSON and stores it at loc.
func (c *Client) UploadReport(ctx context.Context, loc Location, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.EnsureBucket(ctx, loc.Bucket); err != nil {
		return err
	}
	return c.PutObject(ctx, loc.Bucket, loc.Key, "application/json", data)
}
