// Package fileaccess reads and writes whole files on the local file system
// or in S3. Locations are plain paths or s3://bucket/key URLs.
package fileaccess

import (
	"strings"

	"github.com/pkg/errors"
)

// S3Scheme prefixes locations stored in S3
const S3Scheme = "s3://"

// ErrInvalidLocation is returned for malformed s3:// locations
var ErrInvalidLocation = errors.New("invalid location")

// FileAccess reads and writes objects. For local access the bucket is a
// directory the path is relative to; it may be empty.
type FileAccess interface {
	ReadObject(bucket string, path string) ([]byte, error)
	WriteObject(bucket string, path string, data []byte) error
	IsNotFoundError(err error) bool
}

// ParseLocation splits an s3://bucket/key location. Plain paths are
// returned unchanged with an empty bucket and isS3 false.
func ParseLocation(location string) (bucket string, key string, isS3 bool, err error) {
	if !strings.HasPrefix(location, S3Scheme) {
		return "", location, false, nil
	}

	rest := strings.TrimPrefix(location, S3Scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", true, errors.Wrapf(ErrInvalidLocation, "%q must be s3://bucket/key", location)
	}
	return bucket, key, true, nil
}

// Router dispatches locations to the local file system or S3
type Router struct {
	Local FileAccess

	// S3 is used for s3:// locations. When nil, NewS3 is called on first use.
	S3    FileAccess
	NewS3 func() (FileAccess, error)
}

// NewRouter creates a router over the local file system that connects to S3
// in region on demand
func NewRouter(region string) *Router {
	return &Router{
		Local: FSAccess{},
		NewS3: func() (FileAccess, error) {
			s3Access, err := NewS3AccessForRegion(region)
			if err != nil {
				return nil, err
			}
			return s3Access, nil
		},
	}
}

// Read returns the contents of location
func (r *Router) Read(location string) ([]byte, error) {
	fa, bucket, key, err := r.resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := fa.ReadObject(bucket, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", location)
	}
	return data, nil
}

// Write stores data at location, replacing any existing object
func (r *Router) Write(location string, data []byte) error {
	fa, bucket, key, err := r.resolve(location)
	if err != nil {
		return err
	}
	if err := fa.WriteObject(bucket, key, data); err != nil {
		return errors.Wrapf(err, "failed to write %s", location)
	}
	return nil
}

func (r *Router) resolve(location string) (FileAccess, string, string, error) {
	bucket, key, isS3, err := ParseLocation(location)
	if err != nil {
		return nil, "", "", err
	}
	if !isS3 {
		return r.Local, bucket, key, nil
	}

	if r.S3 == nil {
		if r.NewS3 == nil {
			return nil, "", "", errors.Wrapf(ErrInvalidLocation, "no S3 access configured for %s", location)
		}
		s3Access, err := r.NewS3()
		if err != nil {
			return nil, "", "", errors.Wrap(err, "failed to create S3 session")
		}
		r.S3 = s3Access
	}
	return r.S3, bucket, key, nil
}
