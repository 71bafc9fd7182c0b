// Package storage manages the object-storage side of a test session: one
// S3 client handle, optionally backed by an in-process fake, and the
// teardown of the session bucket when the suite is done.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/rikigigi/aiida-s3/config"
)

// Session owns the S3 client for one test-suite run. It is opened once,
// borrowed by consumers for the duration of the run, and closed once at the
// end. Consumers never close or recreate the client themselves, and any
// bucket they create beyond the session bucket is theirs to clean up.
type Session struct {
	cfg     *config.Config
	backend Backend
	client  *s3.S3
}

// Open constructs the backend selected by cfg.MockMode and an S3 client
// bound to cfg's credentials and region.
func Open(cfg *config.Config) (*Session, error) {
	var backend Backend
	if cfg.MockMode {
		backend = newFakeBackend()
	} else {
		backend = &realBackend{endpoint: cfg.Endpoint}
	}

	awsCfg := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if endpoint := backend.Endpoint(); endpoint != "" {
		awsCfg.Endpoint = aws.String(endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	slog.Debug("storage session opened", "bucket", cfg.BucketName, "mock", cfg.MockMode)

	return &Session{cfg: cfg, backend: backend, client: s3.New(sess)}, nil
}

// Client returns the session's S3 handle.
func (s *Session) Client() *s3.S3 { return s.client }

// Bucket returns the name of the session bucket.
func (s *Session) Bucket() string { return s.cfg.BucketName }

// EnsureBucket creates the session bucket. A bucket that already exists is
// not an error.
func (s *Session) EnsureBucket() error {
	_, err := s.client.CreateBucket(&s3.CreateBucketInput{
		Bucket: aws.String(s.cfg.BucketName),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeBucketAlreadyOwnedByYou, s3.ErrCodeBucketAlreadyExists:
				return nil
			}
		}
		return fmt.Errorf("create bucket %s: %w", s.cfg.BucketName, err)
	}
	return nil
}

// Keys lists the object keys in the session bucket under prefix. An empty
// prefix lists the whole bucket.
func (s *Session) Keys(prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.BucketName),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	err := s.client.ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, item := range page.Contents {
			keys = append(keys, *item.Key)
		}
		return true
	})
	return keys, err
}

// SeedDir uploads every regular file below dir as an object in the session
// bucket. The key is the slash-normalized path of the file relative to dir,
// joined under prefix when one is given.
func (s *Session) SeedDir(dir, prefix string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" {
			key = path.Join(prefix, key)
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := s.client.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(s.cfg.BucketName),
			Key:    aws.String(key),
			Body:   f,
		}); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		return nil
	})
}

// Close tears the session bucket down and releases the backend. It is safe
// against a bucket that was never created: a failed existence probe ends
// teardown silently. Failures past the probe propagate, since a cleanup
// that half-ran is a genuine defect the test runner should see.
func (s *Session) Close() error {
	defer s.backend.Close()
	return s.teardown()
}

func (s *Session) teardown() error {
	bucket := aws.String(s.cfg.BucketName)

	// Any probe failure, not just NotFound, means there is nothing for us
	// to clean up. This keeps teardown idempotent.
	if _, err := s.client.HeadBucket(&s3.HeadBucketInput{Bucket: bucket}); err != nil {
		slog.Debug("bucket probe failed, skipping teardown", "bucket", s.cfg.BucketName, "err", err)
		return nil
	}

	keys, err := s.Keys("")
	if err != nil {
		return fmt.Errorf("list objects in %s: %w", s.cfg.BucketName, err)
	}

	if len(keys) > 0 {
		objects := make([]*s3.ObjectIdentifier, len(keys))
		for i, key := range keys {
			objects[i] = &s3.ObjectIdentifier{Key: aws.String(key)}
		}
		if _, err := s.client.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: bucket,
			Delete: &s3.Delete{Objects: objects},
		}); err != nil {
			return fmt.Errorf("delete %d objects from %s: %w", len(keys), s.cfg.BucketName, err)
		}
	}

	if _, err := s.client.DeleteBucket(&s3.DeleteBucketInput{Bucket: bucket}); err != nil {
		return fmt.Errorf("delete bucket %s: %w", s.cfg.BucketName, err)
	}

	slog.Debug("session bucket removed", "bucket", s.cfg.BucketName, "objects", len(keys))
	return nil
}
