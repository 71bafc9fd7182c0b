package storage

import (
	"net/http/httptest"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// Backend decides where a session's S3 traffic goes: a genuine service or
// an in-process fake. It is selected once, when the session opens.
type Backend interface {
	// Endpoint returns the URL the S3 client should talk to. Empty means
	// the SDK default for the configured region.
	Endpoint() string

	// Close releases whatever the backend holds. Called exactly once,
	// after bucket teardown.
	Close() error
}

// fakeBackend serves an in-memory S3 implementation over a local HTTP
// server, so the genuine SDK client can be pointed at it and no call ever
// leaves the process.
type fakeBackend struct {
	server *httptest.Server
}

func newFakeBackend() *fakeBackend {
	faker := gofakes3.New(s3mem.New())
	return &fakeBackend{server: httptest.NewServer(faker.Server())}
}

func (b *fakeBackend) Endpoint() string { return b.server.URL }

func (b *fakeBackend) Close() error {
	b.server.Close()
	return nil
}

// realBackend is the no-op strategy: calls go to the genuine service, or to
// an S3-compatible endpoint the configuration names (MinIO, B2).
type realBackend struct {
	endpoint string
}

func (b *realBackend) Endpoint() string { return b.endpoint }

func (b *realBackend) Close() error { return nil }
