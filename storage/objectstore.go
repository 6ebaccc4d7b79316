// Package storage is the object-storage collaborator used for uploaded check
// images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ObjectStore uploads files and resolves their public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader) error
	PublicURL(path string) string
}

var _ ObjectStore = (*NATSObjectStore)(nil)

// NATSObjectStore keeps uploads in a JetStream object-store bucket. Public
// URLs are served by the gateway that fronts the bucket.
type NATSObjectStore struct {
	bucket  nats.ObjectStore
	baseURL string
	logger  *zap.Logger
}

// NewNATSObjectStore binds to the named bucket, creating it if it does not
// exist yet.
func NewNATSObjectStore(nc *nats.Conn, bucket, publicBaseURL string, logger *zap.Logger) (*NATSObjectStore, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get jetstream context: %w", err)
	}

	store, err := js.ObjectStore(bucket)
	if errors.Is(err, nats.ErrStreamNotFound) {
		store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{Bucket: bucket})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object store bucket %s: %w", bucket, err)
	}

	return &NATSObjectStore{
		bucket:  store,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *NATSObjectStore) Upload(ctx context.Context, path string, r io.Reader) error {
	_, err := s.bucket.Put(&nats.ObjectMeta{Name: path}, r, nats.Context(ctx))
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to upload object %s: %w", path, err)
	}
	return nil
}

func (s *NATSObjectStore) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}
