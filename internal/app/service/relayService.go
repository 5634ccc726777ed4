// Package service ties the record store and the upstream fetcher together
// and holds the bearer check shared by the HTTP and gRPC surfaces.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/fingerprint"
	"github.com/atinyakov/go-url-relay/internal/metrics"
	"github.com/atinyakov/go-url-relay/internal/models"
	"github.com/atinyakov/go-url-relay/internal/relay"
	"github.com/atinyakov/go-url-relay/internal/storage"
)

type RelayService struct {
	repository Storage
	fetcher    Fetcher
	logger     *zap.Logger
}

func NewRelay(repo Storage, fetcher Fetcher, logger *zap.Logger) *RelayService {
	return &RelayService{
		repository: repo,
		fetcher:    fetcher,
		logger:     logger,
	}
}

// Register validates req and returns the record for its (url, user agent)
// pair, creating it on first use. created is false when the pair was
// registered before. Validation errors are models.ValidationErrors and
// are returned before the store is touched.
func (s *RelayService) Register(ctx context.Context, req models.RegistrationRequest) (storage.ProxyRecord, bool, error) {
	if err := req.Validate(); err != nil {
		return storage.ProxyRecord{}, false, err
	}

	url, userAgent := req.Target()

	r, created, err := s.repository.GetOrCreate(ctx, storage.NewProxyRecord(url, userAgent))
	if err != nil {
		return storage.ProxyRecord{}, false, err
	}

	metrics.ObserveRegistration(created)
	if created {
		s.logger.Info("registered", zap.String("id", r.ID), zap.String("url", r.URL))
	}

	return r, created, nil
}

// Lookup returns the record with the given id. Ids that do not have the
// fingerprint shape are reported as storage.ErrNotFound without a store
// round trip.
func (s *RelayService) Lookup(ctx context.Context, id string) (storage.ProxyRecord, error) {
	if !fingerprint.Valid(id) {
		return storage.ProxyRecord{}, storage.ErrNotFound
	}

	return s.repository.FindByID(ctx, id)
}

// Open starts the upstream fetch of r.
func (s *RelayService) Open(ctx context.Context, r storage.ProxyRecord) (*relay.Upstream, error) {
	return s.fetcher.Open(ctx, r)
}

func (s *RelayService) PingContext(ctx context.Context) error {
	return s.repository.PingContext(ctx)
}

// ShortLink joins base and id with a single slash.
func ShortLink(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id
}
