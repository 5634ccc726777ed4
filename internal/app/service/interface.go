package service

import (
	"context"

	"github.com/atinyakov/go-url-relay/internal/models"
	"github.com/atinyakov/go-url-relay/internal/relay"
	"github.com/atinyakov/go-url-relay/internal/storage"
)

//go:generate mockgen -destination=../../mocks/mock_service.go -package=mocks github.com/atinyakov/go-url-relay/internal/app/service Storage,Fetcher,RelayServiceIface,AuthIface

// Storage is the record store. GetOrCreate must be atomic per record id.
type Storage interface {
	GetOrCreate(context.Context, storage.ProxyRecord) (storage.ProxyRecord, bool, error)
	FindByID(context.Context, string) (storage.ProxyRecord, error)
	PingContext(context.Context) error
	Close() error
}

// Fetcher opens upstream responses.
type Fetcher interface {
	Open(context.Context, storage.ProxyRecord) (*relay.Upstream, error)
}

// RelayServiceIface is what the HTTP and gRPC surfaces depend on.
type RelayServiceIface interface {
	Register(context.Context, models.RegistrationRequest) (storage.ProxyRecord, bool, error)
	Lookup(context.Context, string) (storage.ProxyRecord, error)
	Open(context.Context, storage.ProxyRecord) (*relay.Upstream, error)
	PingContext(context.Context) error
}
