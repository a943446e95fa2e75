package station

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/fetch"
)

// Provider builds a fresh Directory per pipeline run from the remote station
// list, filtered to stations reporting through the current year.
type Provider struct {
	fetcher fetch.Fetcher
	listURL string
	logger  *slog.Logger
}

// NewProvider creates a Provider for the station list at listURL.
func NewProvider(fetcher fetch.Fetcher, listURL string, logger *slog.Logger) *Provider {
	return &Provider{fetcher: fetcher, listURL: listURL, logger: logger}
}

// Directory fetches and parses the station list. When the source is
// unavailable it returns an empty directory together with the error:
// downstream nearest lookups then find nothing, and the run degrades instead
// of aborting.
func (p *Provider) Directory(ctx context.Context) (*Directory, error) {
	raw, err := p.fetcher.Get(ctx, p.listURL)
	if err != nil {
		return Empty(), err
	}

	year := domain.Clock().Now().UTC().Year()
	dir, err := Load(bytes.NewReader(raw), year, p.logger)
	if err != nil {
		return Empty(), err
	}
	return dir, nil
}
