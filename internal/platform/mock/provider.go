// Package mock serves raw quotes from JSON fixtures so the whole cycle can
// run without network access.
package mock

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// Provider is a domain.QuoteSource backed by a fixture file.
type Provider struct {
	platform domain.Platform
	dir      string
	now      func() time.Time
}

// New returns a Provider for platform. Fixtures are read from
// dir/exchange_a.json or dir/exchange_b.json; when dir is empty or the file
// does not exist the embedded demo fixture is used.
func New(platform domain.Platform, dir string) *Provider {
	return &Provider{platform: platform, dir: dir, now: time.Now}
}

// Name implements domain.QuoteSource.
func (p *Provider) Name() string { return "mock" }

// FetchQuotes decodes the fixture and stamps every record with the current
// time.
func (p *Provider) FetchQuotes(ctx context.Context) ([]domain.RawQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file := string(p.platform) + ".json"

	data, err := p.read(file)
	if err != nil {
		return nil, err
	}

	var quotes []domain.RawQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("mock: decode %s: %w", file, err)
	}
	now := p.now().UTC()
	for i := range quotes {
		if quotes[i].ObservedAt.IsZero() {
			quotes[i].ObservedAt = now
		}
	}
	return quotes, nil
}

func (p *Provider) read(file string) ([]byte, error) {
	if p.dir != "" {
		data, err := os.ReadFile(filepath.Join(p.dir, file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("mock: read %s: %w", file, err)
		}
	}
	data, err := fixtures.ReadFile("fixtures/" + file)
	if err != nil {
		return nil, fmt.Errorf("mock: embedded %s: %w", file, err)
	}
	return data, nil
}

var _ domain.QuoteSource = (*Provider)(nil)
