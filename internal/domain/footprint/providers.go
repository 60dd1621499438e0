package footprint

import (
	"context"
	"fmt"
)

// Provider names used for metrics and error messages.
const (
	ProviderEmail   = "email"
	ProviderStorage = "storage"
	ProviderVideo   = "video"
)

// StaticProvider returns a fixed baseline reading. It stands in for the
// account integrations (mail, drive, video) that the service does not
// authenticate against.
type StaticProvider struct {
	name  string
	value float64
}

// NewStaticProvider creates a provider that always reports value.
func NewStaticProvider(name string, value float64) *StaticProvider {
	return &StaticProvider{name: name, value: value}
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return p.name }

// Read implements Provider.
func (p *StaticProvider) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("read %s: %w", p.name, err)
	}
	return p.value, nil
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context) (float64, error)
}

// Name implements Provider.
func (f ProviderFunc) Name() string { return f.ProviderName }

// Read implements Provider.
func (f ProviderFunc) Read(ctx context.Context) (float64, error) { return f.Fn(ctx) }
