package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps lower-case publisher types to builders. It is not safe for
// concurrent registration.
type Registry map[string]Builder

// NewRegistry returns a registry holding builders.
func NewRegistry(builders map[string]Builder) Registry {
	reg := make(Registry, len(builders))
	for typ, b := range builders {
		reg.Register(typ, b)
	}
	return reg
}

// DefaultRegistry knows every sink shipped with the harvester.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypeS3:     newS3Publisher,
		TypePubSub: newPubSubPublisher,
	})
}

// Register adds or replaces the builder for typ. Blank types and nil builders are ignored.
func (r Registry) Register(typ string, builder Builder) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || builder == nil {
		return
	}
	r[typ] = builder
}

// Build constructs the publisher described by cfg.
func (r Registry) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}
	builder, ok := r[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// BuildAll constructs a publisher per entry of cfgs. When one fails, those
// already built are closed and the error is returned.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(err, NewFanout(pubs).Close())
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
