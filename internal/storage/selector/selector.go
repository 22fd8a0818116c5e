// Package selector implements the backend selector (§4.9): at startup it
// reads the configured backend identifier and binds exactly one
// storage.Backend implementation. Binding two implementations for the same
// identifier is a fatal startup error; binding none is a warning a caller
// can still surface as an error. A backend whose own Kind() disagrees with
// what was configured is logged as a mismatch but not rejected.
package selector

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ragstore/engine/internal/storage"
	"github.com/ragstore/engine/internal/storage/embedded"
	"github.com/ragstore/engine/internal/storage/server"
)

// Provider is one candidate backend implementation a caller registers with
// Select. Kind must be "embedded" or "server".
type Provider struct {
	Kind string
	Open func(ctx context.Context) (storage.Backend, error)
}

// EmbeddedProvider wraps embedded.Open as a Provider.
func EmbeddedProvider(cfg embedded.Config) Provider {
	return Provider{
		Kind: "embedded",
		Open: func(ctx context.Context) (storage.Backend, error) { return embedded.Open(ctx, cfg) },
	}
}

// ServerProvider wraps server.Open as a Provider.
func ServerProvider(cfg server.Config) Provider {
	return Provider{
		Kind: "server",
		Open: func(ctx context.Context) (storage.Backend, error) { return server.Open(ctx, cfg) },
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Select opens exactly one provider matching declaredKind and returns it.
// Registering more than one provider under the same Kind string is always
// a caller bug — it returns an error describing it as fatal rather than
// silently picking one, per §4.9.
func Select(ctx context.Context, declaredKind string, providers []Provider, logger *slog.Logger) (storage.Backend, error) {
	if logger == nil {
		logger = discardLogger()
	}

	var matched []Provider
	for _, p := range providers {
		if p.Kind == declaredKind {
			matched = append(matched, p)
		}
	}

	switch len(matched) {
	case 0:
		logger.Warn("selector: no backend registered for declared kind", "declared", declaredKind)
		return nil, fmt.Errorf("selector: no implementation registered for backend kind %q", declaredKind)
	case 1:
		backend, err := matched[0].Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("selector: open %s backend: %w", declaredKind, err)
		}
		if backend.Kind() != declaredKind {
			logger.Warn("selector: backend kind mismatch",
				"declared", declaredKind, "actual", backend.Kind())
		}
		logger.Info("selector: bound backend", "kind", backend.Kind())
		return backend, nil
	default:
		return nil, fmt.Errorf(
			"selector: fatal: %d implementations registered for backend kind %q, expected exactly one",
			len(matched), declaredKind)
	}
}
