package selector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ragstore/engine/internal/storage"
)

type fakeBackend struct {
	storage.Backend
	kind string
}

func (f fakeBackend) Kind() string { return f.kind }
func (f fakeBackend) Close() error { return nil }

func provider(kind, reportedKind string) Provider {
	return Provider{
		Kind: kind,
		Open: func(ctx context.Context) (storage.Backend, error) {
			return fakeBackend{kind: reportedKind}, nil
		},
	}
}

func TestSelectBindsExactlyOneMatchingProvider(t *testing.T) {
	providers := []Provider{
		provider("embedded", "embedded"),
		provider("server", "server"),
	}
	backend, err := Select(context.Background(), "server", providers, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if backend.Kind() != "server" {
		t.Errorf("Kind() = %q, want %q", backend.Kind(), "server")
	}
}

func TestSelectFailsWithNoMatchingProvider(t *testing.T) {
	providers := []Provider{provider("embedded", "embedded")}
	_, err := Select(context.Background(), "server", providers, nil)
	if err == nil {
		t.Fatal("Select with no matching provider should fail")
	}
	if !strings.Contains(err.Error(), "server") {
		t.Errorf("error %v should mention the declared kind", err)
	}
}

func TestSelectFailsFatallyOnDoubleBind(t *testing.T) {
	providers := []Provider{
		provider("embedded", "embedded"),
		provider("embedded", "embedded"),
	}
	_, err := Select(context.Background(), "embedded", providers, nil)
	if err == nil {
		t.Fatal("Select with two providers for the same kind should fail")
	}
	if !strings.Contains(err.Error(), "fatal") {
		t.Errorf("error %v should flag the double-bind as fatal", err)
	}
}

func TestSelectAllowsKindMismatchAsWarningOnly(t *testing.T) {
	providers := []Provider{provider("server", "embedded")}
	backend, err := Select(context.Background(), "server", providers, nil)
	if err != nil {
		t.Fatalf("Select should not fail on a Kind() mismatch, got: %v", err)
	}
	if backend == nil {
		t.Fatal("Select returned a nil backend")
	}
}

func TestSelectPropagatesOpenError(t *testing.T) {
	wantErr := errors.New("boom")
	providers := []Provider{{
		Kind: "embedded",
		Open: func(ctx context.Context) (storage.Backend, error) { return nil, wantErr },
	}}
	_, err := Select(context.Background(), "embedded", providers, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want it to wrap %v", err, wantErr)
	}
}
