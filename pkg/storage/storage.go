// Package storage defines the key/value surface the sack persists snapshots to.
// It plays the role browser local storage plays for a single-page client: small
// string values under well-known keys, fallible on every call.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a string key/value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type prefixed struct {
	inner  Storage
	prefix string
}

// WithPrefix namespaces every key written through the returned Storage.
func WithPrefix(inner Storage, parts ...string) Storage {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), ":")
		if part != "" {
			clean = append(clean, part)
		}
	}
	if len(clean) == 0 {
		return inner
	}
	return &prefixed{inner: inner, prefix: strings.Join(clean, ":") + ":"}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}
