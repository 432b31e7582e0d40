package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/roach88/tallykeep/internal/logger"
)

// Read decodes the JSON value stored under key into a T.
//
// Read never fails. A missing key returns def silently; any other read or
// decode failure is logged and also returns def, so a corrupted key degrades
// to its default instead of blocking startup.
func Read[T any](ctx context.Context, kv KV, key string, def T) T {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def
	}
	if err != nil {
		log := logger.WithComponent("store")
		log.Warn().Err(err).Str("key", key).Msg("read failed, using default")
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log := logger.WithComponent("store")
		log.Warn().Err(err).Str("key", key).Int("bytes", len(raw)).Msg("stored value is corrupted, using default")
		return def
	}
	return v
}

// Write encodes value as JSON and stores it under key.
// It returns false instead of an error so callers can degrade gracefully
// (for example when the disk is full).
func Write(ctx context.Context, kv KV, key string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		log := logger.WithComponent("store")
		log.Error().Err(err).Str("key", key).Msg("encode failed")
		return false
	}
	if err := kv.Put(ctx, key, raw); err != nil {
		log := logger.WithComponent("store")
		log.Error().Err(err).Str("key", key).Msg("write failed")
		return false
	}
	return true
}
