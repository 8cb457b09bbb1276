// Package schema caches introspected database schema with a TTL.
package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/datasource"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

const snapshotKey = "schema"

// snapshotEntry bundles what one introspection pass produces.
type snapshotEntry struct {
	snapshot      models.SchemaSnapshot
	relationships []models.Relationship
}

// Service reads schema metadata through a TTL cache. Introspection failures
// propagate: the pipeline cannot proceed without schema, so there is no
// fallback and no retry here.
type Service struct {
	reader datasource.SchemaReader
	cache  *ttlcache.Cache[string, snapshotEntry]
	logger *zap.Logger
}

// NewService creates a schema service with the given cache TTL.
func NewService(reader datasource.SchemaReader, ttl time.Duration, logger *zap.Logger) *Service {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, snapshotEntry](ttl),
		ttlcache.WithDisableTouchOnHit[string, snapshotEntry](),
	)
	return &Service{
		reader: reader,
		cache:  cache,
		logger: logger.Named("schema"),
	}
}

// GetSchema returns the cached snapshot, introspecting on miss or expiry.
func (s *Service) GetSchema(ctx context.Context) (models.SchemaSnapshot, []models.Relationship, error) {
	if item := s.cache.Get(snapshotKey); item != nil {
		entry := item.Value()
		return entry.snapshot, entry.relationships, nil
	}

	snapshot, relationships, err := s.reader.ReadSchema(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("introspect schema: %w", err)
	}

	s.cache.Set(snapshotKey, snapshotEntry{snapshot: snapshot, relationships: relationships}, ttlcache.DefaultTTL)

	s.logger.Info("Schema snapshot refreshed",
		zap.Int("tables", len(snapshot)),
		zap.Int("relationships", len(relationships)))

	return snapshot, relationships, nil
}

// Invalidate drops the cached snapshot so the next read introspects again.
func (s *Service) Invalidate() {
	s.cache.Delete(snapshotKey)
}
