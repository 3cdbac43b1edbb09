package db

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"report-hub/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	listingKey    = "reports:listing"
	generationKey = "reports:listing:gen"
)

// ReportStore is what the cache wraps.
type ReportStore interface {
	Insert(ctx context.Context, report *models.Report) error
	ListNewestFirst(ctx context.Context) ([]models.Report, error)
}

// CachedReportRepository keeps the full newest-first listing in redis.
//
// Every insert bumps a generation counter and listings are cached under the
// generation read before the database was queried. A listing that raced an
// insert lands under a generation nobody reads any more, so an acknowledged
// report is never hidden by the cache. When redis is unreachable every call
// goes straight to the wrapped repository.
type CachedReportRepository struct {
	next   ReportStore
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedReportRepository(next ReportStore, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedReportRepository {
	return &CachedReportRepository{next: next, client: client, ttl: ttl, log: log}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *CachedReportRepository) Insert(ctx context.Context, report *models.Report) error {
	if err := r.next.Insert(ctx, report); err != nil {
		return err
	}
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		r.log.Warn("failed to invalidate listing cache", zap.Error(err))
	}
	return nil
}

func (r *CachedReportRepository) ListNewestFirst(ctx context.Context) ([]models.Report, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.log.Warn("listing cache unavailable", zap.Error(err))
		return r.next.ListNewestFirst(ctx)
	}
	key := listingCacheKey(gen)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var reports []models.Report
		if err := json.Unmarshal(raw, &reports); err == nil {
			return reports, nil
		}
		r.log.Warn("discarding unreadable listing cache")
	case errors.Is(err, redis.Nil):
	default:
		r.log.Warn("listing cache unavailable", zap.Error(err))
	}

	reports, err := r.next.ListNewestFirst(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(reports); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.log.Debug("listing cache not refreshed", zap.Error(err))
		}
	}
	return reports, nil
}

func listingCacheKey(gen int64) string {
	return listingKey + ":" + strconv.FormatInt(gen, 10)
}
