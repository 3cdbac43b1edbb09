package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"report-hub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReportRepository stores reports as documents of one collection.
type MongoReportRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewMongoReportRepository(coll *mongo.Collection, timeout time.Duration) *MongoReportRepository {
	return &MongoReportRepository{coll: coll, timeout: timeout}
}

// Insert assigns the report a fresh id and writes it.
func (r *MongoReportRepository) Insert(ctx context.Context, report *models.Report) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	report.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, report); err != nil {
		report.ID = primitive.NilObjectID
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListNewestFirst returns every report, most recent first.
func (r *MongoReportRepository) ListNewestFirst(ctx context.Context) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := make([]models.Report, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

// MemoryReportRepository keeps reports in process. Used when running without
// a database and in tests.
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports []models.Report
}

func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{}
}

func (r *MemoryReportRepository) Insert(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report.ID = primitive.NewObjectID()
	r.reports = append(r.reports, *report)
	return nil
}

func (r *MemoryReportRepository) ListNewestFirst(_ context.Context) ([]models.Report, error) {
	r.mu.RLock()
	out := make([]models.Report, len(r.reports))
	copy(out, r.reports)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}
