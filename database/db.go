package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("database not connected")

// Mongo owns the client and the database the service works in.
type Mongo struct {
	Client  *mongo.Client
	DB      *mongo.Database
	timeout time.Duration
	log     *zap.Logger
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration, log *zap.Logger) (*Mongo, error) {
	start := time.Now()
	log.Info("connecting to mongodb", zap.String("uri", redactURI(uri)), zap.String("db", dbName))

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info("connected to mongodb", zap.Duration("took", time.Since(start).Round(time.Millisecond)))
	return &Mongo{Client: client, DB: client.Database(dbName), timeout: timeout, log: log}, nil
}

func (m *Mongo) Disconnect() {
	if m == nil || m.Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		m.log.Warn("failed to disconnect mongodb", zap.Error(err))
		return
	}
	m.log.Info("disconnected from mongodb")
}

// Ping backs the health check.
func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.Client.Ping(ctx, nil)
}

func (m *Mongo) OpenCollection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

// EnsureReportIndexes creates the index the listing sort uses.
func EnsureReportIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create createdAt index: %w", err)
	}
	return nil
}

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
