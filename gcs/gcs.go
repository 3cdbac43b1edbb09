package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// NewClient connects to Google Cloud Storage and checks that bucket is
// reachable. With an empty credentialsFile the default credential chain is used.
func NewClient(ctx context.Context, bucket, credentialsFile string, log *zap.Logger) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to google cloud storage: %w", err)
	}

	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("access bucket %s: %w", bucket, err)
	}
	log.Info("google cloud storage ready", zap.String("bucket", bucket))
	return client, nil
}
