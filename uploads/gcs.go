package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSStore keeps uploads as objects under Prefix in a public bucket.
type GCSStore struct {
	client *storage.Client
	Bucket string
	Prefix string
	now    func() time.Time
}

func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, Bucket: bucket, Prefix: prefix, now: time.Now}
}

func (s *GCSStore) Save(ctx context.Context, originalName, contentType string, r io.Reader) (Stored, error) {
	now := s.now()
	name, err := GeneratedName(now, originalName)
	if err != nil {
		return Stored{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// The object is written once, with a does-not-exist precondition, so a
	// retry under another name needs the body again.
	body, err := io.ReadAll(r)
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}

	err = s.write(ctx, name, contentType, body)
	if isPreconditionFailed(err) {
		name = fallbackName(now, originalName)
		err = s.write(ctx, name, contentType, body)
	}
	if err != nil {
		return Stored{}, fmt.Errorf("upload to gcs: %w", err)
	}
	return Stored{Name: name, Ref: s.RefFor(name), Size: int64(len(body))}, nil
}

func (s *GCSStore) write(ctx context.Context, name, contentType string, body []byte) error {
	obj := s.client.Bucket(s.Bucket).Object(s.Prefix + name).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSStore) RefFor(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s%s", s.Bucket, s.Prefix, name)
}

func (s *GCSStore) List(ctx context.Context) ([]StoredFile, error) {
	it := s.client.Bucket(s.Bucket).Objects(ctx, &storage.Query{Prefix: s.Prefix})
	var files []StoredFile
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gcs objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, s.Prefix)
		if !IsGeneratedName(name) {
			continue
		}
		files = append(files, StoredFile{Name: name, Size: attrs.Size, ModTime: attrs.Created})
	}
	return files, nil
}

func (s *GCSStore) Remove(ctx context.Context, name string) error {
	return s.client.Bucket(s.Bucket).Object(s.Prefix + name).Delete(ctx)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
