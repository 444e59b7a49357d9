// Package storage implements the template image blob store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/infrastructure/persistence"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

// SupabaseStore keeps objects in a Supabase Storage bucket.
type SupabaseStore struct {
	client  *storage_go.Client
	bucket  string
	breaker *persistence.Breaker
	logger  *zap.Logger
}

// NewSupabaseStore creates a store for bucket.
func NewSupabaseStore(client *storage_go.Client, bucket string, breaker *persistence.Breaker, logger *zap.Logger) *SupabaseStore {
	return &SupabaseStore{
		client:  client,
		bucket:  bucket,
		breaker: breaker,
		logger:  logger.Named("blob_store"),
	}
}

func (s *SupabaseStore) Put(ctx context.Context, path, contentType string, data []byte) error {
	upsert := true
	return s.breaker.Execute(ctx, "storage.put", func() error {
		_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
			ContentType: &contentType,
			Upsert:      &upsert,
		})
		if err != nil {
			return apperrors.NewStorageError("put", err)
		}
		return nil
	})
}

func (s *SupabaseStore) Get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.breaker.Execute(ctx, "storage.get", func() error {
		var err error
		data, err = s.client.DownloadFile(s.bucket, path)
		if err != nil {
			if isMissing(err) {
				return apperrors.NewNotFoundError("image")
			}
			return apperrors.NewStorageError("get", err)
		}
		return nil
	})
	return data, err
}

func (s *SupabaseStore) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.breaker.Execute(ctx, "storage.delete", func() error {
		if _, err := s.client.RemoveFile(s.bucket, paths); err != nil {
			return apperrors.NewStorageError("delete", err)
		}
		return nil
	})
}

func (s *SupabaseStore) PublicURL(path string) string {
	return s.client.GetPublicUrl(s.bucket, path).SignedURL
}

func isMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "404")
}

// String identifies the store in logs.
func (s *SupabaseStore) String() string {
	return fmt.Sprintf("supabase-storage(%s)", s.bucket)
}
