// Package attach stores note attachments in S3-compatible object storage.
package attach

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxAttachmentSize = 25 << 20 // 25 MiB

// Service uploads and serves attachment blobs. Metadata lives in
// Postgres; only the bytes go to object storage.
type Service struct {
	client *minio.Client
	bucket string
}

// NewService connects to the object store and ensures the bucket exists.
func NewService(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		log.Printf("attach: created bucket %s", bucket)
	}

	return &Service{client: client, bucket: bucket}, nil
}

// objectKey scopes objects by note so that removing a note can sweep
// its attachments with a single prefix listing.
func objectKey(noteID, attachmentID, filename string) string {
	return path.Join(noteID, attachmentID+"-"+sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = path.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}

// Upload streams an attachment into the bucket and returns its object key.
func (s *Service) Upload(ctx context.Context, noteID, attachmentID, filename, contentType string, size int64, r io.Reader) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("attachment size must be positive")
	}
	if size > maxAttachmentSize {
		return "", fmt.Errorf("attachment exceeds %d bytes", int64(maxAttachmentSize))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectKey(noteID, attachmentID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload attachment %s: %w", key, err)
	}
	return key, nil
}

// Download opens the stored object for reading. The caller must close it.
func (s *Service) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open attachment %s: %w", key, err)
	}
	// GetObject is lazy; stat to surface missing objects now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat attachment %s: %w", key, err)
	}
	return obj, nil
}

// PresignedURL returns a temporary download link for an attachment.
func (s *Service) PresignedURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign attachment %s: %w", key, err)
	}
	return u.String(), nil
}

// Delete removes a single object.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete attachment %s: %w", key, err)
	}
	return nil
}

// DeleteNoteObjects removes every object stored under a note's prefix.
// Errors on individual objects are logged and skipped so one stuck
// object does not block note deletion.
func (s *Service) DeleteNoteObjects(ctx context.Context, noteID string) {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    noteID + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			log.Printf("attach: list objects for note %s: %v", noteID, obj.Err)
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("attach: delete object %s: %v", obj.Key, err)
		}
	}
}

// Ping verifies the object store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
