package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
)

// RemoveBatchSize is the most keys sent in one delete request.
const RemoveBatchSize = 1000

// listPageSize is the page size used when walking a prefix.
const listPageSize = 1000

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(client *storage.Client, supabaseURL, bucket string) *StorageClient {
	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(supabaseURL, "/") + "/storage/v1",
	}
}

// CreateUploadURL returns a URL the browser can PUT the drawing to.
func (s *StorageClient) CreateUploadURL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := s.client.CreateSignedUploadUrl(s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("failed to create upload url: %w", err)
	}
	return s.absolute(resp.Url), nil
}

// SignedURL returns a time-limited read URL for key.
func (s *StorageClient) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := s.client.CreateSignedUrl(s.bucket, key, int(ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}
	return s.absolute(resp.SignedURL), nil
}

func (s *StorageClient) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

// List returns every object key under prefix. Folder placeholders are skipped.
func (s *StorageClient) List(ctx context.Context, prefix string) ([]string, error) {
	folder := strings.TrimSuffix(prefix, "/")
	var keys []string
	for offset := 0; ; offset += listPageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.client.ListFiles(s.bucket, folder, storage.FileSearchOptions{
			Limit:  listPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		for _, f := range files {
			if f.Name == "" || f.Id == "" {
				continue
			}
			keys = append(keys, folder+"/"+f.Name)
		}
		if len(files) < listPageSize {
			return keys, nil
		}
	}
}

// Remove deletes keys in batches and returns how many were removed.
func (s *StorageClient) Remove(ctx context.Context, keys []string) (int, error) {
	removed := 0
	for _, batch := range ChunkKeys(keys, RemoveBatchSize) {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, err := s.client.RemoveFile(s.bucket, batch); err != nil {
			return removed, fmt.Errorf("failed to delete files: %w", err)
		}
		removed += len(batch)
	}
	return removed, nil
}

// ChunkKeys splits keys into slices of at most size elements.
func ChunkKeys(keys []string, size int) [][]string {
	if size <= 0 || len(keys) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}

// storage-go hands back some URLs relative to the storage endpoint.
func (s *StorageClient) absolute(u string) string {
	if strings.HasPrefix(u, "/") {
		return s.baseURL + u
	}
	return u
}
