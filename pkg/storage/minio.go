package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinIOStorage creates a MinIO-backed ImageStorage and makes sure the bucket exists.
// endpoint is host:port, e.g. "127.0.0.1:9000".
func NewMinIOStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, publicBase string) (ImageStorage, error) {
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check minio bucket: %w", err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create minio bucket: %w", err)
		}
	}

	return &minioStorage{client: c, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (m *minioStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	base := strings.TrimSuffix(sanitizeFileName(fileName), strings.ToLower(ext))
	key := path.Join(folder, fmt.Sprintf("%s-%s%s", base, randomHex(4), strings.ToLower(ext)))

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Size -1 streams the object as a multipart upload.
	_, err := m.client.PutObject(ctx, m.bucket, key, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to minio: %w", err)
	}

	return m.objectURL(key)
}

func (m *minioStorage) DeleteImage(ctx context.Context, fileURL string) error {
	key := m.keyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("could not extract object key from URL: %s", fileURL)
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *minioStorage) objectURL(key string) (string, error) {
	u, err := url.Parse(m.publicBase)
	if err != nil {
		return "", fmt.Errorf("invalid minio public base: %w", err)
	}
	u.Path = path.Join(u.Path, m.bucket, key)
	return u.String(), nil
}

func (m *minioStorage) keyFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	prefix := "/" + m.bucket + "/"
	idx := strings.Index(u.Path, prefix)
	if idx == -1 {
		return ""
	}
	return u.Path[idx+len(prefix):]
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
