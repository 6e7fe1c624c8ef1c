// Package s3storage читает документы (регламент ценообразования) из S3-совместимого хранилища.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/bellhop/pkg/config"
)

// Downloader скачивает объект по ключу. Используется для мокания в тестах.
type Downloader interface {
	DownloadFile(ctx context.Context, key string) ([]byte, error)
}

// Client — тонкая обёртка над minio для одного бакета.
type Client struct {
	api    *minio.Client
	bucket string
}

var _ Downloader = (*Client)(nil)

// New создает клиент из конфигурации.
func New(cfg config.S3Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3.endpoint and s3.bucket are required")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
	}, nil
}

// Bucket возвращает имя бакета.
func (c *Client) Bucket() string {
	return c.bucket
}

// DownloadFile скачивает объект целиком в память.
func (c *Client) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return buf.Bytes(), nil
}
