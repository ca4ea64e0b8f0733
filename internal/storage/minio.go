package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/crmhub/docquery-go/internal/config"
)

// ObjectStorage MinIO对象存储封装
// 承载序列化索引blob（provider=minio时）和原始上传文档的归档
type ObjectStorage struct {
	client *minio.Client
	config config.ObjectStorageConfig
}

// NewObjectStorage 初始化MinIO客户端并确保bucket存在
func NewObjectStorage(cfg config.ObjectStorageConfig) (*ObjectStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}

	// minio.New不需要协议前缀
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ObjectStorage{
		client: client,
		config: cfg,
	}, nil
}

// Client 返回底层MinIO客户端
func (s *ObjectStorage) Client() *minio.Client {
	return s.client
}

// Bucket 返回配置的bucket名称
func (s *ObjectStorage) Bucket() string {
	return s.config.Bucket
}

// UploadRaw 归档原始上传文档，便于后续重新处理
func (s *ObjectStorage) UploadRaw(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	objectName := fmt.Sprintf("raw/%s", name)
	_, err := s.client.PutObject(ctx, s.config.Bucket, objectName,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload raw document: %w", err)
	}
	return objectName, nil
}

// DownloadRaw 下载归档的原始文档
func (s *ObjectStorage) DownloadRaw(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.config.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get raw document: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw document: %w", err)
	}
	return data, nil
}
