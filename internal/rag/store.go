package rag

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
	"github.com/crmhub/docquery-go/internal/models"
)

// SerializedIndex 命名的二进制索引快照，持久化单元
type SerializedIndex struct {
	Name       string
	Data       []byte
	EntryCount int
	Dimensions int
}

// IndexStore 索引持久化抽象
// Save为覆盖写（last-writer-wins），写入者并发控制由上层负责
type IndexStore interface {
	Load(ctx context.Context, name string) (*SerializedIndex, bool, error)
	Save(ctx context.Context, index *SerializedIndex) error
}

// DatabaseIndexStore 基于PostgreSQL的索引存储，每个名称一行bytea
type DatabaseIndexStore struct {
	db *gorm.DB
}

// NewDatabaseIndexStore 创建数据库索引存储
func NewDatabaseIndexStore(db *gorm.DB) *DatabaseIndexStore {
	return &DatabaseIndexStore{db: db}
}

func (s *DatabaseIndexStore) Load(ctx context.Context, name string) (*SerializedIndex, bool, error) {
	var record models.RagIndex
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewStoreUnavailableError(err)
	}

	return &SerializedIndex{
		Name:       record.Name,
		Data:       record.IndexData,
		EntryCount: record.EntryCount,
		Dimensions: record.Dimensions,
	}, true, nil
}

func (s *DatabaseIndexStore) Save(ctx context.Context, index *SerializedIndex) error {
	now := time.Now()
	record := models.RagIndex{
		Name:       index.Name,
		IndexData:  index.Data,
		EntryCount: index.EntryCount,
		Dimensions: index.Dimensions,
		CreateTime: now,
		UpdateTime: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"index_data", "entry_count", "dimensions", "update_time",
		}),
	}).Create(&record).Error
	if err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

// ObjectIndexStore 基于MinIO对象存储的索引存储
type ObjectIndexStore struct {
	client   *minio.Client
	bucket   string
	basePath string
}

// NewObjectIndexStore 创建对象存储索引存储
func NewObjectIndexStore(client *minio.Client, bucket, basePath string) *ObjectIndexStore {
	return &ObjectIndexStore{
		client:   client,
		bucket:   bucket,
		basePath: basePath,
	}
}

func (s *ObjectIndexStore) objectName(name string) string {
	return path.Join(s.basePath, name+".idx")
}

func (s *ObjectIndexStore) Load(ctx context.Context, name string) (*SerializedIndex, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, apperrors.NewStoreUnavailableError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var errResp minio.ErrorResponse
		if errors.As(err, &errResp) && errResp.Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, apperrors.NewStoreUnavailableError(err)
	}

	stat, err := obj.Stat()
	if err != nil {
		return nil, false, apperrors.NewStoreUnavailableError(err)
	}

	entryCount, _ := strconv.Atoi(stat.UserMetadata["Entry-Count"])
	dimensions, _ := strconv.Atoi(stat.UserMetadata["Dimensions"])

	return &SerializedIndex{
		Name:       name,
		Data:       data,
		EntryCount: entryCount,
		Dimensions: dimensions,
	}, true, nil
}

func (s *ObjectIndexStore) Save(ctx context.Context, index *SerializedIndex) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(index.Name),
		bytes.NewReader(index.Data), int64(len(index.Data)), minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			UserMetadata: map[string]string{
				"Entry-Count": strconv.Itoa(index.EntryCount),
				"Dimensions":  strconv.Itoa(index.Dimensions),
			},
		})
	if err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}
