package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crmhub/docquery-go/internal/cache"
	"github.com/crmhub/docquery-go/internal/config"
	apperrors "github.com/crmhub/docquery-go/internal/errors"
	"github.com/crmhub/docquery-go/internal/logger"
	"github.com/crmhub/docquery-go/internal/models"
)

// ProfileService 用户画像查询服务
// 画像按(tenant_id, phone)查询，结果整体序列化为JSON注入提示词
type ProfileService struct {
	db    *gorm.DB
	cache *cache.RedisService
}

// NewProfileService 创建用户画像服务
func NewProfileService(db *gorm.DB, cacheService *cache.RedisService) *ProfileService {
	return &ProfileService{
		db:    db,
		cache: cacheService,
	}
}

func profileCacheKey(tenantID, phone string) string {
	return fmt.Sprintf("rag:profile:%s:%s", tenantID, phone)
}

// Lookup 查询租户内指定手机号的画像行
// 没有匹配行时返回空切片，不视为错误
func (s *ProfileService) Lookup(ctx context.Context, tenantID, phone string) ([]models.UserProfile, error) {
	var profiles []models.UserProfile

	if s.cache != nil {
		found, err := s.cache.GetCache(ctx, profileCacheKey(tenantID, phone), &profiles)
		if err != nil {
			logger.Warn("Profile cache read failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		} else if found {
			return profiles, nil
		}
	}

	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		Order("profile_id ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	if s.cache != nil {
		ttl := 10 * time.Minute
		if cfg := config.GetAppConfig(); cfg != nil && cfg.Redis.TTL > 0 {
			ttl = time.Duration(cfg.Redis.TTL) * time.Second
		}
		if err := s.cache.SetCache(ctx, profileCacheKey(tenantID, phone), profiles, ttl); err != nil {
			logger.Warn("Profile cache write failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		}
	}

	return profiles, nil
}

// LookupJSON 查询画像并序列化为JSON字符串
// 无匹配行时返回"[]"，提示词侧按无画像处理
func (s *ProfileService) LookupJSON(ctx context.Context, tenantID, phone string) (string, error) {
	profiles, err := s.Lookup(ctx, tenantID, phone)
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "[]", nil
	}

	data, err := json.Marshal(profiles)
	if err != nil {
		return "", apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to serialize user profiles").WithCause(err)
	}
	return string(data), nil
}
