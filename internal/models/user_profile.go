package models

import (
	"time"
)

// UserProfile 租户内的终端用户画像，按(tenant_id, phone)查询
// 查询接口将匹配行序列化为JSON后注入补全提示词做个性化
type UserProfile struct {
	ProfileID  uint      `gorm:"primaryKey;column:profile_id" json:"profile_id"`
	TenantID   string    `gorm:"column:tenant_id;size:64;not null;index:idx_tenant_phone" json:"tenant_id"`
	Phone      string    `gorm:"column:phone;size:32;not null;index:idx_tenant_phone" json:"phone"`
	Name       string    `gorm:"column:name;size:200" json:"name"`
	Email      string    `gorm:"column:email;size:200" json:"email"`
	Attributes string    `gorm:"column:attributes;type:json" json:"attributes,omitempty"`
	CreateTime time.Time `gorm:"column:create_time;not null" json:"create_time"`
	UpdateTime time.Time `gorm:"column:update_time" json:"update_time"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
