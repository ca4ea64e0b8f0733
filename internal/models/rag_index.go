package models

import (
	"time"
)

// RagIndex 序列化向量索引表，按名称保存二进制索引快照
// 对应原CRM中按文档名持久化的索引记录，save为覆盖写（last-writer-wins）
type RagIndex struct {
	IndexID    uint      `gorm:"primaryKey;column:index_id" json:"index_id"`
	Name       string    `gorm:"column:name;size:255;uniqueIndex;not null" json:"name"`
	IndexData  []byte    `gorm:"column:index_data;type:bytea;not null" json:"-"`
	EntryCount int       `gorm:"column:entry_count;not null;default:0" json:"entry_count"`
	Dimensions int       `gorm:"column:dimensions;not null;default:0" json:"dimensions"`
	CreateTime time.Time `gorm:"column:create_time;not null" json:"create_time"`
	UpdateTime time.Time `gorm:"column:update_time" json:"update_time"`
}

func (RagIndex) TableName() string {
	return "rag_indexes"
}
