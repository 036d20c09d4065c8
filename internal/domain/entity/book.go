// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// BookStatus 书籍状态
type BookStatus string

const (
	BookStatusDraft      BookStatus = "draft"
	BookStatusResearched BookStatus = "researched"
	BookStatusPlanned    BookStatus = "planned"
	BookStatusWriting    BookStatus = "writing"
)

// Book 书籍（文档）实体
type Book struct {
	ID       string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title    string `json:"title,omitempty" gorm:"type:text"`
	Subtitle string `json:"subtitle,omitempty" gorm:"type:text"`
	Topic    string `json:"topic" gorm:"type:text;not null"`

	// References 用户提供的参考资料名称
	References pq.StringArray `json:"references,omitempty" gorm:"type:text[]"`

	TargetAudience string `json:"target_audience,omitempty" gorm:"type:text"`
	Tone           string `json:"tone,omitempty" gorm:"type:text"`
	Style          string `json:"style,omitempty" gorm:"type:text"`
	MarketPosition string `json:"market_position,omitempty" gorm:"type:text"`

	MarketResearch map[string]any `json:"market_research,omitempty" gorm:"type:jsonb;serializer:json"`
	Structure      map[string]any `json:"structure,omitempty" gorm:"type:jsonb;serializer:json"`

	// ReferenceList 正文中抽取的引用，排序去重
	ReferenceList pq.StringArray `json:"reference_list" gorm:"type:text[]"`

	Status    BookStatus `json:"status" gorm:"type:varchar(32);default:'draft'"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}

// NewBook 创建新书籍
func NewBook(topic string, references []string) *Book {
	return &Book{
		Topic:         topic,
		References:    pq.StringArray(references),
		ReferenceList: pq.StringArray{},
		Status:        BookStatusDraft,
	}
}

// HasStructure 是否已生成目录结构
func (b *Book) HasStructure() bool {
	return len(b.Structure) > 0
}
