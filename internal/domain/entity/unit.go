package entity

import (
	"time"

	"github.com/lib/pq"
)

// UnitStatus 单元（章节）状态
type UnitStatus string

const (
	UnitStatusEmpty      UnitStatus = "empty"
	UnitStatusInProgress UnitStatus = "in_progress"
	// UnitStatusComplete 只由外部人工流程设置
	UnitStatusComplete UnitStatus = "complete"
)

// GenerationMetadata 生成元数据
type GenerationMetadata struct {
	Model            string  `json:"model,omitempty"`
	Provider         string  `json:"provider,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	MaxTokens        int     `json:"max_tokens,omitempty"`
	Researched       bool    `json:"researched,omitempty"`
	Revised          bool    `json:"revised,omitempty"`
	GeneratedAt      string  `json:"generated_at,omitempty"`
}

// Unit 书籍中的一个可寻址单元（章节）
type Unit struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookID          string         `json:"book_id" gorm:"type:uuid;not null;uniqueIndex:idx_units_book_ordinal"`
	PartNumber      int            `json:"part_number"`
	Ordinal         int            `json:"ordinal" gorm:"not null;uniqueIndex:idx_units_book_ordinal"`
	Title           string         `json:"title" gorm:"type:text"`
	Description     string         `json:"description,omitempty" gorm:"type:text"`
	EstimatedLength int            `json:"estimated_length"`
	KeyTopics       pq.StringArray `json:"key_topics,omitempty" gorm:"type:text[]"`
	KeyPoints       pq.StringArray `json:"key_points,omitempty" gorm:"type:text[]"`

	Content            string              `json:"content,omitempty" gorm:"type:text"`
	WordCount          int                 `json:"word_count" gorm:"default:0"`
	Status             UnitStatus          `json:"status" gorm:"type:varchar(32);default:'empty'"`
	GenerationMetadata *GenerationMetadata `json:"generation_metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	Version            int                 `json:"version" gorm:"default:1"`
	CreatedAt          time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Unit) TableName() string {
	return "units"
}

// NewUnit 创建空单元
func NewUnit(bookID string, partNumber, ordinal int, title string) *Unit {
	return &Unit{
		BookID:     bookID,
		PartNumber: partNumber,
		Ordinal:    ordinal,
		Title:      title,
		Status:     UnitStatusEmpty,
		Version:    1,
	}
}

// HasContent 是否已有正文
func (u *Unit) HasContent() bool {
	return u.Content != ""
}

// UnitWrite 单元写回内容
type UnitWrite struct {
	Content   string
	WordCount int
	Status    UnitStatus
	Metadata  *GenerationMetadata
}
