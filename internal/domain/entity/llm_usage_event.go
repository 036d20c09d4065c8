// Package entity 定义领域实体
package entity

import "time"

// LLMUsageEvent 单次 LLM 调用的用量记录
type LLMUsageEvent struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookID           string    `json:"book_id" gorm:"type:varchar(36);index"`
	JobID            string    `json:"job_id,omitempty" gorm:"type:varchar(36);index"`
	Workflow         string    `json:"workflow" gorm:"type:varchar(32);not null"`
	Provider         string    `json:"provider" gorm:"type:varchar(32);not null"`
	Model            string    `json:"model" gorm:"type:varchar(128);not null"`
	TokensPrompt     int       `json:"tokens_prompt" gorm:"not null;default:0"`
	TokensCompletion int       `json:"tokens_completion" gorm:"not null;default:0"`
	DurationMs       int       `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (LLMUsageEvent) TableName() string {
	return "llm_usage_events"
}
