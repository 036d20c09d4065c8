// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"
)

// JobType 任务类型
type JobType string

const (
	JobTypeBookPlan        JobType = "book_plan"
	JobTypeUnitGenerate    JobType = "unit_generate"
	JobTypeUnitRevise      JobType = "unit_revise"
	JobTypeBookGenerateAll JobType = "book_generate_all"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// GenerationJob 生成任务
type GenerationJob struct {
	ID             string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookID         string          `json:"book_id" gorm:"type:uuid;index;not null"`
	UnitID         string          `json:"unit_id,omitempty" gorm:"type:varchar(36);index"`
	JobType        JobType         `json:"job_type" gorm:"type:varchar(32);not null"`
	Status         JobStatus       `json:"status" gorm:"type:varchar(32);index;default:'pending'"`
	InputParams    json.RawMessage `json:"input_params" gorm:"type:jsonb"`
	OutputResult   json.RawMessage `json:"output_result,omitempty" gorm:"type:jsonb"`
	ErrorMessage   string          `json:"error_message,omitempty" gorm:"type:text"`
	LLMProvider    string          `json:"llm_provider,omitempty" gorm:"type:varchar(64)"`
	LLMModel       string          `json:"llm_model,omitempty" gorm:"type:varchar(128)"`
	TokensPrompt   int             `json:"tokens_prompt,omitempty"`
	TokensComplete int             `json:"tokens_completion,omitempty"`
	DurationMs     int             `json:"duration_ms,omitempty"`
	RetryCount     int             `json:"retry_count"`
	Progress       int             `json:"progress"` // 任务进度 (0-100)
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Valid 是否为已知任务类型
func (t JobType) Valid() bool {
	switch t {
	case JobTypeBookPlan, JobTypeUnitGenerate, JobTypeUnitRevise, JobTypeBookGenerateAll:
		return true
	}
	return false
}

// Valid 是否为已知任务状态
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// TableName 指定表名
func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// NewGenerationJob 创建新任务
func NewGenerationJob(bookID, unitID string, jobType JobType, inputParams json.RawMessage) *GenerationJob {
	return &GenerationJob{
		BookID:      bookID,
		UnitID:      unitID,
		JobType:     jobType,
		Status:      JobStatusPending,
		InputParams: inputParams,
	}
}

// Start 开始执行任务
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.ErrorMessage = ""
}

// Complete 完成任务
func (j *GenerationJob) Complete(result json.RawMessage) {
	j.finish(JobStatusCompleted)
	j.OutputResult = result
	j.Progress = 100
}

// Fail 任务失败
func (j *GenerationJob) Fail(errMsg string) {
	j.finish(JobStatusFailed)
	j.ErrorMessage = errMsg
}

func (j *GenerationJob) finish(status JobStatus) {
	now := time.Now()
	j.Status = status
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// AddLLMUsage 累加 LLM 使用量
func (j *GenerationJob) AddLLMUsage(provider, model string, promptTokens, completionTokens int) {
	if provider != "" {
		j.LLMProvider = provider
	}
	if model != "" {
		j.LLMModel = model
	}
	j.TokensPrompt += promptTokens
	j.TokensComplete += completionTokens
}

// UpdateProgress 更新任务进度
func (j *GenerationJob) UpdateProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
}
