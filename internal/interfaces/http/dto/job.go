package dto

import (
	"encoding/json"
	"time"

	"z-book-ai-api/internal/domain/entity"
)

// JobResponse 任务响应
type JobResponse struct {
	ID               string          `json:"id"`
	BookID           string          `json:"book_id"`
	UnitID           string          `json:"unit_id,omitempty"`
	JobType          string          `json:"job_type"`
	Status           string          `json:"status"`
	Params           json.RawMessage `json:"params,omitempty"`
	Result           json.RawMessage `json:"result,omitempty"`
	ErrorMsg         string          `json:"error_msg,omitempty"`
	LLMProvider      string          `json:"llm_provider,omitempty"`
	LLMModel         string          `json:"llm_model,omitempty"`
	TokensPrompt     int             `json:"tokens_prompt"`
	TokensCompletion int             `json:"tokens_completion"`
	DurationMs       int             `json:"duration_ms,omitempty"`
	RetryCount       int             `json:"retry_count"`
	Progress         int             `json:"progress"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// JobListResponse 任务列表响应
type JobListResponse struct {
	Jobs []*JobResponse `json:"jobs"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.GenerationJob) *JobResponse {
	if j == nil {
		return nil
	}
	return &JobResponse{
		ID:               j.ID,
		BookID:           j.BookID,
		UnitID:           j.UnitID,
		JobType:          string(j.JobType),
		Status:           string(j.Status),
		Params:           j.InputParams,
		Result:           j.OutputResult,
		ErrorMsg:         j.ErrorMessage,
		LLMProvider:      j.LLMProvider,
		LLMModel:         j.LLMModel,
		TokensPrompt:     j.TokensPrompt,
		TokensCompletion: j.TokensComplete,
		DurationMs:       j.DurationMs,
		RetryCount:       j.RetryCount,
		Progress:         j.Progress,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

// ToJobListResponse 将领域实体列表转换为响应 DTO
func ToJobListResponse(jobs []*entity.GenerationJob) *JobListResponse {
	resp := &JobListResponse{Jobs: make([]*JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, ToJobResponse(j))
	}
	return resp
}
