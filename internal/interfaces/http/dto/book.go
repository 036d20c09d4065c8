package dto

import (
	"time"

	"z-book-ai-api/internal/domain/entity"
)

// CreateBookRequest 登记书籍并排队规划
type CreateBookRequest struct {
	Topic      string   `json:"topic" binding:"required"`
	References []string `json:"references,omitempty"`
	// AutoGenerate 规划完成后按顺序排队生成全部单元
	AutoGenerate bool `json:"auto_generate,omitempty"`
}

// PlanBookRequest 重新规划请求
type PlanBookRequest struct {
	AutoGenerate bool `json:"auto_generate,omitempty"`
}

// ReviseUnitRequest 单元修订请求
type ReviseUnitRequest struct {
	Instructions string `json:"instructions" binding:"required"`
}

// BookResponse 书籍响应
type BookResponse struct {
	ID             string         `json:"id"`
	Topic          string         `json:"topic"`
	Title          string         `json:"title,omitempty"`
	Subtitle       string         `json:"subtitle,omitempty"`
	References     []string       `json:"references,omitempty"`
	TargetAudience string         `json:"target_audience,omitempty"`
	Tone           string         `json:"tone,omitempty"`
	Style          string         `json:"style,omitempty"`
	MarketPosition string         `json:"market_position,omitempty"`
	Structure      map[string]any `json:"structure,omitempty"`
	ReferenceList  []string       `json:"reference_list"`
	Status         string         `json:"status"`
	Units          []*UnitSummary `json:"units,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// UnitSummary 单元列表项，不含正文
type UnitSummary struct {
	ID              string `json:"id"`
	PartNumber      int    `json:"part_number"`
	Ordinal         int    `json:"ordinal"`
	Title           string `json:"title"`
	EstimatedLength int    `json:"estimated_length"`
	WordCount       int    `json:"word_count"`
	Status          string `json:"status"`
}

// UnitResponse 单元详情
type UnitResponse struct {
	UnitSummary
	BookID             string                     `json:"book_id"`
	Description        string                     `json:"description,omitempty"`
	KeyTopics          []string                   `json:"key_topics,omitempty"`
	KeyPoints          []string                   `json:"key_points,omitempty"`
	Content            string                     `json:"content,omitempty"`
	GenerationMetadata *entity.GenerationMetadata `json:"generation_metadata,omitempty"`
	Version            int                        `json:"version"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// ToBookResponse 将领域实体转换为响应 DTO
func ToBookResponse(b *entity.Book, units []*entity.Unit) *BookResponse {
	if b == nil {
		return nil
	}
	resp := &BookResponse{
		ID:             b.ID,
		Topic:          b.Topic,
		Title:          b.Title,
		Subtitle:       b.Subtitle,
		References:     []string(b.References),
		TargetAudience: b.TargetAudience,
		Tone:           b.Tone,
		Style:          b.Style,
		MarketPosition: b.MarketPosition,
		Structure:      b.Structure,
		ReferenceList:  append([]string{}, b.ReferenceList...),
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	for _, u := range units {
		resp.Units = append(resp.Units, toUnitSummary(u))
	}
	return resp
}

func toUnitSummary(u *entity.Unit) *UnitSummary {
	return &UnitSummary{
		ID:              u.ID,
		PartNumber:      u.PartNumber,
		Ordinal:         u.Ordinal,
		Title:           u.Title,
		EstimatedLength: u.EstimatedLength,
		WordCount:       u.WordCount,
		Status:          string(u.Status),
	}
}

// ToUnitResponse 将领域实体转换为响应 DTO
func ToUnitResponse(u *entity.Unit) *UnitResponse {
	if u == nil {
		return nil
	}
	return &UnitResponse{
		UnitSummary:        *toUnitSummary(u),
		BookID:             u.BookID,
		Description:        u.Description,
		KeyTopics:          []string(u.KeyTopics),
		KeyPoints:          []string(u.KeyPoints),
		Content:            u.Content,
		GenerationMetadata: u.GenerationMetadata,
		Version:            u.Version,
		UpdatedAt:          u.UpdatedAt,
	}
}
