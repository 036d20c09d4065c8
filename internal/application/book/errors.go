package book

import (
	"errors"
	"fmt"

	apperrors "z-book-ai-api/pkg/errors"
)

// 阶段名，出现在错误信息、日志与指标标签中
const (
	StageMarketResearch      = "market research"
	StageStructureGeneration = "structure generation"
	StageUnitResearch        = "unit research"
	StageUnitGeneration      = "unit generation"
	StageUnitRevision        = "unit revision"
	StageBookPlanning        = "book planning"
)

// StageError 带阶段标签的失败，Error() 形如 "<stage> failed: <detail>"
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AppCode 让 apperrors.AsAppError 识别阶段错误
func (e *StageError) AppCode() apperrors.ErrorCode {
	var appErr *apperrors.AppError
	if errors.As(e.Err, &appErr) && appErr.HTTPStatus < 500 {
		return appErr.Code
	}
	return apperrors.CodeGenerationFailed
}

// stageErr 包装为阶段错误，已是阶段错误时原样返回
func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf 取出错误所属阶段，非阶段错误返回空串
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
