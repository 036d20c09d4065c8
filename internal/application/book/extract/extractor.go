// Package extract 将模型的自由文本回复转换为结构化对象。
//
// 依次尝试四级策略，先成功者胜出：
//  1. 整段直接解析
//  2. 第一个 ``` 代码块内部解析
//  3. 第一个 { 到最后一个 } 的片段修复后解析
//  4. 按标题/分部/章节标记启发式重建目录（不会失败）
package extract

import (
	"errors"
	"fmt"
)

// ErrExhausted 所有策略都失败。只有重建逻辑本身有缺陷时才会出现
var ErrExhausted = errors.New("structured response extraction exhausted")

// Tier 提取策略级别
type Tier int

const (
	TierDirect Tier = iota + 1
	TierFenced
	TierBraceRepair
	TierHeuristic
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierFenced:
		return "fenced"
	case TierBraceRepair:
		return "brace_repair"
	case TierHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Validator 对前三级解析出的对象做额外形状校验，返回错误时继续尝试下一级
type Validator func(obj map[string]any) error

// Result 提取结果
type Result struct {
	Object map[string]any
	Tier   Tier
}

// tier 单个策略：ok=false 表示不匹配，交给下一级
type tier struct {
	level Tier
	parse func(raw string) (map[string]any, bool)
}

// Extractor 分级提取器，无状态，可并发使用
type Extractor struct {
	tiers       []tier
	validate    Validator
	reconstruct ReconstructOptions
	observe     func(Tier)
}

// Option 提取器选项
type Option func(*Extractor)

// WithValidator 设置形状校验
func WithValidator(v Validator) Option {
	return func(e *Extractor) { e.validate = v }
}

// WithReconstructOptions 设置启发式重建参数
func WithReconstructOptions(opts ReconstructOptions) Option {
	return func(e *Extractor) { e.reconstruct = opts.WithDefaults() }
}

// WithTierObserver 每次成功提取后回调命中的级别
func WithTierObserver(fn func(Tier)) Option {
	return func(e *Extractor) { e.observe = fn }
}

// New 创建提取器
func New(opts ...Option) *Extractor {
	e := &Extractor{
		tiers: []tier{
			{level: TierDirect, parse: parseDirect},
			{level: TierFenced, parse: parseFenced},
			{level: TierBraceRepair, parse: parseBraceSpan},
		},
		reconstruct: DefaultReconstructOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 将 raw 转换为结构化对象。只有第四级自身出错时才返回 ErrExhausted
func (e *Extractor) Extract(raw string) (*Result, error) {
	for _, t := range e.tiers {
		obj, ok := t.parse(raw)
		if !ok {
			continue
		}
		if e.validate != nil && e.validate(obj) != nil {
			continue
		}
		return e.done(obj, t.level), nil
	}

	obj, err := Reconstruct(raw, e.reconstruct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExhausted, err)
	}
	if e.validate != nil {
		if err := e.validate(obj); err != nil {
			return nil, fmt.Errorf("%w: reconstructed object rejected: %v", ErrExhausted, err)
		}
	}
	return e.done(obj, TierHeuristic), nil
}

func (e *Extractor) done(obj map[string]any, level Tier) *Result {
	if e.observe != nil {
		e.observe(level)
	}
	return &Result{Object: obj, Tier: level}
}

var defaultExtractor = New()

// Extract 使用默认提取器（无形状校验）
func Extract(raw string) (map[string]any, error) {
	res, err := defaultExtractor.Extract(raw)
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}
