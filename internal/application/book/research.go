package book

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"z-book-ai-api/internal/application/book/extract"
	"z-book-ai-api/internal/application/book/model"
	workflowprompt "z-book-ai-api/internal/workflow/prompt"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

// RunMarketResearch 调研阶段：主题与参考资料 → 市场调研结果
func (o *Orchestrator) RunMarketResearch(ctx context.Context, topic string, references []string) (*model.MarketResearch, error) {
	var out *model.MarketResearch
	err := o.runStage(ctx, StageMarketResearch, func(ctx context.Context) error {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return apperrors.New(apperrors.CodeInvalidParam, "topic is required")
		}
		if o.cache == nil {
			r, err := o.research(ctx, topic, references)
			out = r
			return err
		}
		r, err := o.cachedResearch(ctx, topic, references)
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) cachedResearch(ctx context.Context, topic string, references []string) (*model.MarketResearch, error) {
	key := o.researchCacheKey(topic, references)

	var (
		loaded  bool
		loadErr error
	)
	data, err := o.cache.GetOrLoadSafe(ctx, key, o.settings.ResearchCacheTTL, func() (interface{}, error) {
		loaded = true
		r, err := o.research(ctx, topic, references)
		loadErr = err
		return r, err
	})
	if err != nil {
		if loadErr != nil {
			return nil, loadErr
		}
		metrics.CacheLookupTotal.WithLabelValues("research", "error").Inc()
		logger.Warn(ctx, "research cache unavailable, calling model directly", "error", err.Error())
		return o.research(ctx, topic, references)
	}

	var r model.MarketResearch
	if err := json.Unmarshal(data, &r); err != nil {
		metrics.CacheLookupTotal.WithLabelValues("research", "error").Inc()
		logger.Warn(ctx, "research cache entry corrupted, calling model directly", "error", err.Error())
		return o.research(ctx, topic, references)
	}
	if loaded {
		metrics.CacheLookupTotal.WithLabelValues("research", "miss").Inc()
	} else {
		metrics.CacheLookupTotal.WithLabelValues("research", "hit").Inc()
	}
	return r.Normalize(), nil
}

func (o *Orchestrator) research(ctx context.Context, topic string, references []string) (*model.MarketResearch, error) {
	res, err := o.call(ctx, StageMarketResearch, workflowMarketResearch, o.settings.Research,
		workflowprompt.PromptMarketResearchV1,
		map[string]any{
			"topic":            topic,
			"references_block": referencesBlock(references),
		},
		true,
	)
	if err != nil {
		return nil, err
	}

	ex := extract.New(
		extract.WithReconstructOptions(o.settings.Reconstruct),
		extract.WithTierObserver(tierObserver(ctx, StageMarketResearch)),
	)
	parsed, err := ex.Extract(res.Text)
	if err != nil {
		return nil, err
	}
	r, err := model.DecodeMarketResearch(parsed.Object)
	if err != nil {
		return nil, err
	}
	return r.Normalize(), nil
}

// researchCacheKey 主题大小写与参考资料顺序不影响命中
func (o *Orchestrator) researchCacheKey(topic string, references []string) string {
	refs := make([]string, 0, len(references))
	for _, r := range references {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	sort.Strings(refs)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(topic))))
	for _, r := range refs {
		h.Write([]byte{0})
		h.Write([]byte(r))
	}
	h.Write([]byte{0})
	h.Write([]byte(o.settings.Research.Provider + "/" + o.settings.Research.Model))
	return "book:research:" + hex.EncodeToString(h.Sum(nil))
}

// RunStructureGeneration 结构阶段：主题 + 调研结果 → 目录结构。
// 结果总满足结构不变量；失败时不返回任何部分结构。
func (o *Orchestrator) RunStructureGeneration(ctx context.Context, topic string, research *model.MarketResearch, references []string) (*model.BookStructure, error) {
	var out *model.BookStructure
	err := o.runStage(ctx, StageStructureGeneration, func(ctx context.Context) error {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return apperrors.New(apperrors.CodeInvalidParam, "topic is required")
		}
		r := copyResearch(research).Normalize()

		res, err := o.call(ctx, StageStructureGeneration, workflowBookStructure, o.settings.Structure,
			workflowprompt.PromptBookStructureV1,
			map[string]any{
				"topic":                topic,
				"target_audience":      r.TargetAudience,
				"pain_points":          inlineList(r.PainPoints),
				"desires":              inlineList(r.Desires),
				"market_gaps":          inlineList(r.MarketGaps),
				"tone":                 r.Tone,
				"style":                r.Style,
				"references_block":     referencesBlock(references),
				"target_chapter_count": o.settings.TargetChapterCount,
				"target_words_min":     o.settings.TargetWordsMin,
				"target_words_max":     o.settings.TargetWordsMax,
			},
			true,
		)
		if err != nil {
			return err
		}

		s, _, err := extract.ExtractStructure(res.Text, o.settings.Reconstruct,
			extract.WithTierObserver(tierObserver(ctx, StageStructureGeneration)))
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// copyResearch 避免 Normalize 改写调用方持有的对象
func copyResearch(r *model.MarketResearch) *model.MarketResearch {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
