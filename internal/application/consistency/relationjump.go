package consistency

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"echoes-index-api/internal/domain/entity"
)

// Sentiment 关系情感分类
type Sentiment int

const (
	SentimentNeutral Sentiment = iota
	SentimentPositive
	SentimentNegative
)

// SentimentClassifier 关系类型到情感的查找表
// 未列出的类型视为中性
type SentimentClassifier struct {
	positive map[entity.RelationType]struct{}
	negative map[entity.RelationType]struct{}
}

// NewSentimentClassifier 由配置名单创建分类器
func NewSentimentClassifier(positive, negative []string) *SentimentClassifier {
	c := &SentimentClassifier{
		positive: make(map[entity.RelationType]struct{}, len(positive)),
		negative: make(map[entity.RelationType]struct{}, len(negative)),
	}
	for _, t := range positive {
		c.positive[entity.RelationType(strings.ToUpper(t))] = struct{}{}
	}
	for _, t := range negative {
		c.negative[entity.RelationType(strings.ToUpper(t))] = struct{}{}
	}
	return c
}

// Classify 返回关系类型的情感
func (c *SentimentClassifier) Classify(t entity.RelationType) Sentiment {
	if _, ok := c.positive[t]; ok {
		return SentimentPositive
	}
	if _, ok := c.negative[t]; ok {
		return SentimentNegative
	}
	return SentimentNeutral
}

// occurrence 关系的单次章节出场
type occurrence struct {
	Ref    entity.ChapterRef
	Type   entity.RelationType
	Weight float64
}

type pairKey struct {
	source string
	target string
}

// parseChapterKey 解析 "arc:ep01:ch003" 形式的章节键
func parseChapterKey(key string) (entity.ChapterRef, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return entity.ChapterRef{}, false
	}
	episode, err := strconv.Atoi(strings.TrimPrefix(parts[1], "ep"))
	if err != nil {
		return entity.ChapterRef{}, false
	}
	chapter, err := strconv.Atoi(strings.TrimPrefix(parts[2], "ch"))
	if err != nil {
		return entity.ChapterRef{}, false
	}
	return entity.ChapterRef{Arc: parts[0], Episode: episode, Chapter: chapter}, true
}

// CheckRelationJumps 关系情感跳变检查
// 按 (source, target) 分组，出场展平为 (episode, chapter, type, weight) 升序序列；
// 相邻出场极性翻转产出 warning，同类型权重骤降产出 info，两者可同时命中
func CheckRelationJumps(relations []*entity.Relation, classifier *SentimentClassifier, weightDropThreshold float64) []*entity.Issue {
	if weightDropThreshold <= 0 {
		weightDropThreshold = 0.5
	}

	groups := make(map[pairKey][]*occurrence)
	var order []pairKey
	for _, rel := range relations {
		key := pairKey{rel.SourceEntity, rel.TargetEntity}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		for _, ch := range rel.Chapters {
			ref, ok := parseChapterKey(ch)
			if !ok {
				continue
			}
			groups[key] = append(groups[key], &occurrence{
				Ref:    ref,
				Type:   rel.Type,
				Weight: rel.Weight,
			})
		}
	}

	var issues []*entity.Issue
	for _, key := range order {
		occs := groups[key]
		sort.SliceStable(occs, func(i, j int) bool {
			return occs[i].Ref.Before(occs[j].Ref)
		})

		for i := 1; i < len(occs); i++ {
			prev, curr := occs[i-1], occs[i]

			prevSentiment := classifier.Classify(prev.Type)
			currSentiment := classifier.Classify(curr.Type)
			flipped := (prevSentiment == SentimentPositive && currSentiment == SentimentNegative) ||
				(prevSentiment == SentimentNegative && currSentiment == SentimentPositive)
			if flipped {
				issues = append(issues, &entity.Issue{
					Type:     entity.IssueRelationJump,
					Severity: entity.SeverityWarning,
					Message: fmt.Sprintf("relation %s -> %s flips sentiment from %s to %s between consecutive occurrences",
						key.source, key.target, prev.Type, curr.Type),
					Current:  curr.Ref,
					Previous: prev.Ref,
					Details: map[string]string{
						"source":        key.source,
						"target":        key.target,
						"previous_type": string(prev.Type),
						"current_type":  string(curr.Type),
					},
				})
			}

			// 独立检查：同类型权重骤降
			if prev.Type == curr.Type && prev.Weight-curr.Weight > weightDropThreshold {
				issues = append(issues, &entity.Issue{
					Type:     entity.IssueRelationJump,
					Severity: entity.SeverityInfo,
					Message: fmt.Sprintf("relation %s -> %s (%s) weight drops from %.2f to %.2f between consecutive occurrences",
						key.source, key.target, curr.Type, prev.Weight, curr.Weight),
					Current:  curr.Ref,
					Previous: prev.Ref,
					Details: map[string]string{
						"source":          key.source,
						"target":          key.target,
						"type":            string(curr.Type),
						"previous_weight": fmt.Sprintf("%.2f", prev.Weight),
						"current_weight":  fmt.Sprintf("%.2f", curr.Weight),
					},
				})
			}
		}
	}
	return issues
}
