package consistency

import (
	"context"
	"fmt"
	"regexp"

	"echoes-index-api/internal/application/vector"
	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/infrastructure/embedding"
)

// firstTimePatterns "第一次"声明的意英双语短语模式
var firstTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)per la prima volta`),
	regexp.MustCompile(`(?i)era la prima volta`),
	regexp.MustCompile(`(?i)è la prima volta`),
	regexp.MustCompile(`(?i)la sua prima volta`),
	regexp.MustCompile(`(?i)for the first time`),
	regexp.MustCompile(`(?i)it was the first time`),
	regexp.MustCompile(`(?i)his first time`),
	regexp.MustCompile(`(?i)her first time`),
}

// claimContextRunes 每个匹配保留的上下文半径
const claimContextRunes = 50

// firstTimeClaim 单条"第一次"声明
type firstTimeClaim struct {
	Ref     entity.ChapterRef
	Text    string // 精确匹配文本，用于向量化
	Context string // ±50 字符上下文，用于结论展示
}

// extractFirstTimeClaims 提取一章中的全部声明
func extractFirstTimeClaims(doc *ChapterDoc) []*firstTimeClaim {
	var claims []*firstTimeClaim
	runes := []rune(doc.Content)

	for _, pattern := range firstTimePatterns {
		for _, loc := range pattern.FindAllStringIndex(doc.Content, -1) {
			matched := doc.Content[loc[0]:loc[1]]

			// 字节偏移换算为 rune 偏移以截取上下文
			start := len([]rune(doc.Content[:loc[0]]))
			end := len([]rune(doc.Content[:loc[1]]))
			ctxStart := start - claimContextRunes
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := end + claimContextRunes
			if ctxEnd > len(runes) {
				ctxEnd = len(runes)
			}

			claims = append(claims, &firstTimeClaim{
				Ref:     doc.Ref,
				Text:    matched,
				Context: string(runes[ctxStart:ctxEnd]),
			})
		}
	}
	return claims
}

// CheckFirstTimeClaims "第一次"声明去重检查
// 向量化每条声明的精确匹配文本，成对比较余弦相似度；
// 达到阈值的无序对产出一条 info 级 FIRST_TIME_DUPLICATE
func CheckFirstTimeClaims(ctx context.Context, docs []*ChapterDoc, provider embedding.Provider, threshold float64) ([]*entity.Issue, error) {
	if threshold <= 0 {
		threshold = 0.85
	}

	var claims []*firstTimeClaim
	for _, doc := range docs {
		claims = append(claims, extractFirstTimeClaims(doc)...)
	}
	if len(claims) < 2 {
		return nil, nil
	}

	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	vectors, err := provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("claim embedding failed: %w", err)
	}
	if len(vectors) != len(claims) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(claims))
	}

	var issues []*entity.Issue
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			a, b := claims[i], claims[j]
			if a.Ref == b.Ref {
				continue
			}

			sim := vector.CosineSimilarity(vectors[i], vectors[j])
			if sim < threshold {
				continue
			}

			current, previous := a, b
			if current.Ref.Before(previous.Ref) {
				current, previous = previous, current
			}

			issues = append(issues, &entity.Issue{
				Type:     entity.IssueFirstTimeDuplicate,
				Severity: entity.SeverityInfo,
				Message: fmt.Sprintf("first-time claim repeated across chapters (similarity %.2f): %q",
					sim, current.Text),
				Current:  current.Ref,
				Previous: previous.Ref,
				Details: map[string]string{
					"similarity":       fmt.Sprintf("%.4f", sim),
					"current_context":  current.Context,
					"previous_context": previous.Context,
				},
			})
		}
	}
	return issues, nil
}
