package consistency

import (
	"fmt"
	"strings"

	"echoes-index-api/internal/domain/entity"
)

// firstMarkers "首次"标签前缀约定
var firstMarkers = []string{"primo", "prima", "first"}

// normalizeTag 大小写折叠并去除连字符/空格差异
func normalizeTag(tag string) string {
	s := strings.ToLower(strings.TrimSpace(tag))
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// firstTagSubject 判断标签是否带"首次"标记，是则返回归一化主题
func firstTagSubject(tag string) (string, bool) {
	norm := normalizeTag(tag)
	for _, marker := range firstMarkers {
		if strings.HasPrefix(norm, marker+" ") {
			subject := strings.TrimSpace(strings.TrimPrefix(norm, marker+" "))
			if subject != "" {
				return subject, true
			}
		}
	}
	return "", false
}

// CheckKinkFirstDuplicates 首次标签重复检查
// 按 (episode, chapter) 升序处理；首个携带某归一化主题的章节确立该主题，
// 之后再次出现的同主题标签产出 warning 级 KINK_FIRST_DUPLICATE
func CheckKinkFirstDuplicates(docs []*ChapterDoc) []*entity.Issue {
	ordered := make([]*ChapterDoc, len(docs))
	copy(ordered, docs)
	sortDocs(ordered)

	established := make(map[string]entity.ChapterRef)
	var issues []*entity.Issue

	for _, doc := range ordered {
		if doc.Kink == "" {
			continue
		}

		// 同章内去重，避免同一主题重复记账
		seen := make(map[string]struct{})
		for _, tag := range strings.Split(doc.Kink, ",") {
			subject, ok := firstTagSubject(tag)
			if !ok {
				continue
			}
			if _, dup := seen[subject]; dup {
				continue
			}
			seen[subject] = struct{}{}

			if first, exists := established[subject]; exists {
				issues = append(issues, &entity.Issue{
					Type:     entity.IssueKinkFirstDuplicate,
					Severity: entity.SeverityWarning,
					Message:  fmt.Sprintf("first-occurrence tag %q already established in an earlier chapter", subject),
					Current:  doc.Ref,
					Previous: first,
					Details: map[string]string{
						"subject": subject,
						"tag":     strings.TrimSpace(tag),
					},
				})
				continue
			}
			established[subject] = doc.Ref
		}
	}
	return issues
}
