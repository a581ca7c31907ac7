package indexing

import (
	"regexp"
	"strings"

	"echoes-index-api/internal/domain/entity"
)

var (
	markdownHeading  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownEmphasis = regexp.MustCompile(`(\*{1,3}|_{1,3}|~~)`)
	markdownLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownImage    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	markdownCode     = regexp.MustCompile("(?s)```.*?```|`[^`]*`")
	markdownHTMLTag  = regexp.MustCompile(`<[^>]+>`)
)

// StripMarkdown 去除 markdown 标记，保留纯文本
func StripMarkdown(content string) string {
	s := markdownCode.ReplaceAllString(content, "")
	s = markdownImage.ReplaceAllString(s, "$1")
	s = markdownLink.ReplaceAllString(s, "$1")
	s = markdownHeading.ReplaceAllString(s, "")
	s = markdownEmphasis.ReplaceAllString(s, "")
	s = markdownHTMLTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// CountWords 统计空白分隔的词数
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountParagraphs 统计空行分隔的段落数
func CountParagraphs(text string) int {
	count := 0
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// ComputeStats 计算章节正文统计信息
func ComputeStats(content string) *entity.ChapterStats {
	clean := StripMarkdown(content)
	return &entity.ChapterStats{
		WordCount:      CountWords(clean),
		CharCount:      len([]rune(clean)),
		ParagraphCount: CountParagraphs(clean),
	}
}
