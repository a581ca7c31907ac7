// Package indexing 提供内容扫描、层级同步与章节索引
package indexing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"echoes-index-api/pkg/logger"
)

var tracer = otel.Tracer("indexing")

var (
	episodeDirPattern  = regexp.MustCompile(`^ep(\d+)`)
	chapterFilePattern = regexp.MustCompile(`^ep\d+-ch(\d+)`)
)

// ChapterDescriptor 扫描得到的章节描述
type ChapterDescriptor struct {
	FilePath string `json:"file_path"`
	FileHash string `json:"file_hash"`
	Timeline string `json:"timeline"`
	Arc      string `json:"arc"`
	Episode  int    `json:"episode"`
	Chapter  int    `json:"chapter"`
	POV      string `json:"pov"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
	Date     string `json:"date,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Kink     string `json:"kink,omitempty"`
	Content  string `json:"-"`
}

// frontmatter 章节文件头部元数据
type frontmatter struct {
	Episode  int    `yaml:"episode"`
	Chapter  int    `yaml:"chapter"`
	POV      string `yaml:"pov"`
	Title    string `yaml:"title"`
	Location string `yaml:"location"`
	Date     string `yaml:"date"`
	Excerpt  string `yaml:"excerpt"`
	Kink     string `yaml:"kink"`
}

// Scanner 内容目录扫描器
// 目录布局：content/<arc>/epNN-title/epNN-chMMM-pov-title.md
type Scanner struct {
	root     string
	timeline string
}

// NewScanner 创建扫描器
func NewScanner(root, timeline string) *Scanner {
	if timeline == "" {
		timeline = "main"
	}
	return &Scanner{root: root, timeline: timeline}
}

// Scan 遍历内容目录，返回按 (arc, episode, chapter) 升序的章节描述
// 使用显式栈避免递归，单个子树的错误只跳过该子树
func (s *Scanner) Scan(ctx context.Context) ([]*ChapterDescriptor, error) {
	ctx, span := tracer.Start(ctx, "indexing.Scanner.Scan",
		trace.WithAttributes(attribute.String("content.root", s.root)))
	defer span.End()

	info, err := os.Stat(s.root)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("content root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root is not a directory: %s", s.root)
	}

	var chapters []*ChapterDescriptor

	// 显式工作栈代替递归下降
	stack := []string{s.root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn(ctx, "skipping unreadable directory", "dir", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(dir, name)

			if entry.IsDir() {
				if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
					continue
				}
				stack = append(stack, path)
				continue
			}

			if !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, "_") || name == "README.md" {
				continue
			}

			desc, err := s.parseChapterFile(path)
			if err != nil {
				// 单个坏文件不终止整次扫描
				logger.Warn(ctx, "skipping unparsable chapter file", "path", path, "error", err)
				continue
			}
			if desc != nil {
				chapters = append(chapters, desc)
			}
		}
	}

	sort.SliceStable(chapters, func(i, j int) bool {
		a, b := chapters[i], chapters[j]
		if a.Arc != b.Arc {
			return a.Arc < b.Arc
		}
		if a.Episode != b.Episode {
			return a.Episode < b.Episode
		}
		return a.Chapter < b.Chapter
	})

	span.SetAttributes(attribute.Int("chapters.found", len(chapters)))
	return chapters, nil
}

// parseChapterFile 解析单个章节文件
// 路径约定优先，frontmatter 作为回退来源
func (s *Scanner) parseChapterFile(path string) (*ChapterDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	content := string(raw)

	meta, body := parseFrontmatter(content)

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return nil, fmt.Errorf("failed to relativize path: %w", err)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 3 {
		// 不符合 arc/episode/chapter 布局的文件不是章节
		return nil, nil
	}

	arc := parts[0]
	stem := strings.TrimSuffix(filepath.Base(path), ".md")

	episode := meta.Episode
	if m := episodeDirPattern.FindStringSubmatch(parts[1]); m != nil {
		episode, _ = strconv.Atoi(m[1])
	}
	if episode == 0 {
		episode = 1
	}

	chapter := meta.Chapter
	if m := chapterFilePattern.FindStringSubmatch(stem); m != nil {
		chapter, _ = strconv.Atoi(m[1])
	}
	if chapter == 0 {
		chapter = 1
	}

	pov := meta.POV
	if pov == "" {
		// 文件名约定：ep01-ch001-alice-title.md
		if nameParts := strings.Split(stem, "-"); len(nameParts) >= 3 && chapterFilePattern.MatchString(stem) {
			pov = nameParts[2]
		}
	}
	if pov == "" {
		pov = "unknown"
	}
	pov = strings.ToLower(pov)

	title := meta.Title
	if title == "" {
		title = stem
	}

	return &ChapterDescriptor{
		FilePath: filepath.ToSlash(rel),
		FileHash: ComputeHash(content),
		Timeline: s.timeline,
		Arc:      arc,
		Episode:  episode,
		Chapter:  chapter,
		POV:      pov,
		Title:    title,
		Location: meta.Location,
		Date:     meta.Date,
		Excerpt:  meta.Excerpt,
		Kink:     meta.Kink,
		Content:  body,
	}, nil
}

// parseFrontmatter 解析 YAML frontmatter，返回元数据和正文
// 无 frontmatter 或解析失败时返回零值元数据和原始内容
func parseFrontmatter(content string) (frontmatter, string) {
	var meta frontmatter

	if !strings.HasPrefix(content, "---") {
		return meta, content
	}

	end := strings.Index(content[3:], "---")
	if end == -1 {
		return meta, content
	}
	end += 3

	block := strings.TrimSpace(content[3:end])
	body := strings.TrimSpace(content[end+3:])

	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return frontmatter{}, content
	}
	return meta, body
}

// ComputeHash 计算内容的 SHA256 哈希，取前 16 位十六进制
func ComputeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
