package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/domain/repository"
)

// locatedSelect 连接层级表补齐章节定位字段
const locatedSelect = "chapters.*, timelines.name AS timeline_name, arcs.name AS arc_name, episodes.number AS episode_number"

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetByEpisodeAndNumber 按自然键获取章节
func (r *ChapterRepository) GetByEpisodeAndNumber(ctx context.Context, episodeID string, number int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByEpisodeAndNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "episode_id = ? AND number = ?", episodeID, number).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter by natural key: %w", err)
	}
	return &chapter, nil
}

// Update 更新章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// Delete 删除章节
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Chapter{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return nil
}

// locatedQuery 构造携带层级定位的基础查询
func (r *ChapterRepository) locatedQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&entity.Chapter{}).
		Select(locatedSelect).
		Joins("JOIN episodes ON episodes.id = chapters.episode_id").
		Joins("JOIN arcs ON arcs.id = episodes.arc_id").
		Joins("JOIN timelines ON timelines.id = arcs.timeline_id")
}

// ListLocated 返回带层级定位的章节，按 (弧名, 集号, 章号) 升序
func (r *ChapterRepository) ListLocated(ctx context.Context, arcName string) ([]*repository.LocatedChapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListLocated")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := r.locatedQuery(db)
	if arcName != "" {
		query = query.Where("arcs.name = ?", arcName)
	}

	var chapters []*repository.LocatedChapter
	if err := query.Order("arcs.name ASC, episodes.number ASC, chapters.number ASC").Scan(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list located chapters: %w", err)
	}
	return chapters, nil
}

// GetLocatedByPath 按文件路径获取带层级定位的章节
func (r *ChapterRepository) GetLocatedByPath(ctx context.Context, filePath string) (*repository.LocatedChapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetLocatedByPath")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter repository.LocatedChapter
	err := r.locatedQuery(db).Where("chapters.file_path = ?", filePath).Take(&chapter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter by path: %w", err)
	}
	return &chapter, nil
}

// ListFileHashes 返回全部章节的 file_path -> file_hash 映射
func (r *ChapterRepository) ListFileHashes(ctx context.Context) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListFileHashes")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rows []struct {
		FilePath string
		FileHash string
	}
	if err := db.Model(&entity.Chapter{}).Select("file_path, file_hash").Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list file hashes: %w", err)
	}

	hashes := make(map[string]string, len(rows))
	for _, row := range rows {
		hashes[row.FilePath] = row.FileHash
	}
	return hashes, nil
}
