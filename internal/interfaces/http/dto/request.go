package dto

// IndexRequest 索引请求
type IndexRequest struct {
	// Arc 只索引指定故事弧；空表示全部
	Arc string `json:"arc"`
	// Force 忽略哈希对比，全量重建
	Force bool `json:"force"`
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query         string   `json:"query" binding:"required"`
	TopK          int      `json:"top_k"`
	Characters    []string `json:"characters"`
	AllCharacters bool     `json:"all_characters"`
	Arc           string   `json:"arc"`
	POV           string   `json:"pov"`
	UseGraphRAG   *bool    `json:"use_graphrag"`
	TimeoutMs     int      `json:"timeout_ms"`
}

// ConsistencyCheckRequest 一致性检查请求
type ConsistencyCheckRequest struct {
	Arc string `json:"arc" binding:"required"`
}

// GraphQuery 图查询参数
type GraphQuery struct {
	Arc           string   `form:"arc" binding:"required"`
	Format        string   `form:"format,default=json"` // mermaid | json | dot
	EntityTypes   []string `form:"entity_type"`
	RelationTypes []string `form:"relation_type"`
	Characters    []string `form:"character"`
}

// EntityListQuery 实体查询参数
type EntityListQuery struct {
	Arc      string `form:"arc"`
	Type     string `form:"type"`
	Name     string `form:"name"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// RelationListQuery 关系查询参数
type RelationListQuery struct {
	Arc      string `form:"arc"`
	Entity   string `form:"entity"`
	Source   string `form:"source"`
	Target   string `form:"target"`
	Type     string `form:"type"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// StatsQuery 统计查询参数
type StatsQuery struct {
	Arc     string `form:"arc"`
	Episode int    `form:"episode"`
	POV     string `form:"pov"`
}
