package entity

// IssueType 一致性结论类型
type IssueType string

const (
	IssueFirstTimeDuplicate IssueType = "FIRST_TIME_DUPLICATE"
	IssueKinkFirstDuplicate IssueType = "KINK_FIRST_DUPLICATE"
	IssueRelationJump       IssueType = "RELATION_JUMP"
)

// IssueSeverity 严重级别
type IssueSeverity string

const (
	SeverityInfo    IssueSeverity = "info"
	SeverityWarning IssueSeverity = "warning"
)

// Issue 一致性检查结论；由检查器产生，不持久化
type Issue struct {
	Type     IssueType         `json:"type"`
	Severity IssueSeverity     `json:"severity"`
	Message  string            `json:"message"`
	Current  ChapterRef        `json:"current"`
	Previous ChapterRef        `json:"previous"`
	Details  map[string]string `json:"details,omitempty"`
}
