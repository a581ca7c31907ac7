package consistency

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/domain/entity"
	"echoes-index-api/internal/infrastructure/embedding"
)

func ref(episode, chapter int) entity.ChapterRef {
	return entity.ChapterRef{Arc: "s1", Episode: episode, Chapter: chapter}
}

func TestCheckFirstTimeClaimsDuplicate(t *testing.T) {
	provider := embedding.NewSyntheticProvider("synthetic", 64)
	docs := []*ChapterDoc{
		{Ref: ref(1, 1), Content: "Lei lo guardò per la prima volta, senza fiato."},
		{Ref: ref(2, 3), Content: "Si toccarono per la prima volta sotto la pioggia."},
	}

	issues, err := CheckFirstTimeClaims(context.Background(), docs, provider, 0.85)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, entity.IssueFirstTimeDuplicate, issue.Type)
	assert.Equal(t, entity.SeverityInfo, issue.Severity)
	// current 指向较晚的章节
	assert.Equal(t, ref(2, 3), issue.Current)
	assert.Equal(t, ref(1, 1), issue.Previous)
	assert.NotEmpty(t, issue.Details["similarity"])
	assert.Contains(t, issue.Details["current_context"], "pioggia")
	assert.Contains(t, issue.Details["previous_context"], "fiato")
}

func TestCheckFirstTimeClaimsSkipsSingleClaim(t *testing.T) {
	provider := embedding.NewSyntheticProvider("synthetic", 64)
	docs := []*ChapterDoc{
		{Ref: ref(1, 1), Content: "She saw the sea for the first time."},
		{Ref: ref(1, 2), Content: "Nothing notable happens here."},
	}

	issues, err := CheckFirstTimeClaims(context.Background(), docs, provider, 0.85)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckFirstTimeClaimsSameChapterIgnored(t *testing.T) {
	provider := embedding.NewSyntheticProvider("synthetic", 64)
	docs := []*ChapterDoc{
		{Ref: ref(1, 1), Content: "For the first time she laughed. For the first time he cried."},
	}

	issues, err := CheckFirstTimeClaims(context.Background(), docs, provider, 0.85)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckKinkFirstDuplicates(t *testing.T) {
	docs := []*ChapterDoc{
		{Ref: ref(2, 1), Kink: "primo-plug"},
		{Ref: ref(1, 1), Kink: "bondage, primo plug, primo bacio"},
	}

	issues := CheckKinkFirstDuplicates(docs)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, entity.IssueKinkFirstDuplicate, issue.Type)
	assert.Equal(t, entity.SeverityWarning, issue.Severity)
	// 归一化后 "primo-plug" 与 "primo plug" 是同一主题；ep1 先确立
	assert.Equal(t, "plug", issue.Details["subject"])
	assert.Equal(t, ref(2, 1), issue.Current)
	assert.Equal(t, ref(1, 1), issue.Previous)
}

func TestCheckKinkFirstNoDuplicateWithinChapter(t *testing.T) {
	docs := []*ChapterDoc{
		{Ref: ref(1, 1), Kink: "primo bacio, Primo-Bacio"},
	}

	assert.Empty(t, CheckKinkFirstDuplicates(docs))
}

func TestCheckKinkFirstIgnoresPlainTags(t *testing.T) {
	docs := []*ChapterDoc{
		{Ref: ref(1, 1), Kink: "bondage, wax"},
		{Ref: ref(1, 2), Kink: "bondage"},
	}

	assert.Empty(t, CheckKinkFirstDuplicates(docs))
}

func newTestClassifier() *SentimentClassifier {
	return NewSentimentClassifier(
		[]string{"LOVES", "FRIENDS_WITH", "KNOWS"},
		[]string{"HATES", "ENEMIES_WITH"},
	)
}

func relationWith(relType entity.RelationType, weight float64, chapters ...string) *entity.Relation {
	rel := entity.NewRelation("s1", "Alice", "Bob", relType)
	rel.Weight = weight
	rel.Chapters = pq.StringArray(chapters)
	return rel
}

func TestClassifierDefaultsToNeutral(t *testing.T) {
	c := newTestClassifier()

	assert.Equal(t, SentimentPositive, c.Classify(entity.RelationLoves))
	assert.Equal(t, SentimentNegative, c.Classify(entity.RelationHates))
	assert.Equal(t, SentimentNeutral, c.Classify(entity.RelationLivesIn))
}

func TestCheckRelationJumpsPolarityFlip(t *testing.T) {
	relations := []*entity.Relation{
		relationWith(entity.RelationLoves, 0.9, "s1:ep01:ch001"),
		relationWith(entity.RelationHates, 0.8, "s1:ep02:ch001"),
	}

	issues := CheckRelationJumps(relations, newTestClassifier(), 0.5)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, entity.IssueRelationJump, issue.Type)
	assert.Equal(t, entity.SeverityWarning, issue.Severity)
	assert.Equal(t, "LOVES", issue.Details["previous_type"])
	assert.Equal(t, "HATES", issue.Details["current_type"])
	assert.Equal(t, ref(2, 1), issue.Current)
	assert.Equal(t, ref(1, 1), issue.Previous)
}

func TestCheckRelationJumpsWeightDrop(t *testing.T) {
	relations := []*entity.Relation{
		relationWith(entity.RelationLoves, 0.9, "s1:ep01:ch001"),
		relationWith(entity.RelationLoves, 0.3, "s1:ep02:ch001"),
	}

	issues := CheckRelationJumps(relations, newTestClassifier(), 0.5)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, entity.SeverityInfo, issue.Severity)
	assert.Equal(t, "0.90", issue.Details["previous_weight"])
	assert.Equal(t, "0.30", issue.Details["current_weight"])
}

func TestCheckRelationJumpsNoIssueOnGradualChange(t *testing.T) {
	relations := []*entity.Relation{
		relationWith(entity.RelationLoves, 0.9, "s1:ep01:ch001"),
		relationWith(entity.RelationLoves, 0.6, "s1:ep02:ch001"),
	}

	assert.Empty(t, CheckRelationJumps(relations, newTestClassifier(), 0.5))
}

func TestCheckRelationJumpsNeutralTransitionIgnored(t *testing.T) {
	relations := []*entity.Relation{
		relationWith(entity.RelationLoves, 0.9, "s1:ep01:ch001"),
		relationWith(entity.RelationKnows, 0.5, "s1:ep02:ch001"),
	}

	assert.Empty(t, CheckRelationJumps(relations, newTestClassifier(), 0.5))
}

func TestCheckRelationJumpsSortsOccurrences(t *testing.T) {
	// 出场乱序写入，比较前按 (episode, chapter) 排序
	relations := []*entity.Relation{
		relationWith(entity.RelationHates, 0.8, "s1:ep03:ch001"),
		relationWith(entity.RelationLoves, 0.9, "s1:ep01:ch001"),
	}

	issues := CheckRelationJumps(relations, newTestClassifier(), 0.5)
	require.Len(t, issues, 1)
	assert.Equal(t, ref(3, 1), issues[0].Current)
	assert.Equal(t, ref(1, 1), issues[0].Previous)
}
