package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	domainSearch "github.com/CaseMark/discovery-desktop/internal/domain/search"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/storage"
)

// MockSearcher 远程检索 mock
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, vaultID, query string, topK int) (*casemark.SearchResult, error) {
	args := m.Called(ctx, vaultID, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casemark.SearchResult), args.Error(1)
}

// MockCompleter LLM mock
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type searchEnv struct {
	svc        *Service
	searcher   *MockSearcher
	completer  *MockCompleter
	searchRepo domainSearch.Repository
}

func setupSearch(t *testing.T) *searchEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.OpenDB(&config.DatabaseConfig{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	caseRepo := storage.NewCaseRepository(db)
	docRepo := storage.NewDocumentRepository(db)
	require.NoError(t, caseRepo.Save(&cases.Case{ID: "case-1", Name: "测试案件", VaultID: "vault-1"}))
	require.NoError(t, docRepo.Save(&document.DocumentRecord{
		ID:            "doc-1",
		CaseID:        "case-1",
		VaultObjectID: "obj-1",
		Filename:      "合同.pdf",
		Status:        document.StatusCompleted,
	}))

	env := &searchEnv{
		searcher:   new(MockSearcher),
		completer:  new(MockCompleter),
		searchRepo: storage.NewSearchRepository(db),
	}
	env.svc = NewService(
		env.searchRepo,
		caseRepo,
		docRepo,
		env.searcher,
		env.completer,
		&config.AnalysisConfig{MaxPromptTokens: 4000},
	)
	return env
}

func remoteChunks(scores ...float64) *casemark.SearchResult {
	result := &casemark.SearchResult{}
	for i, score := range scores {
		result.Chunks = append(result.Chunks, &casemark.SearchChunk{
			Text:          "片段内容",
			ObjectID:      "obj-1",
			PageNumber:    i + 1,
			VectorScore:   score,
			KeywordScore:  score,
			CombinedScore: score,
		})
	}
	return result
}

func TestExecute_EmptyQuery(t *testing.T) {
	env := setupSearch(t)

	_, err := env.svc.Execute(context.Background(), "case-1", "  ", ExecuteOptions{})
	assert.ErrorIs(t, err, domainSearch.ErrQueryRequired)
}

func TestExecute_InvalidThreshold(t *testing.T) {
	env := setupSearch(t)

	_, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{Threshold: 101})
	assert.ErrorIs(t, err, domainSearch.ErrInvalidThreshold)
}

func TestExecute_ThresholdFiltering(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.9, 0.6, 0.3), nil)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{Threshold: 50})
	require.NoError(t, err)

	// 阈值 50 → 综合得分 ≥ 0.5 的片段保留
	assert.Len(t, result.Response.Chunks, 2)
	assert.Equal(t, 3, result.Response.PrefilterCount)
	assert.Equal(t, 50, result.Response.Threshold)
	// 文件名从本地文档记录补齐
	assert.Equal(t, "合同.pdf", result.Response.Chunks[0].Filename)
	// 同一文档的多个片段去重为一个来源
	require.Len(t, result.Response.Sources, 1)
	assert.Equal(t, 2, result.Response.Sources[0].ChunkCount)
}

func TestExecute_HistoryPersisted(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.8), nil)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{Threshold: 30})
	require.NoError(t, err)
	require.NotEmpty(t, result.SearchID)

	rec, err := env.searchRepo.Get(result.SearchID)
	require.NoError(t, err)
	assert.Equal(t, "违约条款", rec.Query)
	assert.Equal(t, 1, rec.ResultCount)
	assert.Equal(t, 30, rec.Threshold)
}

func TestExecute_SkipHistory(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.8), nil)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{SkipHistory: true})
	require.NoError(t, err)
	assert.Empty(t, result.SearchID)

	list, err := env.svc.ListByCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGet_ReplaysCachedPayload(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.8), nil)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{Threshold: 20})
	require.NoError(t, err)

	// 回放不触发任何远程调用
	replayed, err := env.svc.Get(context.Background(), result.SearchID)
	require.NoError(t, err)
	assert.Equal(t, result.Response.Query, replayed.Query)
	assert.Len(t, replayed.Chunks, 1)
	env.searcher.AssertNumberOfCalls(t, "Search", 1)
}

func TestRerun_NewThresholdBypassesHistory(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.9, 0.4), nil)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{Threshold: 30})
	require.NoError(t, err)

	// 低于原阈值的片段根本没取回，改阈值必须重新执行而不是本地重过滤
	resp, err := env.svc.Rerun(context.Background(), result.SearchID, 80, false)
	require.NoError(t, err)
	assert.Len(t, resp.Chunks, 1)
	assert.Equal(t, 80, resp.Threshold)

	// 重新执行发起了第二次远程调用，但没有新增历史记录
	env.searcher.AssertNumberOfCalls(t, "Search", 2)
	list, err := env.svc.ListByCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// 未 persist 时原记录保持旧阈值
	rec, err := env.searchRepo.Get(result.SearchID)
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Threshold)
}

func TestRerun_PersistUpdatesRecordInPlace(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.9, 0.4), nil)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{Threshold: 30})
	require.NoError(t, err)

	_, err = env.svc.Rerun(context.Background(), result.SearchID, 80, true)
	require.NoError(t, err)

	rec, err := env.searchRepo.Get(result.SearchID)
	require.NoError(t, err)
	assert.Equal(t, 80, rec.Threshold)
	assert.Equal(t, 1, rec.ResultCount)
	assert.Equal(t, 2, rec.PrefilterCount)

	// 回放取到的是更新后的载荷
	replayed, err := env.svc.Get(context.Background(), result.SearchID)
	require.NoError(t, err)
	assert.Len(t, replayed.Chunks, 1)
	assert.Equal(t, 80, replayed.Threshold)
}

func TestExecute_SummaryFailureDoesNotFailSearch(t *testing.T) {
	env := setupSearch(t)

	env.searcher.On("Search", mock.Anything, "vault-1", "违约条款", defaultTopK).
		Return(remoteChunks(0.8), nil)
	env.completer.On("Complete", mock.Anything, mock.Anything).
		Return("", assert.AnError)

	result, err := env.svc.Execute(context.Background(), "case-1", "违约条款", ExecuteOptions{WithSummary: true})
	require.NoError(t, err)
	assert.Empty(t, result.Response.Summary)
	assert.Len(t, result.Response.Chunks, 1)
}
