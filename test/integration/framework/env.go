//go:build integration
// +build integration

package framework

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appAnalysis "github.com/CaseMark/discovery-desktop/internal/application/analysis"
	appCases "github.com/CaseMark/discovery-desktop/internal/application/cases"
	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	appSearch "github.com/CaseMark/discovery-desktop/internal/application/search"
	"github.com/CaseMark/discovery-desktop/internal/client"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/cache"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/llm"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/storage"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/websocket"
	httpiface "github.com/CaseMark/discovery-desktop/internal/interfaces/http"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/handler"
)

// Env 进程内组装的完整应用环境
// 远程服务和 LLM 都指向本地替身，同步/去抖窗口压缩到毫秒级
type Env struct {
	Remote *CaseMarkFake
	API    *client.APIClient
	Config *config.Config

	server *httptest.Server
}

// llmFake 固定返回一份合法的分析 JSON
func llmFake() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"tags":["合同纠纷","证据材料"],"summary":"这是一批测试文档。"}`
		writeJSON(w, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

// Setup 组装整个应用并在 httptest 上对外服务
func Setup(t *testing.T) *Env {
	remote := NewCaseMarkFake()
	t.Cleanup(remote.Close)

	llmServer := llmFake()
	t.Cleanup(llmServer.Close)

	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "integration.db")},
		CaseMark: config.CaseMarkConfig{
			BaseURL: remote.URL(),
			APIKey:  "test-key",
			Timeout: config.Duration(5 * time.Second),
		},
		Sync: config.SyncConfig{
			ActiveWindow: config.Duration(5 * time.Millisecond),
			IdleWindow:   config.Duration(20 * time.Millisecond),
			EntryTTL:     config.Duration(60 * time.Second),
			StuckCutoff:  config.Duration(30 * time.Minute),
		},
		Upload: config.UploadConfig{
			SubBatchSize: 2,
			MaxBatchSize: 20,
			AllowedTypes: []string{".pdf", ".txt", ".docx"},
		},
		Analysis: config.AnalysisConfig{
			Debounce:        config.Duration(30 * time.Millisecond),
			LLMBaseURL:      llmServer.URL,
			Model:           "test-model",
			MaxPromptTokens: 2000,
		},
		Cache: config.CacheConfig{Backend: "memory"},
	}

	db, err := storage.OpenDB(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	caseRepo := storage.NewCaseRepository(db)
	docRepo := storage.NewDocumentRepository(db)
	searchRepo := storage.NewSearchRepository(db)
	analysisRepo := storage.NewAnalysisRepository(db)

	store := cache.NewMemoryStore()
	remoteClient := casemark.NewClient(&cfg.CaseMark)
	llmClient := llm.NewClient(&cfg.Analysis)

	analyzer := appAnalysis.NewAnalyzer(caseRepo, docRepo, analysisRepo, remoteClient, llmClient, &cfg.Analysis)
	trigger := ingest.NewAnalysisTrigger(cfg.Analysis.Debounce.Std(), analyzer.Analyze)
	t.Cleanup(trigger.Stop)

	hub := websocket.NewHub()
	hub.Start()

	syncEngine := ingest.NewSyncEngine(docRepo, remoteClient, store, &cfg.Sync, trigger, hub)
	uploadSvc := ingest.NewUploadService(docRepo, caseRepo, remoteClient, syncEngine, &cfg.Upload, &cfg.Sync)
	caseSvc := appCases.NewService(caseRepo, remoteClient)
	searchSvc := appSearch.NewService(searchRepo, caseRepo, docRepo, remoteClient, llmClient, &cfg.Analysis)

	server := httpiface.NewServer(
		&cfg.Server,
		handler.NewCaseHandler(caseSvc),
		handler.NewDocumentHandler(uploadSvc, caseRepo, remoteClient),
		handler.NewSearchHandler(searchSvc),
		handler.NewAnalysisHandler(analyzer),
		handler.NewWSHandler(hub, caseRepo),
	)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return &Env{
		Remote: remote,
		API:    client.NewAPIClient(ts.URL),
		Config: cfg,
		server: ts,
	}
}

// BaseURL 应用服务地址
func (e *Env) BaseURL() string { return e.server.URL }

// GetJSON 对应用发起 GET 并解析统一响应载荷
func (e *Env) GetJSON(t *testing.T, path string, out any) int {
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if out != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return resp.StatusCode
}
