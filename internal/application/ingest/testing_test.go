package ingest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/cache"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/storage"
)

// MockRemoteGateway RemoteGateway 的 mock 实现
type MockRemoteGateway struct {
	mock.Mock
}

func (m *MockRemoteGateway) CreateVault(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteGateway) DeleteVault(ctx context.Context, vaultID string) error {
	args := m.Called(ctx, vaultID)
	return args.Error(0)
}

func (m *MockRemoteGateway) CreateStorageTarget(ctx context.Context, vaultID, filename, contentType string) (*casemark.StorageTarget, error) {
	args := m.Called(ctx, vaultID, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casemark.StorageTarget), args.Error(1)
}

func (m *MockRemoteGateway) ListObjects(ctx context.Context, vaultID string) ([]*casemark.VaultObject, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*casemark.VaultObject), args.Error(1)
}

func (m *MockRemoteGateway) TriggerIngestion(ctx context.Context, vaultID, objectID string) (*casemark.IngestionJob, error) {
	args := m.Called(ctx, vaultID, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casemark.IngestionJob), args.Error(1)
}

func (m *MockRemoteGateway) DeleteObject(ctx context.Context, vaultID, objectID string) error {
	args := m.Called(ctx, vaultID, objectID)
	return args.Error(0)
}

// testEnv 摄取模块测试环境：真实 sqlite 仓库 + 内存缓存 + mock 远程
type testEnv struct {
	db       *sql.DB
	docRepo  document.Repository
	caseRepo cases.Repository
	store    cache.Store
	remote   *MockRemoteGateway
	engine   *SyncEngine
	upload   *UploadService
	clock    *fakeClock
	syncCfg  *config.SyncConfig
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.OpenDB(&config.DatabaseConfig{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	syncCfg := &config.SyncConfig{
		ActiveWindow: config.Duration(2 * time.Second),
		IdleWindow:   config.Duration(10 * time.Second),
		EntryTTL:     config.Duration(60 * time.Second),
		StuckCutoff:  config.Duration(30 * time.Minute),
	}
	uploadCfg := &config.UploadConfig{
		SubBatchSize: 6,
		MaxBatchSize: 20,
		AllowedTypes: []string{".pdf", ".txt", ".docx"},
	}

	env := &testEnv{
		db:       db,
		docRepo:  storage.NewDocumentRepository(db),
		caseRepo: storage.NewCaseRepository(db),
		store:    cache.NewMemoryStore(),
		remote:   new(MockRemoteGateway),
		clock:    &fakeClock{t: time.Unix(1700000000, 0)},
		syncCfg:  syncCfg,
	}

	env.engine = NewSyncEngine(env.docRepo, env.remote, env.store, syncCfg, nil, nil)
	env.engine.now = env.clock.Now

	env.upload = NewUploadService(env.docRepo, env.caseRepo, env.remote, env.engine, uploadCfg, syncCfg)
	env.upload.now = env.clock.Now

	return env
}

// seedCase 插入一个测试案件
func (env *testEnv) seedCase(t *testing.T, id, vaultID string) *cases.Case {
	t.Helper()
	c := &cases.Case{
		ID:        id,
		Name:      "测试案件-" + id,
		VaultID:   vaultID,
		CreatedAt: env.clock.Now().Unix(),
		UpdatedAt: env.clock.Now().Unix(),
	}
	require.NoError(t, env.caseRepo.Save(c))
	return c
}

// seedDocument 插入一个测试文档
func (env *testEnv) seedDocument(t *testing.T, id, caseID, objectID string, status document.Status) *document.DocumentRecord {
	t.Helper()
	doc := &document.DocumentRecord{
		ID:            id,
		CaseID:        caseID,
		VaultObjectID: objectID,
		Filename:      id + ".pdf",
		ContentType:   "application/pdf",
		Status:        status,
		UploadedAt:    env.clock.Now().Unix(),
		UpdatedAt:     env.clock.Now().Unix(),
	}
	require.NoError(t, env.docRepo.Save(doc))
	return doc
}
