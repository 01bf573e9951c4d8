package cases

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainCases "github.com/CaseMark/discovery-desktop/internal/domain/cases"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/storage"
)

// mockRemote 只实现案件服务用到的远程方法
type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) CreateVault(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *mockRemote) DeleteVault(ctx context.Context, vaultID string) error {
	args := m.Called(ctx, vaultID)
	return args.Error(0)
}

func (m *mockRemote) CreateStorageTarget(ctx context.Context, vaultID, filename, contentType string) (*casemark.StorageTarget, error) {
	args := m.Called(ctx, vaultID, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casemark.StorageTarget), args.Error(1)
}

func (m *mockRemote) ListObjects(ctx context.Context, vaultID string) ([]*casemark.VaultObject, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*casemark.VaultObject), args.Error(1)
}

func (m *mockRemote) TriggerIngestion(ctx context.Context, vaultID, objectID string) (*casemark.IngestionJob, error) {
	args := m.Called(ctx, vaultID, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casemark.IngestionJob), args.Error(1)
}

func (m *mockRemote) DeleteObject(ctx context.Context, vaultID, objectID string) error {
	args := m.Called(ctx, vaultID, objectID)
	return args.Error(0)
}

func setupService(t *testing.T) (*Service, *mockRemote, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.OpenDB(&config.DatabaseConfig{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	remote := new(mockRemote)
	svc := NewService(storage.NewCaseRepository(db), remote)
	return svc, remote, db
}

func TestCreate_EmptyName(t *testing.T) {
	svc, remote, _ := setupService(t)

	_, err := svc.Create(context.Background(), "  ")
	assert.ErrorIs(t, err, domainCases.ErrCaseNameRequired)
	remote.AssertNotCalled(t, "CreateVault", mock.Anything, mock.Anything)
}

func TestCreate_Success(t *testing.T) {
	svc, remote, _ := setupService(t)

	remote.On("CreateVault", mock.Anything, "合同纠纷").Return("vault-1", nil)

	c, err := svc.Create(context.Background(), "合同纠纷")
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "vault-1", c.VaultID)

	stored, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "合同纠纷", stored.Name)
}

func TestCreate_RemoteFailure(t *testing.T) {
	svc, remote, _ := setupService(t)

	remote.On("CreateVault", mock.Anything, "案件A").Return("", errors.New("service unavailable"))

	_, err := svc.Create(context.Background(), "案件A")
	assert.Error(t, err)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDelete_CascadesDocuments(t *testing.T) {
	svc, remote, db := setupService(t)

	remote.On("CreateVault", mock.Anything, "案件A").Return("vault-1", nil)
	remote.On("DeleteVault", mock.Anything, "vault-1").Return(nil)

	c, err := svc.Create(context.Background(), "案件A")
	require.NoError(t, err)

	docRepo := storage.NewDocumentRepository(db)
	require.NoError(t, docRepo.Save(&document.DocumentRecord{
		ID:            "doc-1",
		CaseID:        c.ID,
		VaultObjectID: "obj-1",
		Filename:      "a.pdf",
		Status:        document.StatusCompleted,
	}))

	require.NoError(t, svc.Delete(context.Background(), c.ID))

	_, err = svc.Get(context.Background(), c.ID)
	assert.ErrorIs(t, err, domainCases.ErrCaseNotFound)

	// 外键级联删除文档
	_, err = docRepo.Get("doc-1")
	assert.ErrorIs(t, err, document.ErrDocumentNotFound)
}

func TestDelete_RemoteVaultGoneTolerated(t *testing.T) {
	svc, remote, _ := setupService(t)

	remote.On("CreateVault", mock.Anything, "案件A").Return("vault-1", nil)
	remote.On("DeleteVault", mock.Anything, "vault-1").
		Return(&casemark.APIError{StatusCode: 404, Message: "vault not found"})

	c, err := svc.Create(context.Background(), "案件A")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), c.ID))

	_, err = svc.Get(context.Background(), c.ID)
	assert.ErrorIs(t, err, domainCases.ErrCaseNotFound)
}
