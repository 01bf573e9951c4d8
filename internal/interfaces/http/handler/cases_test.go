package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appCases "github.com/CaseMark/discovery-desktop/internal/application/cases"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRemote 返回固定结果的远程替身
type stubRemote struct {
	vaultCounter int
}

func (s *stubRemote) CreateVault(ctx context.Context, name string) (string, error) {
	s.vaultCounter++
	return "vault-test", nil
}

func (s *stubRemote) DeleteVault(ctx context.Context, vaultID string) error { return nil }

func (s *stubRemote) CreateStorageTarget(ctx context.Context, vaultID, filename, contentType string) (*casemark.StorageTarget, error) {
	return &casemark.StorageTarget{ObjectID: "obj-test", UploadURL: "https://storage/put/obj-test"}, nil
}

func (s *stubRemote) ListObjects(ctx context.Context, vaultID string) ([]*casemark.VaultObject, error) {
	return nil, nil
}

func (s *stubRemote) TriggerIngestion(ctx context.Context, vaultID, objectID string) (*casemark.IngestionJob, error) {
	return &casemark.IngestionJob{JobID: "job-test"}, nil
}

func (s *stubRemote) DeleteObject(ctx context.Context, vaultID, objectID string) error { return nil }

// setupCaseRouter 创建案件路由
func setupCaseRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.OpenDB(&config.DatabaseConfig{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := appCases.NewService(storage.NewCaseRepository(db), &stubRemote{})
	h := NewCaseHandler(svc)

	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.POST("/cases", h.Create)
		api.GET("/cases", h.List)
		api.GET("/cases/:id", h.Get)
		api.DELETE("/cases/:id", h.Delete)
	}
	return router
}

func TestCaseHandler_CreateAndGet(t *testing.T) {
	router := setupCaseRouter(t)

	body, _ := json.Marshal(map[string]string{"name": "合同纠纷"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			ID      string `json:"ID"`
			Name    string `json:"Name"`
			VaultID string `json:"VaultID"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "合同纠纷", resp.Data.Name)
	assert.Equal(t, "vault-test", resp.Data.VaultID)

	// 按 ID 再取一次
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cases/"+resp.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCaseHandler_CreateMissingName(t *testing.T) {
	router := setupCaseRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseHandler_GetNotFound(t *testing.T) {
	router := setupCaseRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/no-such-case", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseHandler_Delete(t *testing.T) {
	router := setupCaseRouter(t)

	body, _ := json.Marshal(map[string]string{"name": "案件A"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			ID string `json:"ID"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/cases/"+resp.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cases/"+resp.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
