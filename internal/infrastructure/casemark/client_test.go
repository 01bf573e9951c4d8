package casemark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
)

// newTestClient 指向 httptest 服务器的客户端
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.CaseMarkConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: config.Duration(5 * time.Second),
	})
}

func TestCreateStorageTarget(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/vaults/v1/objects", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "exhibit-a.pdf", req["filename"])

		json.NewEncoder(w).Encode(StorageTarget{
			ObjectID:  "obj-1",
			UploadURL: "https://storage.example.com/obj-1?sig=abc",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})
	})

	target, err := client.CreateStorageTarget(context.Background(), "v1", "exhibit-a.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "obj-1", target.ObjectID)
	assert.NotEmpty(t, target.UploadURL)
}

func TestListObjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vaults/v1/objects", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"objects": []*VaultObject{
				{ObjectID: "obj-1", IngestionStatus: RemoteStatusComplete, PageCount: 12},
				{ObjectID: "obj-2", IngestionStatus: RemoteStatusProcessing},
			},
		})
	})

	objects, err := client.ListObjects(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, 12, objects[0].PageCount)
}

func TestTriggerIngestionAlreadyInProgress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "ingestion already in progress"})
	})

	_, err := client.TriggerIngestion(context.Background(), "v1", "obj-1")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsAlreadyInProgress())
	assert.False(t, apiErr.IsRateLimited())
}

func TestAPIErrorClassification(t *testing.T) {
	// 消息形式的 already in progress（非 409）
	err := &APIError{StatusCode: http.StatusBadRequest, Message: "Ingestion Already In Progress for object"}
	assert.True(t, err.IsAlreadyInProgress())

	err = &APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
	assert.True(t, err.IsRateLimited())
	assert.False(t, err.IsAlreadyInProgress())

	err = &APIError{StatusCode: http.StatusNotFound, Message: "vault not found"}
	assert.True(t, err.IsNotFound())
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vaults/v1/search", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hybrid", req["method"])

		json.NewEncoder(w).Encode(SearchResult{
			Chunks: []*SearchChunk{
				{Text: "some chunk", ObjectID: "obj-1", CombinedScore: 0.87},
			},
			SourceIDs: []string{"obj-1"},
			Narrative: "an answer",
		})
	})

	result, err := client.Search(context.Background(), "v1", "what happened", 20)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "an answer", result.Narrative)
}

func TestMapIngestionStatus(t *testing.T) {
	assert.Equal(t, document.StatusProcessing, MapIngestionStatus(RemoteStatusQueued))
	assert.Equal(t, document.StatusProcessing, MapIngestionStatus(RemoteStatusProcessing))
	assert.Equal(t, document.StatusCompleted, MapIngestionStatus(RemoteStatusComplete))
	assert.Equal(t, document.StatusFailed, MapIngestionStatus(RemoteStatusFailed))
	assert.Equal(t, document.Status(""), MapIngestionStatus("something-new"))
}

func TestServerErrorSurfacesAsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.ListObjects(context.Background(), "v1")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
