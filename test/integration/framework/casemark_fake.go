//go:build integration
// +build integration

// Package framework 集成测试的组装与远程服务替身
package framework

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
)

// objectState 远程对象在替身里的状态
type objectState struct {
	vaultID   string
	filename  string
	status    string
	pageCount int
	sizeBytes int64
	text      string
}

// CaseMarkFake 进程内的远程服务替身
// 实现 vault/对象/摄取/检索端点的最小行为，状态推进由测试显式控制
type CaseMarkFake struct {
	mu sync.Mutex

	server  *httptest.Server
	nextID  int
	vaults  map[string]bool
	objects map[string]*objectState
	uploads map[string][]byte
	search  *casemark.SearchResult
}

// NewCaseMarkFake 启动替身服务
func NewCaseMarkFake() *CaseMarkFake {
	f := &CaseMarkFake{
		vaults:  make(map[string]bool),
		objects: make(map[string]*objectState),
		uploads: make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /vaults", f.createVault)
	mux.HandleFunc("DELETE /vaults/{vid}", f.deleteVault)
	mux.HandleFunc("POST /vaults/{vid}/objects", f.createObject)
	mux.HandleFunc("GET /vaults/{vid}/objects", f.listObjects)
	mux.HandleFunc("POST /vaults/{vid}/objects/{oid}/ingest", f.triggerIngestion)
	mux.HandleFunc("GET /vaults/{vid}/objects/{oid}/text", f.getText)
	mux.HandleFunc("DELETE /vaults/{vid}/objects/{oid}", f.deleteObject)
	mux.HandleFunc("POST /vaults/{vid}/search", f.doSearch)
	mux.HandleFunc("PUT /storage/{oid}", f.storeUpload)

	f.server = httptest.NewServer(mux)
	return f
}

// URL 替身服务地址
func (f *CaseMarkFake) URL() string { return f.server.URL }

// Close 关闭替身服务
func (f *CaseMarkFake) Close() { f.server.Close() }

// ObjectIDs 返回 vault 内全部对象 ID
func (f *CaseMarkFake) ObjectIDs(vaultID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, obj := range f.objects {
		if obj.vaultID == vaultID {
			ids = append(ids, id)
		}
	}
	return ids
}

// CompleteObject 把对象推进到摄取完成，同时写入页数和提取文本
func (f *CaseMarkFake) CompleteObject(objectID string, pageCount int, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[objectID]; ok {
		obj.status = casemark.RemoteStatusComplete
		obj.pageCount = pageCount
		obj.sizeBytes = int64(len(f.uploads[objectID]))
		obj.text = text
	}
}

// FailObject 把对象推进到摄取失败
func (f *CaseMarkFake) FailObject(objectID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[objectID]; ok {
		obj.status = casemark.RemoteStatusFailed
	}
}

// SetSearchResult 配置检索端点的返回值
func (f *CaseMarkFake) SetSearchResult(result *casemark.SearchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.search = result
}

// UploadedBytes 返回直传收到的文件内容
func (f *CaseMarkFake) UploadedBytes(objectID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[objectID]
}

func (f *CaseMarkFake) createVault(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.nextID++
	vaultID := fmt.Sprintf("vault-%d", f.nextID)
	f.vaults[vaultID] = true
	f.mu.Unlock()

	writeJSON(w, map[string]string{"vault_id": vaultID})
}

func (f *CaseMarkFake) deleteVault(w http.ResponseWriter, r *http.Request) {
	vaultID := r.PathValue("vid")

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.vaults[vaultID] {
		writeError(w, http.StatusNotFound, "vault not found")
		return
	}
	delete(f.vaults, vaultID)
	for id, obj := range f.objects {
		if obj.vaultID == vaultID {
			delete(f.objects, id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *CaseMarkFake) createObject(w http.ResponseWriter, r *http.Request) {
	vaultID := r.PathValue("vid")

	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.nextID++
	objectID := fmt.Sprintf("obj-%d", f.nextID)
	f.objects[objectID] = &objectState{
		vaultID:  vaultID,
		filename: req.Filename,
		status:   "",
	}
	f.mu.Unlock()

	writeJSON(w, casemark.StorageTarget{
		ObjectID:  objectID,
		UploadURL: f.server.URL + "/storage/" + objectID,
	})
}

func (f *CaseMarkFake) listObjects(w http.ResponseWriter, r *http.Request) {
	vaultID := r.PathValue("vid")

	f.mu.Lock()
	var objects []*casemark.VaultObject
	for id, obj := range f.objects {
		if obj.vaultID != vaultID {
			continue
		}
		objects = append(objects, &casemark.VaultObject{
			ObjectID:        id,
			IngestionStatus: obj.status,
			PageCount:       obj.pageCount,
			SizeBytes:       obj.sizeBytes,
		})
	}
	f.mu.Unlock()

	writeJSON(w, map[string]any{"objects": objects})
}

func (f *CaseMarkFake) triggerIngestion(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("oid")

	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[objectID]
	if !ok {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	if obj.status == casemark.RemoteStatusQueued || obj.status == casemark.RemoteStatusProcessing {
		writeError(w, http.StatusConflict, "ingestion already in progress")
		return
	}
	obj.status = casemark.RemoteStatusQueued

	writeJSON(w, casemark.IngestionJob{JobID: "job-" + objectID, Status: obj.status})
}

func (f *CaseMarkFake) getText(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("oid")

	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[objectID]
	if !ok || obj.text == "" {
		writeError(w, http.StatusNotFound, "text not available")
		return
	}
	writeJSON(w, casemark.ObjectText{
		Text:       obj.text,
		TextLength: len(obj.text),
		PageCount:  obj.pageCount,
	})
}

func (f *CaseMarkFake) deleteObject(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("oid")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[objectID]; !ok {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	delete(f.objects, objectID)
	w.WriteHeader(http.StatusNoContent)
}

func (f *CaseMarkFake) doSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	result := f.search
	f.mu.Unlock()

	if result == nil {
		result = &casemark.SearchResult{}
	}
	writeJSON(w, result)
}

func (f *CaseMarkFake) storeUpload(w http.ResponseWriter, r *http.Request) {
	objectID := r.PathValue("oid")
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.uploads[objectID] = data
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
