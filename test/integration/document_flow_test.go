//go:build integration
// +build integration

package integration

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaseMark/discovery-desktop/internal/client"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/test/integration/framework"
)

func writeFiles(t *testing.T, names ...string) []string {
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("内容 "+name), 0o644))
		paths = append(paths, path)
	}
	return paths
}

// 完整流程：创建案件 → 批量上传 → 远程完成摄取 → 状态同步 → 案件分析
func TestDocumentLifecycle(t *testing.T) {
	env := framework.Setup(t)
	ctx := context.Background()

	c, err := env.API.CreateCase(ctx, "集成测试案件")
	require.NoError(t, err)
	require.NotEmpty(t, c.VaultID)

	// 批量上传 3 个文件（子批次大小 2，跨两个子批次）
	uploader := client.NewUploader(env.API, &env.Config.Upload, nil)
	tasks, err := uploader.NewTasks(writeFiles(t, "合同.pdf", "函件.txt", "报告.docx"))
	require.NoError(t, err)
	require.NoError(t, uploader.Upload(ctx, c.ID, tasks))

	for _, task := range tasks {
		assert.Equal(t, client.TaskCompleted, task.State, task.Filename)
	}

	// 直传内容确实到达了存储端
	objectIDs := env.Remote.ObjectIDs(c.VaultID)
	require.Len(t, objectIDs, 3)
	for _, oid := range objectIDs {
		assert.NotEmpty(t, env.Remote.UploadedBytes(oid))
	}

	// 确认后文档进入 processing
	docs, err := env.API.ListDocuments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, d := range docs {
		assert.Equal(t, document.StatusProcessing, d.Status)
	}

	// 远程完成摄取，列表接口顺带同步后文档应定型并回填页数
	for i, oid := range objectIDs {
		env.Remote.CompleteObject(oid, i+3, "提取的正文内容 "+oid)
	}
	assert.Eventually(t, func() bool {
		docs, err := env.API.ListDocuments(ctx, c.ID)
		if err != nil || len(docs) != 3 {
			return false
		}
		for _, d := range docs {
			if d.Status != document.StatusCompleted || d.PageCount == 0 {
				return false
			}
		}
		return true
	}, 3*time.Second, 20*time.Millisecond)

	// 完成事件经尾沿去抖后触发案件分析
	assert.Eventually(t, func() bool {
		result, err := env.API.GetAnalysis(ctx, c.ID)
		return err == nil && result != nil && len(result.Tags) > 0
	}, 3*time.Second, 20*time.Millisecond)

	result, err := env.API.GetAnalysis(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"合同纠纷", "证据材料"}, result.Tags)
	assert.NotEmpty(t, result.Summary)
	assert.Empty(t, result.LastError)

	// 文本透传端点
	var text struct {
		Text string `json:"text"`
	}
	status := env.GetJSON(t, "/api/v1/cases/"+c.ID+"/documents/"+docs[0].ID+"/text", &text)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, text.Text, "提取的正文内容")
}

// 摄取失败的文档可以重试
func TestDocumentRetryAfterFailure(t *testing.T) {
	env := framework.Setup(t)
	ctx := context.Background()

	c, err := env.API.CreateCase(ctx, "重试案件")
	require.NoError(t, err)

	uploader := client.NewUploader(env.API, &env.Config.Upload, nil)
	tasks, err := uploader.NewTasks(writeFiles(t, "证据.pdf"))
	require.NoError(t, err)
	require.NoError(t, uploader.Upload(ctx, c.ID, tasks))

	objectIDs := env.Remote.ObjectIDs(c.VaultID)
	require.Len(t, objectIDs, 1)
	env.Remote.FailObject(objectIDs[0])

	assert.Eventually(t, func() bool {
		docs, err := env.API.ListDocuments(ctx, c.ID)
		return err == nil && len(docs) == 1 && docs[0].Status == document.StatusFailed
	}, 3*time.Second, 20*time.Millisecond)

	docs, err := env.API.ListDocuments(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, env.API.Retry(ctx, c.ID, docs[0].ID))

	// 重试把状态拉回 processing（替身端重新排队）
	docs, err = env.API.ListDocuments(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusProcessing, docs[0].Status)
}

// 删除案件级联清掉文档和分析结果
func TestCaseDeleteCascades(t *testing.T) {
	env := framework.Setup(t)
	ctx := context.Background()

	c, err := env.API.CreateCase(ctx, "待删除案件")
	require.NoError(t, err)

	uploader := client.NewUploader(env.API, &env.Config.Upload, nil)
	tasks, err := uploader.NewTasks(writeFiles(t, "文档.txt"))
	require.NoError(t, err)
	require.NoError(t, uploader.Upload(ctx, c.ID, tasks))

	require.NoError(t, env.API.DeleteCase(ctx, c.ID))

	// 案件没了，文档列表应返回 404（客户端映射为 ErrCaseGone）
	_, err = env.API.ListDocuments(ctx, c.ID)
	assert.ErrorIs(t, err, client.ErrCaseGone)

	result, err := env.API.GetAnalysis(ctx, c.ID)
	assert.Error(t, err)
	assert.Nil(t, result)
}
