package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器，避免运行时联网下载 BPE 文件
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenEstimator 使用 tiktoken 精确估算 Token 数量
// 分析任务拼接多份文档文本，提交前必须控制在模型的上下文预算内
type TokenEstimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// 单例实例
var (
	estimatorInstance *TokenEstimator
	estimatorOnce     sync.Once
	estimatorErr      error
)

// GetTokenEstimator 获取 TokenEstimator 单例
// 编码文件加载开销大，进程内只加载一次
func GetTokenEstimator() (*TokenEstimator, error) {
	estimatorOnce.Do(func() {
		// cl100k_base 编码，GPT-4 / Claude 等模型兼容
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			estimatorErr = err
			return
		}
		estimatorInstance = &TokenEstimator{
			encoding: enc,
		}
	})

	if estimatorErr != nil {
		return nil, estimatorErr
	}
	return estimatorInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (e *TokenEstimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := e.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// TruncateToTokens 把文本截断到指定 Token 预算内
func (e *TokenEstimator) TruncateToTokens(text string, budget int) string {
	if text == "" || budget <= 0 {
		return ""
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := e.encoding.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return e.encoding.Decode(tokens[:budget])
}
