package ingest

import (
	"context"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
)

// RemoteGateway 摄取流程需要的远程服务能力
// 由 casemark.Client 实现，接口化便于测试替身
type RemoteGateway interface {
	CreateVault(ctx context.Context, name string) (string, error)
	DeleteVault(ctx context.Context, vaultID string) error
	CreateStorageTarget(ctx context.Context, vaultID, filename, contentType string) (*casemark.StorageTarget, error)
	ListObjects(ctx context.Context, vaultID string) ([]*casemark.VaultObject, error)
	TriggerIngestion(ctx context.Context, vaultID, objectID string) (*casemark.IngestionJob, error)
	DeleteObject(ctx context.Context, vaultID, objectID string) error
}

var _ RemoteGateway = (*casemark.Client)(nil)
