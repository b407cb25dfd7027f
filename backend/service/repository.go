package service

import (
	"context"

	"github.com/prajwallshetty/ClientX/backend/model"
)

// ContractRepository persists contracts. Every read is scoped by workspace.
//
// Update succeeds only if the stored version equals c.Version; on success
// c.Version is incremented and c.UpdatedAt refreshed.
type ContractRepository interface {
	Create(ctx context.Context, c *model.Contract) error
	Get(ctx context.Context, id, workspaceID string) (*model.Contract, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Contract, error)
	Update(ctx context.Context, c *model.Contract) error
}
