package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key violation")
	ErrUnavailable   = errors.New("store unavailable")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Gateway is the persistence interface for sourcing requests, suppliers,
// mirrored chat messages and the agent action log.
type Gateway interface {
	Ping(ctx context.Context) error

	// CreateSourcingRequest writes req together with any action logs that
	// describe it. Backends that support it write both atomically.
	CreateSourcingRequest(ctx context.Context, req *models.SourcingRequest, actions ...*models.ActionLog) error
	GetSourcingRequest(ctx context.Context, id uuid.UUID) (*models.SourcingRequest, error)
	UpdateSourcingRequestStatus(ctx context.Context, id uuid.UUID, status string) error
	ListSourcingRequests(ctx context.Context, filter Filter) ([]*models.SourcingRequest, error)

	ListSuppliers(ctx context.Context, filter Filter) ([]*models.Supplier, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, filter Filter) ([]*models.Message, error)

	LogAction(ctx context.Context, action *models.ActionLog) error
}
