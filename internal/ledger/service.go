package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// Service records and inspects money-movement entries.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.LedgerEntry, error)
	HasEntry(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data a ledger entry requires.
type RecordEntryInput struct {
	OrderID     uuid.UUID             `json:"order_id"`
	BuyerID     uuid.UUID             `json:"buyer_id"`
	SellerID    uuid.UUID             `json:"seller_id"`
	ActorID     uuid.UUID             `json:"actor_id"`
	Type        enums.LedgerEntryType `json:"type"`
	AmountCents int64                 `json:"amount_cents"`
	FeeCents    int64                 `json:"fee_cents"`
	Reference   *string               `json:"reference,omitempty"`
	Metadata    json.RawMessage       `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Record appends an entry, joining the caller's transaction when tx is non-nil
// so the audit row commits atomically with the status transition it describes.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.LedgerEntry, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, fmt.Errorf("buyer id is required")
	}
	if input.SellerID == uuid.Nil {
		return nil, fmt.Errorf("seller id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, fmt.Errorf("actor id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger entry type %q", input.Type)
	}

	entry := &models.LedgerEntry{
		OrderID:     input.OrderID,
		BuyerID:     input.BuyerID,
		SellerID:    input.SellerID,
		ActorID:     input.ActorID,
		Type:        input.Type,
		AmountCents: input.AmountCents,
		FeeCents:    input.FeeCents,
		Reference:   input.Reference,
		Metadata:    input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) HasEntry(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if !entryType.IsValid() {
		return false, fmt.Errorf("invalid ledger entry type %q", entryType)
	}

	entries, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Type == entryType {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}
