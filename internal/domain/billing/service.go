package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
	"github.com/olawuwo-abideen/healthcare/pkg/pagination"
)

type Service struct {
	txns TransactionRepository
}

func NewService(txns TransactionRepository) *Service {
	return &Service{txns: txns}
}

// Record stores a successful capture. It is called by the booking flow inside
// its unit of work.
func (s *Service) Record(ctx context.Context, t *Transaction) error {
	if t.UserID == uuid.Nil {
		return fmt.Errorf("transaction user is required")
	}
	if t.PaymentIntentID == "" {
		return fmt.Errorf("transaction payment intent is required")
	}
	if t.Status == "" {
		t.Status = StatusSuccess
	}
	t.Currency = strings.ToLower(t.Currency)
	return s.txns.Create(ctx, t)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, p pagination.Params) (*Page, error) {
	items, total, err := s.txns.ListByUser(ctx, userID, p.Limit(), p.Offset())
	if err != nil {
		return nil, apperror.Internal(err, "list transactions")
	}
	if items == nil {
		items = []*Transaction{}
	}
	return &Page{
		TotalTransactions: total,
		TotalPage:         pagination.TotalPages(total, p.PageSize),
		CurrentPage:       p.Page,
		Transactions:      items,
	}, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	t, err := s.txns.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, apperror.FromDB(err, "Transaction not found")
	}
	return t, nil
}
