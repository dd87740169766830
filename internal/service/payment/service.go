package payment

import (
	"context"
	"errors"
	"fmt"

	"commerce-backoffice/internal/domain"
	"commerce-backoffice/internal/processor"
	paymentrepo "commerce-backoffice/internal/repository/payment"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type paymentRepo interface {
	Update(ctx context.Context, p domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error)
	List(ctx context.Context, q paymentrepo.Query) ([]domain.Payment, error)
	GetDetail(ctx context.Context, paymentID int64) (*domain.PaymentDetail, error)
	GetPayLater(ctx context.Context, orderID int64) (*domain.PayLater, error)
}

type transactionReverser interface {
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, last4 string) processor.Result
	Void(ctx context.Context, transactionID string) processor.Result
}

// Service answers payment queries and reverses card transactions.
type Service struct {
	repo      paymentRepo
	processor transactionReverser
	logger    zerolog.Logger
}

// New accepts a nil processor; Refund and Void then fail with
// domain.ErrConfiguration.
func New(repo paymentRepo, proc transactionReverser, logger zerolog.Logger) *Service {
	return &Service{repo: repo, processor: proc, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

// ByOrder lists the payments of an order, newest first.
func (s *Service) ByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	return s.repo.List(ctx, paymentrepo.Query{OrderID: orderID})
}

func (s *Service) ByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return s.repo.GetByTransaction(ctx, transactionID)
}

// List filters by any combination of order, currency, method and store.
func (s *Service) List(ctx context.Context, q paymentrepo.Query) ([]domain.Payment, error) {
	return s.repo.List(ctx, q)
}

func (s *Service) Detail(ctx context.Context, paymentID int64) (*domain.PaymentDetail, error) {
	return s.repo.GetDetail(ctx, paymentID)
}

func (s *Service) PayLater(ctx context.Context, orderID int64) (*domain.PayLater, error) {
	return s.repo.GetPayLater(ctx, orderID)
}

// ErrNotReversible is returned for payments the processor cannot refund or void.
var ErrNotReversible = errors.New("only settled card payments can be reversed")

// Refund returns amount (the full payment when zero) to the card. A
// processor decline is reported in the Result and leaves the payment as is.
func (s *Service) Refund(ctx context.Context, paymentID int64, amount decimal.Decimal) (*domain.Payment, processor.Result, error) {
	p, err := s.reversible(ctx, paymentID)
	if err != nil {
		return nil, processor.Result{}, err
	}
	if amount.IsZero() {
		amount = p.Amount
	}
	if amount.IsNegative() || amount.GreaterThan(p.Amount) {
		return nil, processor.Result{}, domain.Invalidf("refund amount must be between 0 and %s", p.Amount.StringFixed(2))
	}
	last4 := ""
	if d, err := s.repo.GetDetail(ctx, p.ID); err == nil {
		last4 = lastFour(d.CardNumber)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, processor.Result{}, err
	}

	res := s.processor.Refund(ctx, p.TransactionID, amount, last4)
	if !res.OK() {
		s.logger.Info().Int64("payment_id", p.ID).Str("code", res.Code).Msg("payment: refund declined")
		return p, res, nil
	}
	p.Status = domain.PaymentRefunded
	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, res, err
	}
	s.logger.Info().Int64("payment_id", p.ID).Str("amount", amount.StringFixed(2)).Msg("payment: refunded")
	return p, res, nil
}

// Void cancels an unsettled card transaction.
func (s *Service) Void(ctx context.Context, paymentID int64) (*domain.Payment, processor.Result, error) {
	p, err := s.reversible(ctx, paymentID)
	if err != nil {
		return nil, processor.Result{}, err
	}
	res := s.processor.Void(ctx, p.TransactionID)
	if !res.OK() {
		return p, res, nil
	}
	p.Status = domain.PaymentCancelled
	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, res, err
	}
	s.logger.Info().Int64("payment_id", p.ID).Msg("payment: voided")
	return p, res, nil
}

func (s *Service) reversible(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	if s.processor == nil {
		return nil, fmt.Errorf("%w: card processor", domain.ErrConfiguration)
	}
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Method != CreditCardID || (p.Status != domain.PaymentPaid && p.Status != domain.PaymentCompleted) {
		return nil, ErrNotReversible
	}
	return p, nil
}

func lastFour(card string) string {
	if len(card) <= 4 {
		return card
	}
	return card[len(card)-4:]
}
