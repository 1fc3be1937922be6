package store

import (
	"context"
	"errors"
	"time"

	"retailpos/backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid request")
	ErrStateConflict   = errors.New("state conflict")
	ErrConfiguration   = errors.New("discount rule misconfigured")
	ErrVersionConflict = errors.New("invoice version conflict")
)

type Repository interface {
	ListDiscountRules(ctx context.Context) ([]domain.DiscountRule, error)
	ListActiveDiscountRules(ctx context.Context, asOf time.Time) ([]domain.DiscountRule, error)
	GetDiscountRuleByName(ctx context.Context, name string) (*domain.DiscountRule, error)

	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	GetCatalogItemByName(ctx context.Context, name string) (*domain.CatalogItem, error)
	GetCatalogItemByID(ctx context.Context, id string) (*domain.CatalogItem, error)

	FindOrderByToken(ctx context.Context, token string) (*domain.Order, error)
	CommitOrder(ctx context.Context, order domain.Order, usages []domain.DiscountUsage) (*domain.Order, error)

	GetInvoice(ctx context.Context, number string) (*domain.Invoice, error)

	CreateReturnRequest(ctx context.Context, req domain.ReturnRequest) (*domain.ReturnRequest, error)
	GetReturnRequestByID(ctx context.Context, id string) (*domain.ReturnRequest, error)
	ListReturnRequests(ctx context.Context, status string, limit int) ([]domain.ReturnRequest, error)
	TransitionReturnRequest(ctx context.Context, id string, from string, to string, reviewedAt time.Time) (*domain.ReturnRequest, error)

	SettleReturn(ctx context.Context, settlement domain.ReturnSettlement) (*domain.SettlementResult, error)

	ListRefundAudit(ctx context.Context, invoiceNumber string) ([]domain.RefundAuditRecord, error)
	PurgeRefundAudit(ctx context.Context, invoiceNumber string) (int, error)
	ListCardRefunds(ctx context.Context, invoiceNumber string) ([]domain.CardRefundRecord, error)

	GetLoyaltySettings(ctx context.Context) (domain.LoyaltySettings, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
