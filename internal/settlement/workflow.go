package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/events"
	"retailpos/backend/internal/store"
)

var ErrBadSecret = errors.New("admin secret mismatch")

const exchangeRefundMethod = "EXCHANGE"

// Workflow reconciles returns, exchanges, and refunds against issued
// invoices. Two entry classes exist: immediate settlements apply in a
// single call, gated settlements pass through the PENDING, APPROVED,
// PROCESSED state machine first. Both converge on one settle core so the
// inventory and ledger accounting cannot drift between paths.
type Workflow struct {
	repo            store.Repository
	publisher       events.Publisher
	locks           *invoiceLocks
	adminSecretHash string
	now             func() time.Time
}

// New builds a workflow. adminSecret gates the ledger purge; it is hashed
// immediately and never kept in clear. An empty secret disables purging.
func New(repo store.Repository, publisher events.Publisher, adminSecret string) *Workflow {
	if publisher == nil {
		publisher = events.Noop{}
	}
	adminSecretHash := ""
	if secret := strings.TrimSpace(adminSecret); secret != "" {
		if hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost); err == nil {
			adminSecretHash = string(hash)
		} else {
			log.Printf("[settlement] WARN: failed to hash admin secret, purge disabled: %v", err)
		}
	}
	return &Workflow{
		repo:            repo,
		publisher:       publisher,
		locks:           newInvoiceLocks(),
		adminSecretHash: adminSecretHash,
		now:             time.Now,
	}
}

// ProcessReturn settles a return immediately, without admin review. The
// refund is computed from the invoice's unit prices at time of sale.
func (w *Workflow) ProcessReturn(ctx context.Context, req domain.ImmediateReturnRequest) (*domain.SettlementResult, error) {
	if strings.TrimSpace(req.RefundMethod) == "" {
		return nil, fmt.Errorf("%w: refundMethod is required", store.ErrValidation)
	}
	return w.settle(ctx, req.InvoiceNumber, req.Items, settleOptions{
		refundMethod: req.RefundMethod,
	})
}

// ProcessExchange settles a same-item exchange: stock and invoice
// quantities move exactly as for a return, but no money is refunded and
// the invoice balance is untouched. The audit trail records the original
// item as its own replacement.
func (w *Workflow) ProcessExchange(ctx context.Context, req domain.ExchangeRequest) (*domain.SettlementResult, error) {
	return w.settle(ctx, req.InvoiceNumber, req.ReturnedItems, settleOptions{
		refundMethod: exchangeRefundMethod,
		exchange:     true,
	})
}

// ProcessCardRefund settles a return immediately and records a simulated
// refund instrument against the given bank account. No gateway is called;
// the instrument always reports SUCCESS.
func (w *Workflow) ProcessCardRefund(ctx context.Context, req domain.CardRefundRequest) (*domain.SettlementResult, error) {
	if strings.TrimSpace(req.AccountHolder) == "" || strings.TrimSpace(req.BankName) == "" || strings.TrimSpace(req.AccountNumber) == "" {
		return nil, fmt.Errorf("%w: account holder, bank name and account number are required", store.ErrValidation)
	}
	return w.settle(ctx, req.InvoiceNumber, req.Items, settleOptions{
		refundMethod: domain.RefundMethodCard,
		card: &domain.CardRefundRecord{
			AccountHolder: strings.TrimSpace(req.AccountHolder),
			BankName:      strings.TrimSpace(req.BankName),
			AccountNumber: strings.TrimSpace(req.AccountNumber),
		},
	})
}

// InitiateRefundRequest opens a PENDING request with a precomputed refund
// total. Nothing is mutated until an admin approves and processes it.
func (w *Workflow) InitiateRefundRequest(ctx context.Context, req domain.InitiateRefundRequest) (*domain.ReturnRequest, error) {
	if strings.TrimSpace(req.RefundMethod) == "" {
		return nil, fmt.Errorf("%w: refundMethod is required", store.ErrValidation)
	}
	if err := validateLines(req.InvoiceNumber, req.Items); err != nil {
		return nil, err
	}

	inv, err := w.repo.GetInvoice(ctx, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	resolved, err := w.resolveLines(ctx, inv, req.Items, false)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, line := range resolved {
		total += line.RefundCents
	}

	return w.repo.CreateReturnRequest(ctx, domain.ReturnRequest{
		InvoiceNumber:          req.InvoiceNumber,
		Lines:                  req.Items,
		RefundMethod:           req.RefundMethod,
		TotalRefundAmountCents: total,
		Status:                 domain.ReturnStatusPending,
		CreatedAt:              w.now().UTC(),
	})
}

// ApproveRequest moves a PENDING request to APPROVED.
func (w *Workflow) ApproveRequest(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	return w.review(ctx, id, domain.ReturnStatusApproved)
}

// RejectRequest moves a PENDING request to REJECTED. Rejected requests
// never reopen.
func (w *Workflow) RejectRequest(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	return w.review(ctx, id, domain.ReturnStatusRejected)
}

func (w *Workflow) review(ctx context.Context, id string, to string) (*domain.ReturnRequest, error) {
	req, err := w.repo.TransitionReturnRequest(ctx, id, domain.ReturnStatusPending, to, w.now().UTC())
	if err != nil {
		return nil, err
	}
	w.publisher.Publish(events.EventRefundRequestReviewed, req.InvoiceNumber, events.RefundRequestReviewedPayload{
		RequestID:     req.ID,
		InvoiceNumber: req.InvoiceNumber,
		Status:        req.Status,
	})
	return req, nil
}

// ProcessApprovedRequest settles a gated request. Only APPROVED requests
// may settle; any other state is a conflict and performs no mutation. The
// store re-checks the state inside the settlement critical section, so a
// concurrent reject cannot slip through between check and apply.
func (w *Workflow) ProcessApprovedRequest(ctx context.Context, id string) (*domain.SettlementResult, error) {
	req, err := w.repo.GetReturnRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.ReturnStatusApproved {
		return nil, fmt.Errorf("%w: request %s is %s, only APPROVED requests can be processed", store.ErrStateConflict, req.ID, req.Status)
	}
	return w.settle(ctx, req.InvoiceNumber, req.Lines, settleOptions{
		refundMethod: req.RefundMethod,
		requestID:    req.ID,
		gated:        true,
	})
}

func (w *Workflow) GetRequest(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	return w.repo.GetReturnRequestByID(ctx, id)
}

func (w *Workflow) ListRequests(ctx context.Context, status string, limit int) ([]domain.ReturnRequest, error) {
	return w.repo.ListReturnRequests(ctx, status, limit)
}

// History returns the refund ledger for one invoice, newest first.
func (w *Workflow) History(ctx context.Context, invoiceNumber string) ([]domain.RefundAuditRecord, error) {
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, fmt.Errorf("%w: invoiceNumber is required", store.ErrValidation)
	}
	return w.repo.ListRefundAudit(ctx, invoiceNumber)
}

func (w *Workflow) CardRefunds(ctx context.Context, invoiceNumber string) ([]domain.CardRefundRecord, error) {
	return w.repo.ListCardRefunds(ctx, invoiceNumber)
}

// PurgeHistory bulk-deletes ledger rows. The operation is gated by a
// shared admin secret compared against its bcrypt hash; a mismatch
// deletes nothing.
func (w *Workflow) PurgeHistory(ctx context.Context, secret string, invoiceNumber string) (int, error) {
	if w.adminSecretHash == "" {
		return 0, fmt.Errorf("%w: purge is disabled, no admin secret configured", ErrBadSecret)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(w.adminSecretHash), []byte(secret)); err != nil {
		return 0, ErrBadSecret
	}
	return w.repo.PurgeRefundAudit(ctx, invoiceNumber)
}

type settleOptions struct {
	refundMethod string
	requestID    string
	exchange     bool
	gated        bool
	card         *domain.CardRefundRecord
}

// settle is the single settlement core shared by every entry point. It
// serializes per invoice in-process, resolves each line against the
// invoice and catalog, and hands the store one atomic mutation. A version
// conflict from a competing writer is retried once against fresh state.
func (w *Workflow) settle(ctx context.Context, invoiceNumber string, lines []domain.ReturnLine, opts settleOptions) (*domain.SettlementResult, error) {
	if err := validateLines(invoiceNumber, lines); err != nil {
		return nil, err
	}

	unlock := w.locks.lock(invoiceNumber)
	defer unlock()

	for attempt := 0; ; attempt++ {
		result, err := w.settleOnce(ctx, invoiceNumber, lines, opts)
		if errors.Is(err, store.ErrVersionConflict) && attempt == 0 {
			log.Printf("[settlement] WARN: version conflict on invoice %s, retrying", invoiceNumber)
			continue
		}
		if err != nil {
			return nil, err
		}

		returned := make([]events.ReturnedLine, 0, len(lines))
		for _, rec := range result.AuditRecords {
			returned = append(returned, events.ReturnedLine{ItemID: rec.ItemID, Quantity: rec.Quantity})
		}
		w.publisher.Publish(events.EventReturnSettled, invoiceNumber, events.ReturnSettledPayload{
			InvoiceNumber:    invoiceNumber,
			RequestID:        opts.requestID,
			RefundMethod:     opts.refundMethod,
			TotalRefundCents: result.TotalRefundCents,
			PointsDeducted:   result.PointsDeducted,
			Lines:            returned,
		})
		return result, nil
	}
}

func (w *Workflow) settleOnce(ctx context.Context, invoiceNumber string, lines []domain.ReturnLine, opts settleOptions) (*domain.SettlementResult, error) {
	inv, err := w.repo.GetInvoice(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	resolved, err := w.resolveLines(ctx, inv, lines, opts.exchange)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, line := range resolved {
		total += line.RefundCents
	}

	deduct, err := w.pointsToDeduct(ctx, total, opts.gated)
	if err != nil {
		return nil, err
	}

	return w.repo.SettleReturn(ctx, domain.ReturnSettlement{
		InvoiceNumber:    invoiceNumber,
		InvoiceVersion:   inv.Version,
		CustomerID:       inv.CustomerID,
		Lines:            resolved,
		TotalRefundCents: total,
		RefundMethod:     opts.refundMethod,
		PointsToDeduct:   deduct,
		RequestID:        opts.requestID,
		CardRefund:       opts.card,
	})
}

// resolveLines maps return lines onto invoice items and the live catalog.
// Exchanges carry a zero refund per line and mark the item as its own
// replacement.
func (w *Workflow) resolveLines(ctx context.Context, inv *domain.Invoice, lines []domain.ReturnLine, exchange bool) ([]domain.SettlementLine, error) {
	byID := make(map[string]domain.InvoiceItem, len(inv.Items))
	for _, it := range inv.Items {
		byID[it.ID] = it
	}

	resolved := make([]domain.SettlementLine, 0, len(lines))
	requested := make(map[string]int, len(lines))
	for _, line := range lines {
		invItem, ok := byID[line.InvoiceItemID]
		if !ok {
			return nil, fmt.Errorf("%w: invoice %s has no item %s", store.ErrNotFound, inv.Number, line.InvoiceItemID)
		}
		// Quantities are validated in aggregate so a request repeating one
		// invoice item cannot return more than remains.
		requested[line.InvoiceItemID] += line.Quantity
		if requested[line.InvoiceItemID] > invItem.Quantity {
			return nil, fmt.Errorf("%w: cannot return %d of item %s, only %d remain on invoice %s",
				store.ErrValidation, requested[line.InvoiceItemID], invItem.ID, invItem.Quantity, inv.Number)
		}
		item, err := w.repo.GetCatalogItemByID(ctx, invItem.ItemID)
		if err != nil {
			return nil, err
		}

		out := domain.SettlementLine{
			InvoiceItemID:  invItem.ID,
			ItemID:         item.ID,
			Quantity:       line.Quantity,
			UnitPriceCents: invItem.UnitPriceCents,
			Reason:         line.Reason,
		}
		if exchange {
			out.ReplacementItemID = item.ID
		} else {
			out.RefundCents = invItem.UnitPriceCents * int64(line.Quantity)
		}
		resolved = append(resolved, out)
	}
	return resolved, nil
}

// pointsToDeduct converts a refund into a loyalty point deduction. The
// gated and immediate paths historically used different rates; both stay
// configurable instead of being unified.
func (w *Workflow) pointsToDeduct(ctx context.Context, refundCents int64, gated bool) (int64, error) {
	if refundCents < 1 {
		return 0, nil
	}
	settings, err := w.repo.GetLoyaltySettings(ctx)
	if err != nil {
		return 0, err
	}
	rate := settings.ImmediateRefundCentsPerPoint
	if gated {
		rate = settings.GatedRefundCentsPerPoint
	}
	if rate < 1 {
		return 0, nil
	}
	return refundCents / rate, nil
}

func validateLines(invoiceNumber string, lines []domain.ReturnLine) error {
	if strings.TrimSpace(invoiceNumber) == "" {
		return fmt.Errorf("%w: invoiceNumber is required", store.ErrValidation)
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one return line is required", store.ErrValidation)
	}
	for _, line := range lines {
		if strings.TrimSpace(line.InvoiceItemID) == "" || line.Quantity < 1 {
			return fmt.Errorf("%w: every return line needs an itemId and a positive quantity", store.ErrValidation)
		}
	}
	return nil
}
