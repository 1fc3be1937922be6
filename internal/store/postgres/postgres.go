package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const ruleColumns = `id, name, scope, target_item_id, target_category_id, loyalty_tier,
	fixed_amount_cents, percentage, duration_label, active_from, active`

func (s *Store) ListDiscountRules(ctx context.Context) ([]domain.DiscountRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM discount_rules
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s *Store) ListActiveDiscountRules(ctx context.Context, asOf time.Time) ([]domain.DiscountRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM discount_rules
		WHERE active = true AND active_from <= $1
		ORDER BY name
	`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s *Store) GetDiscountRuleByName(ctx context.Context, name string) (*domain.DiscountRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM discount_rules
		WHERE lower(name) = lower($1)
	`, name)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, loyalty_tier, points
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.LoyaltyTier, &c.Points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCatalogItemByName(ctx context.Context, name string) (*domain.CatalogItem, error) {
	return s.getCatalogItem(ctx, `lower(name) = lower($1)`, name)
}

func (s *Store) GetCatalogItemByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	return s.getCatalogItem(ctx, `id = $1`, id)
}

func (s *Store) getCatalogItem(ctx context.Context, where string, arg string) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category_id, price_cents, stock_qty
		FROM catalog_items
		WHERE `+where, arg).Scan(&item.ID, &item.Name, &item.CategoryID, &item.PriceCents, &item.StockQty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindOrderByToken(ctx context.Context, token string) (*domain.Order, error) {
	return s.findOrder(ctx, s.db, `order_token = $1`, token)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) findOrder(ctx context.Context, q queryRower, where string, arg string) (*domain.Order, error) {
	var o domain.Order
	var linesRaw []byte
	err := q.QueryRowContext(ctx, `
		SELECT id, order_token, COALESCE(customer_id, ''), subtotal_cents, discount_cents,
		       total_cents, points_earned, lines, created_at
		FROM orders
		WHERE `+where, arg).Scan(&o.ID, &o.OrderToken, &o.CustomerID, &o.SubtotalCents,
		&o.DiscountCents, &o.TotalCents, &o.PointsEarned, &linesRaw, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(linesRaw, &o.Lines); err != nil {
		return nil, err
	}
	return &o, nil
}

// CommitOrder inserts the order and its usage rows and credits the
// customer's points in one serializable transaction. The order token is
// unique: a concurrent resubmit loses the insert race and gets the
// original row back instead of an error.
func (s *Store) CommitOrder(ctx context.Context, order domain.Order, usages []domain.DiscountUsage) (*domain.Order, error) {
	if order.OrderToken == "" || len(order.Lines) == 0 {
		return nil, store.ErrValidation
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	linesRaw, err := json.Marshal(order.Lines)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if existing, err := s.findOrder(ctx, tx, `order_token = $1`, order.OrderToken); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_token, customer_id, subtotal_cents, discount_cents,
		                    total_cents, points_earned, lines, created_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9)
	`, order.ID, order.OrderToken, order.CustomerID, order.SubtotalCents, order.DiscountCents,
		order.TotalCents, order.PointsEarned, linesRaw, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return s.findOrder(ctx, s.db, `order_token = $1`, order.OrderToken)
		}
		return nil, err
	}

	for _, usage := range usages {
		if usage.ID == "" {
			usage.ID = xid.New("dusg")
		}
		if usage.CreatedAt.IsZero() {
			usage.CreatedAt = order.CreatedAt
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO discount_usages (id, order_id, rule_id, rule_name, customer_id, kind, amount_cents, created_at)
			VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8)
		`, usage.ID, order.ID, usage.RuleID, usage.RuleName, usage.CustomerID, usage.Kind, usage.AmountCents, usage.CreatedAt)
		if err != nil {
			return nil, err
		}
	}

	if order.CustomerID != "" && order.PointsEarned > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE customers SET points = points + $2 WHERE id = $1
		`, order.CustomerID, order.PointsEarned)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed := order
	return &committed, nil
}

func (s *Store) GetInvoice(ctx context.Context, number string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.db.QueryRowContext(ctx, `
		SELECT number, COALESCE(customer_id, ''), issued_at, total_amount_cents, loyalty_points, version
		FROM invoices
		WHERE number = $1
	`, number).Scan(&inv.Number, &inv.CustomerID, &inv.IssuedAt, &inv.TotalAmountCents, &inv.LoyaltyPoints, &inv.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, item_name, unit_price_cents, quantity
		FROM invoice_items
		WHERE invoice_number = $1
		ORDER BY id
	`, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.InvoiceItem
		if err := rows.Scan(&it.ID, &it.ItemID, &it.ItemName, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) CreateReturnRequest(ctx context.Context, req domain.ReturnRequest) (*domain.ReturnRequest, error) {
	if req.InvoiceNumber == "" || len(req.Lines) == 0 {
		return nil, store.ErrValidation
	}
	if req.ID == "" {
		req.ID = xid.New("rreq")
	}
	if req.Status == "" {
		req.Status = domain.ReturnStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	linesRaw, err := json.Marshal(req.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO return_requests (id, invoice_number, lines, refund_method, total_refund_cents, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, req.ID, req.InvoiceNumber, linesRaw, req.RefundMethod, req.TotalRefundAmountCents, req.Status, req.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := req
	return &created, nil
}

const requestColumns = `id, invoice_number, lines, refund_method, total_refund_cents, status, created_at, reviewed_at`

func (s *Store) GetReturnRequestByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM return_requests
		WHERE id = $1
	`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *Store) ListReturnRequests(ctx context.Context, status string, limit int) ([]domain.ReturnRequest, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM return_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.ReturnRequest, 0, limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *Store) TransitionReturnRequest(ctx context.Context, id string, from string, to string, reviewedAt time.Time) (*domain.ReturnRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE return_requests
		SET status = $3, reviewed_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+requestColumns+`
	`, id, from, to, reviewedAt)
	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Distinguish a missing request from one in the wrong state.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM return_requests WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrStateConflict
}

// SettleReturn applies a resolved settlement inside one serializable
// transaction. The invoice row is locked first; its version column is the
// optimistic check against a settlement computed from stale state.
func (s *Store) SettleReturn(ctx context.Context, settlement domain.ReturnSettlement) (*domain.SettlementResult, error) {
	if settlement.InvoiceNumber == "" || len(settlement.Lines) == 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var version, totalCents, loyaltyPoints int64
	err = tx.QueryRowContext(ctx, `
		SELECT version, total_amount_cents, loyalty_points
		FROM invoices
		WHERE number = $1
		FOR UPDATE
	`, settlement.InvoiceNumber).Scan(&version, &totalCents, &loyaltyPoints)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if version != settlement.InvoiceVersion {
		return nil, store.ErrVersionConflict
	}

	if settlement.RequestID != "" {
		var status string
		err = tx.QueryRowContext(ctx, `
			SELECT status FROM return_requests WHERE id = $1 FOR UPDATE
		`, settlement.RequestID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if status != domain.ReturnStatusApproved {
			return nil, store.ErrStateConflict
		}
	}

	now := time.Now().UTC()
	audits := make([]domain.RefundAuditRecord, 0, len(settlement.Lines))
	for _, line := range settlement.Lines {
		var remaining int
		err = tx.QueryRowContext(ctx, `
			SELECT quantity FROM invoice_items
			WHERE id = $1 AND invoice_number = $2
			FOR UPDATE
		`, line.InvoiceItemID, settlement.InvoiceNumber).Scan(&remaining)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if line.Quantity < 1 || line.Quantity > remaining {
			return nil, store.ErrValidation
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE invoice_items SET quantity = quantity - $2 WHERE id = $1
		`, line.InvoiceItemID, line.Quantity)
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE catalog_items SET stock_qty = stock_qty + $2 WHERE id = $1
		`, line.ItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return nil, store.ErrNotFound
		}

		audit := domain.RefundAuditRecord{
			ID:                xid.New("raud"),
			InvoiceNumber:     settlement.InvoiceNumber,
			InvoiceItemID:     line.InvoiceItemID,
			ItemID:            line.ItemID,
			Quantity:          line.Quantity,
			Reason:            line.Reason,
			RefundMethod:      settlement.RefundMethod,
			ReplacementItemID: line.ReplacementItemID,
			CreatedAt:         now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refund_audit (id, invoice_number, invoice_item_id, item_id, quantity,
			                          reason, refund_method, replacement_item_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),$9)
		`, audit.ID, audit.InvoiceNumber, audit.InvoiceItemID, audit.ItemID, audit.Quantity,
			audit.Reason, audit.RefundMethod, audit.ReplacementItemID, audit.CreatedAt)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}

	newTotal := totalCents - settlement.TotalRefundCents
	if newTotal < 0 {
		newTotal = 0
	}
	deducted := settlement.PointsToDeduct
	if deducted > loyaltyPoints {
		deducted = loyaltyPoints
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE invoices
		SET total_amount_cents = $2, loyalty_points = loyalty_points - $3, version = version + 1
		WHERE number = $1
	`, settlement.InvoiceNumber, newTotal, deducted)
	if err != nil {
		return nil, err
	}

	if settlement.CustomerID != "" && deducted > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE customers SET points = GREATEST(points - $2, 0) WHERE id = $1
		`, settlement.CustomerID, deducted)
		if err != nil {
			return nil, err
		}
	}

	var cardRefund *domain.CardRefundRecord
	if settlement.CardRefund != nil {
		record := *settlement.CardRefund
		if record.ID == "" {
			record.ID = xid.New("cref")
		}
		record.InvoiceNumber = settlement.InvoiceNumber
		record.AmountCents = settlement.TotalRefundCents
		record.Status = domain.CardRefundStatusSuccess
		record.CreatedAt = now
		_, err = tx.ExecContext(ctx, `
			INSERT INTO card_refunds (id, invoice_number, account_holder, bank_name, account_number, amount_cents, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, record.ID, record.InvoiceNumber, record.AccountHolder, record.BankName,
			record.AccountNumber, record.AmountCents, record.Status, record.CreatedAt)
		if err != nil {
			return nil, err
		}
		cardRefund = &record
	}

	if settlement.RequestID != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE return_requests SET status = $2 WHERE id = $1
		`, settlement.RequestID, domain.ReturnStatusProcessed)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.SettlementResult{
		InvoiceNumber:       settlement.InvoiceNumber,
		RequestID:           settlement.RequestID,
		TotalRefundCents:    settlement.TotalRefundCents,
		InvoiceBalanceCents: newTotal,
		PointsDeducted:      deducted,
		AuditRecords:        audits,
		CardRefund:          cardRefund,
	}, nil
}

// ListRefundAudit returns ledger rows newest first.
func (s *Store) ListRefundAudit(ctx context.Context, invoiceNumber string) ([]domain.RefundAuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_number, invoice_item_id, item_id, quantity,
		       COALESCE(reason, ''), refund_method, COALESCE(replacement_item_id, ''), created_at
		FROM refund_audit
		WHERE ($1 = '' OR invoice_number = $1)
		ORDER BY created_at DESC, id
	`, invoiceNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.RefundAuditRecord, 0, 64)
	for rows.Next() {
		var rec domain.RefundAuditRecord
		if err := rows.Scan(&rec.ID, &rec.InvoiceNumber, &rec.InvoiceItemID, &rec.ItemID, &rec.Quantity,
			&rec.Reason, &rec.RefundMethod, &rec.ReplacementItemID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) PurgeRefundAudit(ctx context.Context, invoiceNumber string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM refund_audit WHERE ($1 = '' OR invoice_number = $1)
	`, invoiceNumber)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) ListCardRefunds(ctx context.Context, invoiceNumber string) ([]domain.CardRefundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_number, account_holder, bank_name, account_number, amount_cents, status, created_at
		FROM card_refunds
		WHERE ($1 = '' OR invoice_number = $1)
		ORDER BY created_at DESC, id
	`, invoiceNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.CardRefundRecord, 0, 16)
	for rows.Next() {
		var rec domain.CardRefundRecord
		if err := rows.Scan(&rec.ID, &rec.InvoiceNumber, &rec.AccountHolder, &rec.BankName,
			&rec.AccountNumber, &rec.AmountCents, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) GetLoyaltySettings(ctx context.Context) (domain.LoyaltySettings, error) {
	var settings domain.LoyaltySettings
	err := s.db.QueryRowContext(ctx, `
		SELECT points_rate, immediate_refund_cents_per_point, gated_refund_cents_per_point
		FROM loyalty_settings
		LIMIT 1
	`).Scan(&settings.PointsRate, &settings.ImmediateRefundCentsPerPoint, &settings.GatedRefundCentsPerPoint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LoyaltySettings{}, store.ErrNotFound
		}
		return domain.LoyaltySettings{}, err
	}
	return settings, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrStateConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if password == "" {
		return store.ErrValidation
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.DiscountRule, error) {
	var r domain.DiscountRule
	var targetItem, targetCategory, tier, durationLabel sql.NullString
	var fixed sql.NullInt64
	var pct sql.NullFloat64
	err := row.Scan(&r.ID, &r.Name, &r.Scope, &targetItem, &targetCategory, &tier,
		&fixed, &pct, &durationLabel, &r.ActiveFrom, &r.Active)
	if err != nil {
		return nil, err
	}
	r.TargetItemID = targetItem.String
	r.TargetCategoryID = targetCategory.String
	r.LoyaltyTier = tier.String
	r.DurationLabel = durationLabel.String
	if fixed.Valid {
		v := fixed.Int64
		r.FixedAmountCents = &v
	}
	if pct.Valid {
		v := pct.Float64
		r.Percentage = &v
	}
	return &r, nil
}

func scanRules(rows *sql.Rows) ([]domain.DiscountRule, error) {
	rules := make([]domain.DiscountRule, 0, 32)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func scanRequest(row rowScanner) (*domain.ReturnRequest, error) {
	var req domain.ReturnRequest
	var linesRaw []byte
	var reviewedAt sql.NullTime
	err := row.Scan(&req.ID, &req.InvoiceNumber, &linesRaw, &req.RefundMethod,
		&req.TotalRefundAmountCents, &req.Status, &req.CreatedAt, &reviewedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesRaw, &req.Lines); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		req.ReviewedAt = &t
	}
	return &req, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
