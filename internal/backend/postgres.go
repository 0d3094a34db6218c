package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"livestock-purchasing/internal/core"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) GetPurchase(ctx context.Context, kind core.PurchaseKind, id string) (*core.PurchaseDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("purchase %s: %w", id, ErrNotFound)
	}

	doc := &core.PurchaseDocument{}
	h := &doc.Header
	if err := s.pool.QueryRow(ctx, `
		SELECT id::text, office_id, supplier_id, order_date::text, note,
		       total_quantity, total_weight, total_price
		FROM purchase_headers
		WHERE id = $1::text::uuid AND kind = $2`,
		id, string(kind),
	).Scan(
		&h.ID, &h.OfficeRef, &h.SupplierRef, &h.OrderDate, &h.Note,
		&h.Totals.Quantity, &h.Totals.Weight, &h.Totals.Price,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, pid::text, header_id::text, item_id, classification_id, bank_id,
		       quantity, weight, unit_price, markup_percent, unit_cost, extended_total, note
		FROM purchase_details
		WHERE header_id = $1::text::uuid
		ORDER BY line_number, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list lines of purchase %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l      core.DetailLine
			markup decimal.Decimal
		)
		if err := rows.Scan(
			&l.LegacyID, &l.ServerRef, &l.ParentRef, &l.ItemRef, &l.ClassificationRef, &l.BankRef,
			&l.Quantity, &l.Weight, &l.UnitPrice, &markup, &l.UnitCost, &l.ExtendedTotal, &l.Note,
		); err != nil {
			return nil, fmt.Errorf("scan line of purchase %s: %w", id, err)
		}
		l.MarkupPercent = core.FormatPercent(markup)
		doc.Lines = append(doc.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines of purchase %s: %w", id, err)
	}
	return doc, nil
}

func (s *postgresStore) CreatePurchase(ctx context.Context, kind core.PurchaseKind, header core.HeaderFields, lines []core.LineFields) (*core.CreatedDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	out := &core.CreatedDocument{}
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_headers (kind, office_id, supplier_id, order_date, note)
		VALUES ($1, $2, $3, $4::text::date, $5)
		RETURNING id::text`,
		string(kind), header.OfficeRef, header.SupplierRef, header.OrderDate, header.Note,
	).Scan(&out.ParentID); err != nil {
		return nil, fmt.Errorf("insert purchase: %w", err)
	}

	for i, f := range lines {
		pid, err := insertLine(ctx, tx, out.ParentID, i+1, f)
		if err != nil {
			return nil, fmt.Errorf("insert line %d: %w", i+1, err)
		}
		out.Lines = append(out.Lines, core.CreatedLine{ServerRef: pid})
	}

	if err := refreshTotals(ctx, tx, out.ParentID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	return out, nil
}

func (s *postgresStore) UpdateHeader(ctx context.Context, kind core.PurchaseKind, id string, header core.HeaderFields) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("purchase %s: %w", id, ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE purchase_headers
		SET office_id = $3, supplier_id = $4, order_date = $5::text::date, note = $6, updated_at = NOW()
		WHERE id = $1::text::uuid AND kind = $2`,
		id, string(kind), header.OfficeRef, header.SupplierRef, header.OrderDate, header.Note,
	)
	if err != nil {
		return fmt.Errorf("update purchase %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *postgresStore) CreateLine(ctx context.Context, kind core.PurchaseKind, parentID string, line core.LineFields) (string, error) {
	if _, err := uuid.Parse(parentID); err != nil {
		return "", fmt.Errorf("purchase %s: %w", parentID, ErrNotFound)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the header so concurrent appends get distinct line numbers.
	var locked string
	if err := tx.QueryRow(ctx, `
		SELECT id::text FROM purchase_headers
		WHERE id = $1::text::uuid AND kind = $2
		FOR UPDATE`,
		parentID, string(kind),
	).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("purchase %s: %w", parentID, ErrNotFound)
		}
		return "", fmt.Errorf("lock purchase %s: %w", parentID, err)
	}

	var next int
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(line_number), 0) + 1 FROM purchase_details WHERE header_id = $1::text::uuid",
		parentID,
	).Scan(&next); err != nil {
		return "", fmt.Errorf("next line number: %w", err)
	}

	pid, err := insertLine(ctx, tx, parentID, next, line)
	if err != nil {
		return "", fmt.Errorf("insert line: %w", err)
	}
	if err := refreshTotals(ctx, tx, parentID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit line: %w", err)
	}
	return pid, nil
}

func (s *postgresStore) UpdateLine(ctx context.Context, kind core.PurchaseKind, ref string, line core.LineFields) error {
	where, key, err := lineKey(ref)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var headerID string
	if err := tx.QueryRow(ctx, `
		UPDATE purchase_details d
		SET item_id = $3, classification_id = $4, bank_id = $5,
		    quantity = $6, weight = $7, unit_price = $8, markup_percent = $9,
		    unit_cost = $10, extended_total = $11, note = $12, updated_at = NOW()
		FROM purchase_headers h
		WHERE `+where+` AND h.id = d.header_id AND h.kind = $2
		RETURNING d.header_id::text`,
		key, string(kind), line.ItemRef, line.ClassificationRef, line.BankRef,
		line.Quantity, line.Weight, line.UnitPrice, line.MarkupPercent,
		line.UnitCost, line.ExtendedTotal, line.Note,
	).Scan(&headerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("detail line %s: %w", ref, ErrNotFound)
		}
		return fmt.Errorf("update detail line %s: %w", ref, err)
	}

	if err := refreshTotals(ctx, tx, headerID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit line: %w", err)
	}
	return nil
}

func (s *postgresStore) DeleteLine(ctx context.Context, kind core.PurchaseKind, ref string) error {
	where, key, err := lineKey(ref)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var headerID string
	if err := tx.QueryRow(ctx, `
		DELETE FROM purchase_details d
		USING purchase_headers h
		WHERE `+where+` AND h.id = d.header_id AND h.kind = $2
		RETURNING d.header_id::text`,
		key, string(kind),
	).Scan(&headerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("detail line %s: %w", ref, ErrNotFound)
		}
		return fmt.Errorf("delete detail line %s: %w", ref, err)
	}

	if err := refreshTotals(ctx, tx, headerID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit line: %w", err)
	}
	return nil
}

func (s *postgresStore) ListOptions(ctx context.Context, kind core.OptionKind) ([]core.Option, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT value, label
		FROM master_options
		WHERE kind = $1 AND is_active = true
		ORDER BY sort_order, label`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s options: %w", kind, err)
	}
	defer rows.Close()

	out := []core.Option{}
	for rows.Next() {
		var o core.Option
		if err := rows.Scan(&o.Value, &o.Label); err != nil {
			return nil, fmt.Errorf("scan %s option: %w", kind, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func insertLine(ctx context.Context, tx pgx.Tx, headerID string, lineNumber int, f core.LineFields) (string, error) {
	var pid string
	err := tx.QueryRow(ctx, `
		INSERT INTO purchase_details
		            (header_id, line_number, item_id, classification_id, bank_id,
		             quantity, weight, unit_price, markup_percent, unit_cost, extended_total, note)
		VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING pid::text`,
		headerID, lineNumber, f.ItemRef, f.ClassificationRef, f.BankRef,
		f.Quantity, f.Weight, f.UnitPrice, f.MarkupPercent, f.UnitCost, f.ExtendedTotal, f.Note,
	).Scan(&pid)
	return pid, err
}

// refreshTotals recomputes the header aggregates from its lines.
func refreshTotals(ctx context.Context, tx pgx.Tx, headerID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_headers h
		SET total_quantity = COALESCE(t.quantity, 0),
		    total_weight   = COALESCE(t.weight, 0),
		    total_price    = COALESCE(t.price, 0),
		    updated_at     = NOW()
		FROM (
			SELECT SUM(quantity) AS quantity, SUM(weight) AS weight, SUM(extended_total) AS price
			FROM purchase_details
			WHERE header_id = $1::text::uuid
		) t
		WHERE h.id = $1::text::uuid`,
		headerID,
	); err != nil {
		return fmt.Errorf("refresh totals of purchase %s: %w", headerID, err)
	}
	return nil
}

// lineKey builds the WHERE clause addressing a line by pid or numeric row id.
// The key is always bound as $1.
func lineKey(ref string) (string, any, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return "d.pid = $1::text::uuid", ref, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return "d.id = $1", id, nil
	}
	return "", nil, fmt.Errorf("detail line %s: %w", ref, ErrNotFound)
}
