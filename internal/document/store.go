package document

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-faktur/internal/billing"
)

// PGStore implements Querier on a pgx connection pool. Lifecycle operations
// run in a transaction with the document row locked so concurrent issue,
// convert and payment calls serialize per document.
type PGStore struct {
	Pool *pgxpool.Pool
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const documentColumns = `d.id, d.kind, d.status, d.number, d.customer_id, c.name, c.email,
	d.currency, d.notes, d.discount_type, d.discount_value,
	d.subtotal, d.discount_amount, d.taxable_amount, d.vat_amount, d.total, d.amount_paid,
	d.vat_breakdown, d.issued_at, d.due_date, d.paid_at, d.voided_at,
	d.source_id, d.converted_to, d.created_at, d.updated_at`

const documentFrom = ` FROM documents d JOIN customers c ON c.id = d.customer_id`

const listFilterClause = ` WHERE ($1 = '' OR d.kind = $1)
	AND ($2 = '' OR d.status = $2)
	AND ($3::uuid IS NULL OR d.customer_id = $3)
	AND ($4 = '' OR d.number ILIKE '%' || $4 || '%' OR c.name ILIKE '%' || $4 || '%')`

func (s *PGStore) InsertDocument(ctx context.Context, arg InsertDocumentParams) (Document, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := insertDocumentTx(ctx, tx, arg)
	if err != nil {
		return Document{}, err
	}
	doc, err := getDocument(ctx, tx, id)
	if err != nil {
		return Document{}, err
	}
	return doc, tx.Commit(ctx)
}

func (s *PGStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	return getDocument(ctx, s.Pool, id)
}

func (s *PGStore) ListDocuments(ctx context.Context, arg ListDocumentsParams) ([]Document, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+documentColumns+documentFrom+listFilterClause+`
		ORDER BY d.created_at DESC, d.id LIMIT $5 OFFSET $6`,
		arg.Kind, arg.Status, toNullableUUID(arg.CustomerID), arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0, arg.Limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PGStore) CountDocuments(ctx context.Context, arg ListDocumentsParams) (int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*)`+documentFrom+listFilterClause,
		arg.Kind, arg.Status, toNullableUUID(arg.CustomerID), arg.Search).Scan(&total)
	return total, err
}

func (s *PGStore) UpdateDraft(ctx context.Context, arg UpdateDraftParams) (Document, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDraft(ctx, tx, arg.ID); err != nil {
		return Document{}, err
	}
	_, err = tx.Exec(ctx, `UPDATE documents SET customer_id = $2, currency = $3, notes = $4,
		discount_type = $5, discount_value = $6, subtotal = $7, discount_amount = $8,
		taxable_amount = $9, vat_amount = $10, total = $11, vat_breakdown = $12, updated_at = now()
		WHERE id = $1`,
		toPGUUID(arg.ID), toPGUUID(arg.CustomerID), arg.Currency, toText(arg.Notes),
		string(arg.DiscountType), arg.DiscountValue, arg.Subtotal, arg.DiscountAmount,
		arg.TaxableAmount, arg.VatAmount, arg.Total, breakdownJSON(arg.VatBreakdown))
	if err != nil {
		if pgErrCode(err) == "23503" {
			return Document{}, ErrCustomerNotFound
		}
		return Document{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, toPGUUID(arg.ID)); err != nil {
		return Document{}, err
	}
	if err := insertLines(ctx, tx, arg.ID, arg.Lines); err != nil {
		return Document{}, err
	}
	doc, err := getDocument(ctx, tx, arg.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, tx.Commit(ctx)
}

func (s *PGStore) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND status = 'draft'`, toPGUUID(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var status string
		err := s.Pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, toPGUUID(id)).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrNotDraft
	}
	return nil
}

func (s *PGStore) IssueDocument(ctx context.Context, arg IssueDocumentParams) (Document, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var kind, status string
	err = tx.QueryRow(ctx, `SELECT kind, status FROM documents WHERE id = $1 FOR UPDATE`, toPGUUID(arg.ID)).Scan(&kind, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if status != string(StatusDraft) {
		return Document{}, ErrNotDraft
	}

	// The counter lives in the same transaction as the status flip, so a
	// rolled back issue never burns a sequence number.
	var seq int64
	err = tx.QueryRow(ctx, `INSERT INTO document_counters (kind, year, last_value) VALUES ($1, $2, 1)
		ON CONFLICT (kind, year) DO UPDATE SET last_value = document_counters.last_value + 1
		RETURNING last_value`, kind, arg.Year).Scan(&seq)
	if err != nil {
		return Document{}, err
	}

	number := FormatNumber(arg.Prefix, arg.Year, seq)
	_, err = tx.Exec(ctx, `UPDATE documents SET status = 'issued', number = $2, issued_at = $3,
		due_date = $4, updated_at = now() WHERE id = $1`,
		toPGUUID(arg.ID), number, arg.IssuedAt, toTimestamptz(arg.DueDate))
	if err != nil {
		return Document{}, err
	}
	doc, err := getDocument(ctx, tx, arg.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, tx.Commit(ctx)
}

func (s *PGStore) VoidDocument(ctx context.Context, arg VoidDocumentParams) (Document, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE documents SET status = 'void', voided_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'issued'`, toPGUUID(arg.ID), arg.VoidedAt)
	if err != nil {
		return Document{}, err
	}
	if tag.RowsAffected() == 0 {
		var status string
		err := s.Pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, toPGUUID(arg.ID)).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		if err != nil {
			return Document{}, err
		}
		if status == string(StatusPaid) {
			return Document{}, ErrAlreadyPaid
		}
		return Document{}, ErrNotIssued
	}
	return getDocument(ctx, s.Pool, arg.ID)
}

func (s *PGStore) ConvertQuotation(ctx context.Context, arg ConvertQuotationParams) (Document, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var kind, status string
	var converted pgtype.UUID
	err = tx.QueryRow(ctx, `SELECT kind, status, converted_to FROM documents WHERE id = $1 FOR UPDATE`,
		toPGUUID(arg.QuotationID)).Scan(&kind, &status, &converted)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if kind != string(KindQuotation) {
		return Document{}, ErrNotConvertible
	}
	if status != string(StatusIssued) {
		return Document{}, ErrNotIssued
	}
	if converted.Valid {
		return Document{}, ErrAlreadyConverted
	}

	invoiceID, err := insertDocumentTx(ctx, tx, arg.Invoice)
	if err != nil {
		return Document{}, err
	}
	_, err = tx.Exec(ctx, `UPDATE documents SET converted_to = $2, updated_at = now() WHERE id = $1`,
		toPGUUID(arg.QuotationID), toPGUUID(invoiceID))
	if err != nil {
		return Document{}, err
	}
	doc, err := getDocument(ctx, tx, invoiceID)
	if err != nil {
		return Document{}, err
	}
	return doc, tx.Commit(ctx)
}

func (s *PGStore) InsertPayment(ctx context.Context, arg InsertPaymentParams) (Payment, Document, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Payment{}, Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var kind, status string
	var total, amountPaid float64
	err = tx.QueryRow(ctx, `SELECT kind, status, total, amount_paid FROM documents WHERE id = $1 FOR UPDATE`,
		toPGUUID(arg.DocumentID)).Scan(&kind, &status, &total, &amountPaid)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, Document{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, Document{}, err
	}
	if kind != string(KindInvoice) {
		return Payment{}, Document{}, ErrNotInvoice
	}
	switch status {
	case string(StatusIssued):
	case string(StatusPaid):
		return Payment{}, Document{}, ErrAlreadyPaid
	default:
		return Payment{}, Document{}, ErrNotIssued
	}
	balance := billing.Round2(total - amountPaid)
	if arg.Amount-balance > 1e-9 {
		return Payment{}, Document{}, ErrOverpaid
	}

	var paymentID pgtype.UUID
	var createdAt time.Time
	err = tx.QueryRow(ctx, `INSERT INTO payments (document_id, amount, method, reference, paid_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		toPGUUID(arg.DocumentID), arg.Amount, arg.Method, toText(arg.Reference), arg.PaidAt, toText(arg.Notes)).
		Scan(&paymentID, &createdAt)
	if err != nil {
		return Payment{}, Document{}, err
	}

	var paid float64
	err = tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE document_id = $1`,
		toPGUUID(arg.DocumentID)).Scan(&paid)
	if err != nil {
		return Payment{}, Document{}, err
	}
	if paid >= total-1e-9 {
		_, err = tx.Exec(ctx, `UPDATE documents SET amount_paid = $2, status = 'paid', paid_at = $3, updated_at = now()
			WHERE id = $1`, toPGUUID(arg.DocumentID), paid, arg.PaidAt)
	} else {
		_, err = tx.Exec(ctx, `UPDATE documents SET amount_paid = $2, updated_at = now() WHERE id = $1`,
			toPGUUID(arg.DocumentID), paid)
	}
	if err != nil {
		return Payment{}, Document{}, err
	}

	doc, err := getDocument(ctx, tx, arg.DocumentID)
	if err != nil {
		return Payment{}, Document{}, err
	}
	payment := Payment{
		ID:         uuidString(paymentID),
		DocumentID: arg.DocumentID.String(),
		Amount:     arg.Amount,
		Method:     arg.Method,
		Reference:  arg.Reference,
		PaidAt:     arg.PaidAt,
		Notes:      arg.Notes,
		CreatedAt:  createdAt,
	}
	return payment, doc, tx.Commit(ctx)
}

func (s *PGStore) ListPayments(ctx context.Context, documentID uuid.UUID) ([]Payment, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, document_id, amount, method, reference, paid_at, notes, created_at
		FROM payments WHERE document_id = $1 ORDER BY created_at DESC, id`, toPGUUID(documentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]Payment, 0, 8)
	for rows.Next() {
		var p Payment
		var id, docID pgtype.UUID
		var reference, notes pgtype.Text
		if err := rows.Scan(&id, &docID, &p.Amount, &p.Method, &reference, &p.PaidAt, &notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ID = uuidString(id)
		p.DocumentID = uuidString(docID)
		p.Reference = textValue(reference)
		p.Notes = textValue(notes)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func insertDocumentTx(ctx context.Context, tx dbtx, arg InsertDocumentParams) (uuid.UUID, error) {
	var id pgtype.UUID
	err := tx.QueryRow(ctx, `INSERT INTO documents (kind, status, customer_id, currency, notes,
		discount_type, discount_value, subtotal, discount_amount, taxable_amount, vat_amount, total,
		vat_breakdown, source_id)
		VALUES ($1, 'draft', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		string(arg.Kind), toPGUUID(arg.CustomerID), arg.Currency, toText(arg.Notes),
		string(arg.DiscountType), arg.DiscountValue, arg.Subtotal, arg.DiscountAmount,
		arg.TaxableAmount, arg.VatAmount, arg.Total, breakdownJSON(arg.VatBreakdown),
		toNullableUUID(arg.SourceID)).Scan(&id)
	if err != nil {
		if pgErrCode(err) == "23503" {
			return uuid.Nil, ErrCustomerNotFound
		}
		return uuid.Nil, err
	}
	docID := uuid.UUID(id.Bytes)
	if err := insertLines(ctx, tx, docID, arg.Lines); err != nil {
		return uuid.Nil, err
	}
	return docID, nil
}

func insertLines(ctx context.Context, tx dbtx, documentID uuid.UUID, lines []LineParams) error {
	for _, ln := range lines {
		_, err := tx.Exec(ctx, `INSERT INTO document_lines (document_id, position, description, quantity,
			unit_price, vat_rate, line_net) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			toPGUUID(documentID), ln.Position, ln.Description, ln.Quantity, ln.UnitPrice, ln.VatRate, ln.Net)
		if err != nil {
			return err
		}
	}
	return nil
}

func lockDraft(ctx context.Context, tx dbtx, id uuid.UUID) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1 FOR UPDATE`, toPGUUID(id)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != string(StatusDraft) {
		return ErrNotDraft
	}
	return nil
}

func getDocument(ctx context.Context, q dbtx, id uuid.UUID) (Document, error) {
	doc, err := scanDocument(q.QueryRow(ctx, `SELECT `+documentColumns+documentFrom+` WHERE d.id = $1`, toPGUUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}

	rows, err := q.Query(ctx, `SELECT id, description, quantity, unit_price, vat_rate, line_net
		FROM document_lines WHERE document_id = $1 ORDER BY position`, toPGUUID(id))
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var ln Line
		var lineID pgtype.UUID
		if err := rows.Scan(&lineID, &ln.Description, &ln.Quantity, &ln.UnitPrice, &ln.VatRate, &ln.Net); err != nil {
			return Document{}, err
		}
		ln.ID = uuidString(lineID)
		doc.Lines = append(doc.Lines, ln)
	}
	return doc, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	var id, customerID, sourceID, convertedTo pgtype.UUID
	var number, email, notes pgtype.Text
	var kind, status string
	var breakdown []byte
	var issuedAt, dueDate, paidAt, voidedAt pgtype.Timestamptz

	err := row.Scan(&id, &kind, &status, &number, &customerID, &doc.CustomerName, &email,
		&doc.Currency, &notes, &doc.DiscountType, &doc.DiscountValue,
		&doc.Subtotal, &doc.DiscountAmount, &doc.TaxableAmount, &doc.VatAmount, &doc.Total, &doc.AmountPaid,
		&breakdown, &issuedAt, &dueDate, &paidAt, &voidedAt,
		&sourceID, &convertedTo, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}

	doc.ID = uuidString(id)
	doc.Kind = Kind(kind)
	doc.Status = Status(status)
	doc.Number = textValue(number)
	doc.CustomerID = uuidString(customerID)
	doc.CustomerEmail = textValue(email)
	doc.Notes = textValue(notes)
	doc.BalanceDue = billing.Round2(doc.Total - doc.AmountPaid)
	doc.IssuedAt = timePtr(issuedAt)
	doc.DueDate = timePtr(dueDate)
	doc.PaidAt = timePtr(paidAt)
	doc.VoidedAt = timePtr(voidedAt)
	doc.SourceID = uuidString(sourceID)
	doc.ConvertedTo = uuidString(convertedTo)
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &doc.VatBreakdown); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

func breakdownJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	return raw
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func toPGUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toNullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func toText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

func textValue(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
