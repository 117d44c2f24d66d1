package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Querier on top of a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

const customerColumns = `id, name, email, phone, address, city, postal_code, tax_id, notes, created_at, updated_at`

// InsertCustomer persists a new customer row.
func (s *PGStore) InsertCustomer(ctx context.Context, input Input) (Customer, error) {
	row := s.Pool.QueryRow(ctx, `
INSERT INTO customers (name, email, phone, address, city, postal_code, tax_id, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+customerColumns,
		input.Name, toText(input.Email), toText(input.Phone), toText(input.Address),
		toText(input.City), toText(input.PostalCode), toText(input.TaxID), toText(input.Notes))
	return scanCustomer(row)
}

// GetCustomer loads one customer by id.
func (s *PGStore) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, toPGUUID(id))
	return scanCustomer(row)
}

// ListCustomers returns a page of customers, newest first. A non-empty search
// term matches name and email case-insensitively.
func (s *PGStore) ListCustomers(ctx context.Context, search string, limit, offset int32) ([]Customer, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]Customer, 0, limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CountCustomers counts customers matching the search term.
func (s *PGStore) CountCustomers(ctx context.Context, search string) (int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx, `
SELECT count(*) FROM customers
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')`, search).Scan(&total)
	return total, err
}

// UpdateCustomer replaces the mutable fields of a customer.
func (s *PGStore) UpdateCustomer(ctx context.Context, id uuid.UUID, input Input) (Customer, error) {
	row := s.Pool.QueryRow(ctx, `
UPDATE customers
SET name = $2, email = $3, phone = $4, address = $5, city = $6,
    postal_code = $7, tax_id = $8, notes = $9, updated_at = now()
WHERE id = $1
RETURNING `+customerColumns,
		toPGUUID(id), input.Name, toText(input.Email), toText(input.Phone), toText(input.Address),
		toText(input.City), toText(input.PostalCode), toText(input.TaxID), toText(input.Notes))
	return scanCustomer(row)
}

// DeleteCustomer removes a customer. Customers referenced by documents are
// protected by a foreign key and surface ErrInUse.
func (s *PGStore) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, toPGUUID(id))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		id         pgtype.UUID
		email      pgtype.Text
		phone      pgtype.Text
		address    pgtype.Text
		city       pgtype.Text
		postalCode pgtype.Text
		taxID      pgtype.Text
		notes      pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
		c          Customer
	)
	err := row.Scan(&id, &c.Name, &email, &phone, &address, &city, &postalCode, &taxID, &notes, &createdAt, &updatedAt)
	if err != nil {
		return Customer{}, err
	}
	c.ID = uuidString(id)
	c.Email = textValue(email)
	c.Phone = textValue(phone)
	c.Address = textValue(address)
	c.City = textValue(city)
	c.PostalCode = textValue(postalCode)
	c.TaxID = textValue(taxID)
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	c.Notes = textValue(notes)
	return c, nil
}

func toPGUUID(id uuid.UUID) pgtype.UUID {
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
