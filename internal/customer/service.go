package customer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-faktur/internal/common"
)

var (
	// ErrNotFound is returned when the requested customer does not exist.
	ErrNotFound = errors.New("customer not found")
	// ErrNameRequired is returned when a customer payload has no name.
	ErrNameRequired = errors.New("customer name is required")
	// ErrInUse is returned when deleting a customer that still has documents.
	ErrInUse = errors.New("customer has documents and cannot be deleted")
)

// Customer represents a billing party in API-friendly format.
type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	PostalCode string    `json:"postalCode,omitempty"`
	TaxID      string    `json:"taxId,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Input captures the payload for creating or updating a customer.
type Input struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	TaxID      string
	Notes      string
}

// Querier captures the database methods required by the customer service.
type Querier interface {
	InsertCustomer(ctx context.Context, input Input) (Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error)
	ListCustomers(ctx context.Context, search string, limit, offset int32) ([]Customer, error)
	CountCustomers(ctx context.Context, search string) (int64, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input Input) (Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates customer book operations. Failures carry their HTTP
// semantics as *common.AppError; the underlying sentinel stays reachable
// through errors.Is.
type Service struct {
	Q Querier
}

func notFound() *common.AppError {
	return common.NewAppError("NOT_FOUND", "customer not found", http.StatusNotFound, ErrNotFound)
}

// Create validates and persists a new customer.
func (s *Service) Create(ctx context.Context, input Input) (Customer, error) {
	if s == nil || s.Q == nil {
		return Customer{}, errors.New("customer service not configured")
	}
	input = trimInput(input)
	if input.Name == "" {
		return Customer{}, common.NewAppError("VALIDATION_ERROR", "name is required", http.StatusBadRequest, ErrNameRequired)
	}
	return s.Q.InsertCustomer(ctx, input)
}

// Get loads a single customer by id.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	if s == nil || s.Q == nil {
		return Customer{}, errors.New("customer service not configured")
	}
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Customer{}, notFound()
	}
	c, err := s.Q.GetCustomer(ctx, parsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return Customer{}, notFound()
		}
		return Customer{}, err
	}
	return c, nil
}

// List returns a page of customers optionally filtered by a search term.
func (s *Service) List(ctx context.Context, search string, page, perPage int) ([]Customer, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("customer service not configured")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	search = strings.TrimSpace(search)
	offset := int32((page - 1) * perPage)
	customers, err := s.Q.ListCustomers(ctx, search, int32(perPage), offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Q.CountCustomers(ctx, search)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Update replaces the mutable fields of an existing customer.
func (s *Service) Update(ctx context.Context, id string, input Input) (Customer, error) {
	if s == nil || s.Q == nil {
		return Customer{}, errors.New("customer service not configured")
	}
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Customer{}, notFound()
	}
	input = trimInput(input)
	if input.Name == "" {
		return Customer{}, common.NewAppError("VALIDATION_ERROR", "name is required", http.StatusBadRequest, ErrNameRequired)
	}
	c, err := s.Q.UpdateCustomer(ctx, parsed, input)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return Customer{}, notFound()
		}
		return Customer{}, err
	}
	return c, nil
}

// Delete removes a customer that has no documents attached.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Q == nil {
		return errors.New("customer service not configured")
	}
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return notFound()
	}
	if err := s.Q.DeleteCustomer(ctx, parsed); err != nil {
		switch {
		case errors.Is(err, ErrInUse):
			return common.NewAppError("CONFLICT", "customer has documents and cannot be deleted", http.StatusConflict, err)
		case errors.Is(err, ErrNotFound), errors.Is(err, pgx.ErrNoRows):
			return notFound()
		default:
			return err
		}
	}
	return nil
}

func trimInput(input Input) Input {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Address = strings.TrimSpace(input.Address)
	input.City = strings.TrimSpace(input.City)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.TaxID = strings.TrimSpace(input.TaxID)
	input.Notes = strings.TrimSpace(input.Notes)
	return input
}
