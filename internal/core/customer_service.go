package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService manages the owner-scoped customer catalog.
type CustomerService interface {
	CreateCustomer(ctx context.Context, ownerID int, name, address, email, phone string) (*Customer, error)
	GetCustomer(ctx context.Context, ownerID, customerID int) (*Customer, error)
	GetCustomers(ctx context.Context, ownerID int) ([]Customer, error)
	UpdateCustomer(ctx context.Context, ownerID, customerID int, name, address, email, phone string, isActive bool) (*Customer, error)
	// DeleteCustomer removes a customer. It fails with a ValidationError while
	// any invoice still references the customer (the FK is RESTRICT anyway;
	// the pre-check exists to produce a friendly message).
	DeleteCustomer(ctx context.Context, ownerID, customerID int) error
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

const customerColumns = "id, owner_id, customer_code, customer_name, address, email, phone, is_active, created_at"

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OwnerID, &c.CustomerCode, &c.CustomerName, &c.Address,
		&c.Email, &c.Phone, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, ownerID int, name, address, email, phone string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("customer name is required")
	}

	code, err := GenerateCustomerCode(ctx, func(ctx context.Context, candidate string) (bool, error) {
		return rowExists(ctx, s.pool,
			"SELECT 1 FROM customers WHERE owner_id = $1 AND customer_code = $2 LIMIT 1",
			ownerID, candidate)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate customer code: %w", err)
	}

	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		INSERT INTO customers (owner_id, customer_code, customer_name, address, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns,
		ownerID, code, name, address, email, phone))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Msg: "customer code collision, please retry"}
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

func (s *customerService) GetCustomer(ctx context.Context, ownerID, customerID int) (*Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1 AND owner_id = $2",
		customerID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("customer", customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	return c, nil
}

func (s *customerService) GetCustomers(ctx context.Context, ownerID int) ([]Customer, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE owner_id = $1 ORDER BY customer_name",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *customerService) UpdateCustomer(ctx context.Context, ownerID, customerID int, name, address, email, phone string, isActive bool) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("customer name is required")
	}

	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		UPDATE customers
		SET customer_name = $1, address = $2, email = $3, phone = $4, is_active = $5
		WHERE id = $6 AND owner_id = $7
		RETURNING `+customerColumns,
		name, address, email, phone, isActive, customerID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("customer", customerID)
		}
		return nil, fmt.Errorf("failed to update customer %d: %w", customerID, err)
	}
	return c, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, ownerID, customerID int) error {
	if _, err := s.GetCustomer(ctx, ownerID, customerID); err != nil {
		return err
	}

	var invoiceCount int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM invoices WHERE customer_id = $1", customerID,
	).Scan(&invoiceCount)
	if err != nil {
		return fmt.Errorf("failed to check invoices for customer %d: %w", customerID, err)
	}
	if invoiceCount > 0 {
		return validationf("customer has %d linked invoice(s) and cannot be deleted; mark it inactive instead", invoiceCount)
	}

	_, err = s.pool.Exec(ctx,
		"DELETE FROM customers WHERE id = $1 AND owner_id = $2", customerID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete customer %d: %w", customerID, err)
	}
	return nil
}
