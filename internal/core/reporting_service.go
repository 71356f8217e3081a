package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DashboardStats summarizes one owner's invoices for the dashboard.
type DashboardStats struct {
	PendingCount   int             `json:"pending_count"`
	CompletedCount int             `json:"completed_count"`
	CancelledCount int             `json:"cancelled_count"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	Recent         []Invoice       `json:"recent"`
}

type ReportingService interface {
	GetDashboardStats(ctx context.Context, ownerID int) (*DashboardStats, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) GetDashboardStats(ctx context.Context, ownerID int) (*DashboardStats, error) {
	stats := &DashboardStats{PendingBalance: decimal.Zero}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(balance_due) FILTER (WHERE status = 'pending'), 0)
		FROM invoices
		WHERE owner_id = $1
	`, ownerID).Scan(
		&stats.PendingCount, &stats.CompletedCount, &stats.CancelledCount, &stats.PendingBalance,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.owner_id = $1
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT 10
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent invoice: %w", err)
		}
		stats.Recent = append(stats.Recent, *inv)
	}
	return stats, rows.Err()
}
