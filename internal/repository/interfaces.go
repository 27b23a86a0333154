package repository

import (
	"context"
	"errors"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
)

var (
	// ErrMissingColumn indicates a table is missing a required header column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyTable indicates a table held no valid rows after validation.
	ErrEmptyTable = errors.New("table has no valid rows")
)

// LoadStats reports how many rows a load kept and how many failed row-level
// validation and were dropped.
type LoadStats struct {
	File    string
	Kept    int
	Dropped int
}

// TableRepository defines the interface for the tabular stores the training
// pipeline reads and the ingestion collaborator appends to.
type TableRepository interface {
	// LoadSessions reads and validates the sessions table.
	LoadSessions(ctx context.Context) ([]domain.Session, *LoadStats, error)

	// LoadCampaigns reads and validates the campaigns table.
	LoadCampaigns(ctx context.Context) ([]domain.Campaign, *LoadStats, error)

	// LoadOrders reads and validates the orders table.
	LoadOrders(ctx context.Context) ([]domain.Order, *LoadStats, error)

	// AppendSessions appends validated session rows to the analysis-ready
	// table and returns how many rows were written.
	AppendSessions(ctx context.Context, sessions []domain.Session) (int, error)

	// AppendOrders appends validated order rows to the analysis-ready table
	// and returns how many rows were written.
	AppendOrders(ctx context.Context, orders []domain.Order) (int, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources.
	Close() error
}
