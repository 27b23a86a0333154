// Package csvstore implements repository.TableRepository on top of local
// CSV files laid out as one table per file.
package csvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Config holds the location of the backing CSV tables.
type Config struct {
	Dir           string
	SessionsFile  string
	CampaignsFile string
	OrdersFile    string
}

// Store reads and appends CSV-backed tables. Files are opened per call, so a
// Store is safe for concurrent readers.
type Store struct {
	cfg Config
	log *zap.Logger
}

// NewStore creates a new CSV-backed table store.
func NewStore(cfg Config, log *zap.Logger) *Store {
	return &Store{
		cfg: cfg,
		log: log,
	}
}

func (s *Store) sessionsPath() string {
	return filepath.Join(s.cfg.Dir, s.cfg.SessionsFile)
}

func (s *Store) campaignsPath() string {
	return filepath.Join(s.cfg.Dir, s.cfg.CampaignsFile)
}

func (s *Store) ordersPath() string {
	return filepath.Join(s.cfg.Dir, s.cfg.OrdersFile)
}

// Ping checks that the data directory exists and is a directory.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to stat data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %q is not a directory", s.cfg.Dir)
	}
	return nil
}

// Close releases resources held by the store. File handles are opened per
// call, so there is nothing to release.
func (s *Store) Close() error {
	return nil
}
