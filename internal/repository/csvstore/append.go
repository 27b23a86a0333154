package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
)

// appendLayout is the timestamp format written by the append path. It is one
// of the layouts the load path accepts.
const appendLayout = "2006-01-02 15:04:05"

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// appendRows opens path for appending, writes the header when the file is new
// or empty, then writes the given records.
func appendRows(path string, columns []string, records [][]string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(columns); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", path, err)
		}
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to append to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func validateSession(sess domain.Session) error {
	if sess.SessionID == "" {
		return errors.New("empty session_id")
	}
	if sess.UserID == "" {
		return errors.New("empty user_id")
	}
	if sess.Start.IsZero() {
		return errors.New("zero session_start")
	}
	return nil
}

func validateOrder(o domain.Order) error {
	if o.OrderID == "" {
		return errors.New("empty order_id")
	}
	if o.UserID == "" {
		return errors.New("empty user_id")
	}
	if o.OrderedAt.IsZero() {
		return errors.New("zero order_datetime")
	}
	if math.IsNaN(o.GrossRevenue) || math.IsInf(o.GrossRevenue, 0) || o.GrossRevenue < 0 {
		return fmt.Errorf("gross_revenue %v out of range", o.GrossRevenue)
	}
	return nil
}

// AppendSessions validates and appends session rows to the sessions table,
// returning how many rows were written. Invalid rows are dropped and logged.
func (s *Store) AppendSessions(ctx context.Context, sessions []domain.Session) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	records := make([][]string, 0, len(sessions))
	dropped := 0
	for i, sess := range sessions {
		if err := validateSession(sess); err != nil {
			dropped++
			s.log.Debug("dropped invalid session",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		converted := "0"
		if sess.Converted {
			converted = "1"
		}
		records = append(records, []string{
			sess.SessionID,
			sess.UserID,
			sess.Start.Format(appendLayout),
			sess.UTMSource,
			sess.UTMMedium,
			sess.CampaignID,
			converted,
		})
	}
	if dropped > 0 {
		s.log.Warn("dropped sessions failing validation",
			zap.Int("kept", len(records)),
			zap.Int("dropped", dropped))
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := appendRows(s.sessionsPath(), sessionColumns, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// AppendOrders validates and appends order rows to the orders table,
// returning how many rows were written. Invalid rows are dropped and logged.
func (s *Store) AppendOrders(ctx context.Context, orders []domain.Order) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	records := make([][]string, 0, len(orders))
	dropped := 0
	for i, o := range orders {
		if err := validateOrder(o); err != nil {
			dropped++
			s.log.Debug("dropped invalid order",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		records = append(records, []string{
			o.OrderID,
			o.UserID,
			o.OrderedAt.Format(appendLayout),
			formatFloat(o.GrossRevenue),
		})
	}
	if dropped > 0 {
		s.log.Warn("dropped orders failing validation",
			zap.Int("kept", len(records)),
			zap.Int("dropped", dropped))
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := appendRows(s.ordersPath(), orderColumns, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
