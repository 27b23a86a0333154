package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository"
)

var sessionColumns = []string{
	"session_id", "user_id", "session_start",
	"utm_source", "utm_medium", "campaign_id", "converted",
}

var campaignColumns = []string{
	"campaign_id", "campaign_name", "start_date", "spend",
	"creative_format", "creative_theme", "effectiveness_tier",
}

var orderColumns = []string{
	"order_id", "user_id", "order_datetime", "gross_revenue",
}

// timeLayouts are tried in order when parsing timestamp columns.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func parseNonNegativeFloat(value, col string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", col, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%s %q out of range", col, value)
	}
	return f, nil
}

// header maps column names to field indexes for one CSV file.
type header map[string]int

func resolveHeader(file string, record, required []string) (header, error) {
	h := make(header, len(record))
	for i, name := range record {
		h[strings.TrimSpace(name)] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%s: %w: %q", file, repository.ErrMissingColumn, col)
		}
	}
	return h, nil
}

func (h header) field(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// scan streams one CSV file, resolving its header and feeding each data row
// to parse. Rows that fail validation are dropped and counted, not fatal.
func (s *Store) scan(ctx context.Context, path string, required []string, parse func(header, []string) error) (*repository.LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: file has no header row", path, repository.ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	h, err := resolveHeader(path, first, required)
	if err != nil {
		return nil, err
	}

	stats := &repository.LoadStats{File: path}
	for row := 2; ; row++ {
		if row%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Dropped++
			s.log.Debug("dropped malformed row",
				zap.String("file", path),
				zap.Int("row", row),
				zap.Error(err))
			continue
		}
		if err := parse(h, record); err != nil {
			stats.Dropped++
			s.log.Debug("dropped invalid row",
				zap.String("file", path),
				zap.Int("row", row),
				zap.Error(err))
			continue
		}
		stats.Kept++
	}

	if stats.Dropped > 0 {
		s.log.Warn("dropped rows failing validation",
			zap.String("file", path),
			zap.Int("kept", stats.Kept),
			zap.Int("dropped", stats.Dropped))
	}
	return stats, nil
}

func parseSession(h header, record []string) (domain.Session, error) {
	var sess domain.Session

	sess.SessionID = h.field(record, "session_id")
	if sess.SessionID == "" {
		return sess, errors.New("empty session_id")
	}
	sess.UserID = h.field(record, "user_id")
	if sess.UserID == "" {
		return sess, errors.New("empty user_id")
	}

	start, err := parseTime(h.field(record, "session_start"))
	if err != nil {
		return sess, fmt.Errorf("session_start: %w", err)
	}
	sess.Start = start

	switch h.field(record, "converted") {
	case "0":
		sess.Converted = false
	case "1":
		sess.Converted = true
	default:
		return sess, fmt.Errorf("converted flag %q not in {0,1}", h.field(record, "converted"))
	}

	sess.UTMSource = h.field(record, "utm_source")
	sess.UTMMedium = h.field(record, "utm_medium")
	sess.CampaignID = h.field(record, "campaign_id")
	return sess, nil
}

func parseCampaign(h header, record []string) (domain.Campaign, error) {
	var c domain.Campaign

	c.CampaignID = h.field(record, "campaign_id")
	if c.CampaignID == "" {
		return c, errors.New("empty campaign_id")
	}

	start, err := parseTime(h.field(record, "start_date"))
	if err != nil {
		return c, fmt.Errorf("start_date: %w", err)
	}
	c.StartDate = start

	spend, err := parseNonNegativeFloat(h.field(record, "spend"), "spend")
	if err != nil {
		return c, err
	}
	c.Spend = spend

	c.Name = h.field(record, "campaign_name")
	c.CreativeFormat = h.field(record, "creative_format")
	c.CreativeTheme = h.field(record, "creative_theme")
	c.EffectivenessTier = h.field(record, "effectiveness_tier")
	return c, nil
}

func parseOrder(h header, record []string) (domain.Order, error) {
	var o domain.Order

	o.OrderID = h.field(record, "order_id")
	if o.OrderID == "" {
		return o, errors.New("empty order_id")
	}
	o.UserID = h.field(record, "user_id")
	if o.UserID == "" {
		return o, errors.New("empty user_id")
	}

	at, err := parseTime(h.field(record, "order_datetime"))
	if err != nil {
		return o, fmt.Errorf("order_datetime: %w", err)
	}
	o.OrderedAt = at

	rev, err := parseNonNegativeFloat(h.field(record, "gross_revenue"), "gross_revenue")
	if err != nil {
		return o, err
	}
	o.GrossRevenue = rev
	return o, nil
}

// LoadSessions reads the sessions table, dropping rows that fail validation.
func (s *Store) LoadSessions(ctx context.Context) ([]domain.Session, *repository.LoadStats, error) {
	path := s.sessionsPath()
	var sessions []domain.Session
	stats, err := s.scan(ctx, path, sessionColumns, func(h header, record []string) error {
		sess, err := parseSession(h, record)
		if err != nil {
			return err
		}
		sessions = append(sessions, sess)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(sessions) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", path, repository.ErrEmptyTable)
	}
	return sessions, stats, nil
}

// LoadCampaigns reads the campaigns table, dropping rows that fail validation.
func (s *Store) LoadCampaigns(ctx context.Context) ([]domain.Campaign, *repository.LoadStats, error) {
	path := s.campaignsPath()
	var campaigns []domain.Campaign
	stats, err := s.scan(ctx, path, campaignColumns, func(h header, record []string) error {
		c, err := parseCampaign(h, record)
		if err != nil {
			return err
		}
		campaigns = append(campaigns, c)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(campaigns) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", path, repository.ErrEmptyTable)
	}
	return campaigns, stats, nil
}

// LoadOrders reads the orders table, dropping rows that fail validation.
func (s *Store) LoadOrders(ctx context.Context) ([]domain.Order, *repository.LoadStats, error) {
	path := s.ordersPath()
	var orders []domain.Order
	stats, err := s.scan(ctx, path, orderColumns, func(h header, record []string) error {
		o, err := parseOrder(h, record)
		if err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(orders) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", path, repository.ErrEmptyTable)
	}
	return orders, stats, nil
}
