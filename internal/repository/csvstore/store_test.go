package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/repository"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewStore(Config{
		Dir:           dir,
		SessionsFile:  "sessions.csv",
		CampaignsFile: "campaigns.csv",
		OrdersFile:    "orders.csv",
	}, zap.NewNop())
	return store, dir
}

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestStore_LoadSessions_Success(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "sessions.csv",
		"session_id,user_id,session_start,utm_source,utm_medium,campaign_id,converted\n"+
			"s1,u1,2024-03-01 09:30:00,google,cpc,c1,1\n"+
			"s2,u2,2024-03-02T10:00:00Z,meta,social,c2,0\n")

	sessions, stats, err := store.LoadSessions(context.Background())

	assert.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 0, stats.Dropped)

	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, "u1", sessions[0].UserID)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), sessions[0].Start)
	assert.Equal(t, "google", sessions[0].UTMSource)
	assert.True(t, sessions[0].Converted)
	assert.False(t, sessions[1].Converted)
}

func TestStore_LoadSessions_DropsInvalidRows(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "sessions.csv",
		"session_id,user_id,session_start,utm_source,utm_medium,campaign_id,converted\n"+
			"s1,u1,2024-03-01 09:30:00,google,cpc,c1,1\n"+
			"s2,,2024-03-01 10:00:00,google,cpc,c1,0\n"+
			"s3,u3,not-a-time,google,cpc,c1,0\n"+
			"s4,u4,2024-03-01 11:00:00,google,cpc,c1,2\n")

	sessions, stats, err := store.LoadSessions(context.Background())

	assert.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, 3, stats.Dropped)
}

func TestStore_LoadSessions_MissingColumn(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "sessions.csv",
		"session_id,user_id,session_start,utm_source,utm_medium,campaign_id\n"+
			"s1,u1,2024-03-01 09:30:00,google,cpc,c1\n")

	_, _, err := store.LoadSessions(context.Background())

	assert.ErrorIs(t, err, repository.ErrMissingColumn)
}

func TestStore_LoadSessions_EmptyTable(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "sessions.csv",
		"session_id,user_id,session_start,utm_source,utm_medium,campaign_id,converted\n")

	_, _, err := store.LoadSessions(context.Background())

	assert.ErrorIs(t, err, repository.ErrEmptyTable)
}

func TestStore_LoadSessions_ExtraColumnsIgnored(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "sessions.csv",
		"session_id,user_id,session_start,utm_source,utm_medium,campaign_id,converted,device\n"+
			"s1,u1,2024-03-01 09:30:00,google,cpc,c1,1,mobile\n")

	sessions, _, err := store.LoadSessions(context.Background())

	assert.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestStore_LoadCampaigns_Success(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "campaigns.csv",
		"campaign_id,campaign_name,start_date,spend,creative_format,creative_theme,effectiveness_tier\n"+
			"c1,Spring Launch,2024-02-15,1200.50,video,eco,high\n")

	campaigns, stats, err := store.LoadCampaigns(context.Background())

	assert.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, "Spring Launch", campaigns[0].Name)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), campaigns[0].StartDate)
	assert.InDelta(t, 1200.50, campaigns[0].Spend, 1e-9)
	assert.Equal(t, "video", campaigns[0].CreativeFormat)
	assert.Equal(t, "eco", campaigns[0].CreativeTheme)
	assert.Equal(t, "high", campaigns[0].EffectivenessTier)
}

func TestStore_LoadCampaigns_DropsNegativeSpend(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "campaigns.csv",
		"campaign_id,campaign_name,start_date,spend,creative_format,creative_theme,effectiveness_tier\n"+
			"c1,A,2024-02-15,100,video,eco,high\n"+
			"c2,B,2024-02-16,-5,video,eco,high\n")

	campaigns, stats, err := store.LoadCampaigns(context.Background())

	assert.NoError(t, err)
	assert.Len(t, campaigns, 1)
	assert.Equal(t, 1, stats.Dropped)
}

func TestStore_LoadOrders_Success(t *testing.T) {
	store, dir := newTestStore(t)
	writeTable(t, dir, "orders.csv",
		"order_id,user_id,order_datetime,gross_revenue\n"+
			"o1,u1,2024-03-05 14:00:00,89.90\n"+
			"o2,u2,2024-03-06 15:30:00,120\n")

	orders, stats, err := store.LoadOrders(context.Background())

	assert.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, "o1", orders[0].OrderID)
	assert.InDelta(t, 89.90, orders[0].GrossRevenue, 1e-9)
}

func TestStore_LoadOrders_FileMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.LoadOrders(context.Background())

	assert.Error(t, err)
}

func TestStore_AppendOrders_CreatesFileWithHeader(t *testing.T) {
	store, _ := newTestStore(t)
	orders := []domain.Order{
		{OrderID: "o1", UserID: "u1", OrderedAt: time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), GrossRevenue: 89.9},
	}

	n, err := store.AppendOrders(context.Background(), orders)

	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	loaded, _, err := store.LoadOrders(context.Background())
	assert.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, orders[0], loaded[0])
}

func TestStore_AppendOrders_HeaderWrittenOnce(t *testing.T) {
	store, dir := newTestStore(t)
	first := []domain.Order{
		{OrderID: "o1", UserID: "u1", OrderedAt: time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), GrossRevenue: 10},
	}
	second := []domain.Order{
		{OrderID: "o2", UserID: "u2", OrderedAt: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), GrossRevenue: 20},
	}

	_, err := store.AppendOrders(context.Background(), first)
	require.NoError(t, err)
	_, err = store.AppendOrders(context.Background(), second)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "orders.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"order_id,user_id,order_datetime,gross_revenue\n"+
			"o1,u1,2024-03-05 14:00:00,10\n"+
			"o2,u2,2024-03-06 09:00:00,20\n",
		string(raw))
}

func TestStore_AppendSessions_DropsInvalid(t *testing.T) {
	store, _ := newTestStore(t)
	sessions := []domain.Session{
		{SessionID: "s1", UserID: "u1", Start: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), UTMSource: "google", UTMMedium: "cpc", CampaignID: "c1", Converted: true},
		{SessionID: "", UserID: "u2", Start: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	n, err := store.AppendSessions(context.Background(), sessions)

	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	loaded, _, err := store.LoadSessions(context.Background())
	assert.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, sessions[0], loaded[0])
}

func TestStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)

	assert.NoError(t, store.Ping(context.Background()))

	missing := NewStore(Config{Dir: filepath.Join(t.TempDir(), "nope")}, zap.NewNop())
	assert.Error(t, missing.Ping(context.Background()))
}
