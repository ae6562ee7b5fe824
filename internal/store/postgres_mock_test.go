package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func testRequest() *models.SourcingRequest {
	req := models.NewSourcingRequest("TikTok", "u-42", "alice", "chan-1", "https://vm.tiktok.com/ZMabc")
	req.ProductName = "Desk Lamp"
	req.Status = models.RequestStatusQuoted
	req.Quote = models.PriceQuote{UnitPriceUSD: 11.14, Quantity: 1000}
	return req
}

func TestPostgres_CreateSourcingRequestWithActions(t *testing.T) {
	s, mock := newMockStore(t)
	req := testRequest()
	action := &models.ActionLog{ActionType: models.ActionAnalysis, Metadata: map[string]any{"request_id": req.ID.String()}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sourcing_requests").
		WithArgs(req.ID, "TikTok", "u-42", "alice", "chan-1", "https://vm.tiktok.com/ZMabc", "Desk Lamp",
			pgxmock.AnyArg(), pgxmock.AnyArg(), 11.14, models.RequestStatusQuoted, req.CreatedAt, req.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO agent_logs").
		WithArgs(pgxmock.AnyArg(), models.ActionAnalysis, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.CreateSourcingRequest(context.Background(), req, action))
	assert.NotEqual(t, uuid.Nil, action.ID)
	assert.False(t, action.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateSourcingRequestRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sourcing_requests").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO agent_logs").WillReturnError(&pgconn.PgError{Code: "23502", Message: "null value"})
	mock.ExpectRollback()

	err := s.CreateSourcingRequest(context.Background(), testRequest(), &models.ActionLog{ActionType: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log action")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateSourcingRequestUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))

	err := s.CreateSourcingRequest(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPostgres_CreateSourcingRequestDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sourcing_requests").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := s.CreateSourcingRequest(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestPostgres_GetSourcingRequest(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "platform", "user_id", "user_name", "channel_id", "video_url",
		"product_name", "visual_analysis", "quote", "status", "created_at", "updated_at"}).
		AddRow(id, "TikTok", "u-42", "alice", "", "https://vm.tiktok.com/ZMabc", "Desk Lamp",
			[]byte(`{"product_name":"Desk Lamp","confidence":0.8}`), []byte(`{"unit_price_usd":4.2}`),
			models.RequestStatusQuoted, now, now)
	mock.ExpectQuery("SELECT id, platform").WithArgs(id).WillReturnRows(rows)

	req, err := s.GetSourcingRequest(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", req.Analysis.ProductName)
	assert.InDelta(t, 0.8, req.Analysis.Confidence, 1e-9)
	assert.InDelta(t, 4.2, req.Quote.UnitPriceUSD, 1e-9)
	assert.Equal(t, models.RequestStatusQuoted, req.Status)
}

func TestPostgres_GetSourcingRequestNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, platform").WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSourcingRequest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_UpdateStatus(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT status FROM sourcing_requests").WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.RequestStatusQuoted))
	mock.ExpectExec("UPDATE sourcing_requests SET status").
		WithArgs(id, models.RequestStatusCompleted, pgxmock.AnyArg(), models.RequestStatusQuoted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateSourcingRequestStatus(context.Background(), id, models.RequestStatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateStatusRejectsBackwards(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT status FROM sourcing_requests").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.RequestStatusCompleted))

	err := s.UpdateSourcingRequestStatus(context.Background(), id, models.RequestStatusProcessing)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateStatusConcurrentChange(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT status FROM sourcing_requests").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.RequestStatusQuoted))
	mock.ExpectExec("UPDATE sourcing_requests SET status").WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSourcingRequestStatus(context.Background(), uuid.New(), models.RequestStatusFailed)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestPostgres_UpdateStatusNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT status FROM sourcing_requests").WillReturnError(pgx.ErrNoRows)

	err := s.UpdateSourcingRequestStatus(context.Background(), uuid.New(), models.RequestStatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_ListSuppliers(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "name", "name_en", "category", "moq", "rating", "location",
		"certifications", "status", "created_at"}).
		AddRow("f-1", "深圳前沿科技", "Shenzhen Frontier Tech", "Electronics", 1000, 4.9, "广东深圳",
			[]string{"ISO9001", "CE"}, "active", now).
		AddRow("f-2", "Shenzhen Bright", "", "Electronics", 500, 4.2, "Shenzhen", []string{}, "active", now)

	mock.ExpectQuery(`FROM suppliers WHERE status = \$1 AND category ILIKE \$2 ORDER BY rating DESC LIMIT \$3`).
		WithArgs("active", "%Electronics%", 5).
		WillReturnRows(rows)

	got, err := s.ListSuppliers(context.Background(),
		NewFilter().Eq("status", "active").Like("category", "Electronics").Sort("rating").Take(5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Shenzhen Frontier Tech", got[0].NameEN)
	assert.Equal(t, []string{"ISO9001", "CE"}, got[0].Certifications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListSuppliersInvalidFilter(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.ListSuppliers(context.Background(), NewFilter().Eq("secret", 1))
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestPostgres_ListSourcingRequestsEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM sourcing_requests WHERE user_id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "platform", "user_id", "user_name", "channel_id", "video_url",
			"product_name", "visual_analysis", "quote", "status", "created_at", "updated_at"}))

	got, err := s.ListSourcingRequests(context.Background(), NewFilter().Eq("user_id", "nobody").Sort("created_at").Take(5))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgres_CreateMessage(t *testing.T) {
	s, mock := newMockStore(t)
	msg := &models.Message{ID: uuid.New(), ChannelID: "c", UserID: "bot", UserName: "quotehunter",
		Content: "Quote ready", IsBot: true, Embed: []byte(`{"title":"t"}`), CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(msg.ID, "c", "bot", "quotehunter", "Quote ready", true, []byte(`{"title":"t"}`), msg.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateMessage(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LogAction(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO agent_logs").
		WithArgs(pgxmock.AnyArg(), models.ActionQuoteGenerated, []byte(`{"price":11.14}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.LogAction(context.Background(), &models.ActionLog{
		ActionType: models.ActionQuoteGenerated,
		Metadata:   map[string]any{"price": 11.14},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewPostgresStore(mock)

	mock.ExpectPing().WillReturnError(errors.New("connection reset"))
	assert.ErrorIs(t, s.Ping(context.Background()), ErrUnavailable)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("op", pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, classify("op", &pgconn.PgError{Code: "23505"}), ErrDuplicateKey)

	pgErr := classify("op", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	assert.NotErrorIs(t, pgErr, ErrUnavailable)

	ctxErr := classify("op", context.DeadlineExceeded)
	assert.ErrorIs(t, ctxErr, ErrUnavailable)
	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}
