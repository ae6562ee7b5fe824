package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

var requestColumns = map[string]string{
	"id":           "id",
	"platform":     "platform",
	"user_id":      "user_id",
	"channel_id":   "channel_id",
	"video_url":    "video_url",
	"product_name": "product_name",
	"status":       "status",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

var supplierColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"name_en":    "name_en",
	"category":   "category",
	"location":   "location",
	"moq":        "moq",
	"rating":     "rating",
	"status":     "status",
	"created_at": "created_at",
}

var messageColumns = map[string]string{
	"channel_id": "channel_id",
	"user_id":    "user_id",
	"is_bot":     "is_bot",
	"created_at": "created_at",
}

const requestSelect = `SELECT id, platform, user_id, user_name, channel_id, video_url, product_name,
	visual_analysis, quote, status, created_at, updated_at FROM sourcing_requests`

// PostgresStore implements Gateway using pgx/v5.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a new PostgresStore over a pool or any DB.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// --- Sourcing Requests ---

func (s *PostgresStore) CreateSourcingRequest(ctx context.Context, req *models.SourcingRequest, actions ...*models.ActionLog) error {
	analysis, err := json.Marshal(req.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	quote, err := json.Marshal(req.Quote)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return classify("begin create sourcing request", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO sourcing_requests (id, platform, user_id, user_name, channel_id, video_url, product_name,
		   visual_analysis, quote, quote_price_usd, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.Platform, req.RequesterID, req.RequesterName, req.ChannelID, req.ReferenceURL,
		req.ProductName, analysis, quote, req.Quote.UnitPriceUSD, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return classify("create sourcing request", err)
	}

	for _, a := range actions {
		if err := insertAction(ctx, tx, a); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit sourcing request", err)
	}
	return nil
}

func (s *PostgresStore) GetSourcingRequest(ctx context.Context, id uuid.UUID) (*models.SourcingRequest, error) {
	row := s.db.QueryRow(ctx, requestSelect+` WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		return nil, classify("get sourcing request", err)
	}
	return req, nil
}

// UpdateSourcingRequestStatus moves a request forward, rejecting transitions
// the status machine does not allow.
func (s *PostgresStore) UpdateSourcingRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	var current string
	err := s.db.QueryRow(ctx, `SELECT status FROM sourcing_requests WHERE id = $1`, id).Scan(&current)
	if err != nil {
		return classify("get sourcing request status", err)
	}

	if !models.CanTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current, status)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE sourcing_requests SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		id, status, time.Now().UTC(), current)
	if err != nil {
		return classify("update sourcing request status", err)
	}
	if tag.RowsAffected() == 0 {
		// Another writer moved it between the read and the update.
		return fmt.Errorf("%w: %s changed concurrently", models.ErrInvalidTransition, id)
	}
	return nil
}

func (s *PostgresStore) ListSourcingRequests(ctx context.Context, filter Filter) ([]*models.SourcingRequest, error) {
	tail, args, err := filter.sqlClause(requestColumns)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, requestSelect+tail, args...)
	if err != nil {
		return nil, classify("list sourcing requests", err)
	}
	defer rows.Close()

	requests := []*models.SourcingRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sourcing request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (*models.SourcingRequest, error) {
	var r models.SourcingRequest
	var analysis, quote []byte
	if err := row.Scan(&r.ID, &r.Platform, &r.RequesterID, &r.RequesterName, &r.ChannelID, &r.ReferenceURL,
		&r.ProductName, &analysis, &quote, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &r.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
	}
	if len(quote) > 0 {
		if err := json.Unmarshal(quote, &r.Quote); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
	}
	return &r, nil
}

// --- Suppliers ---

func (s *PostgresStore) ListSuppliers(ctx context.Context, filter Filter) ([]*models.Supplier, error) {
	tail, args, err := filter.sqlClause(supplierColumns)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, name, name_en, category, moq, rating, location, certifications, status, created_at
		 FROM suppliers`+tail, args...)
	if err != nil {
		return nil, classify("list suppliers", err)
	}
	defer rows.Close()

	suppliers := []*models.Supplier{}
	for rows.Next() {
		var sp models.Supplier
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.NameEN, &sp.Category, &sp.MOQ, &sp.Rating,
			&sp.Location, &sp.Certifications, &sp.Status, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, &sp)
	}
	return suppliers, rows.Err()
}

// --- Messages ---

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	var embed []byte
	if len(msg.Embed) > 0 {
		embed = msg.Embed
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO messages (id, channel_id, user_id, user_name, content, is_bot, embed_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.ChannelID, msg.UserID, msg.UserName, msg.Content, msg.IsBot, embed, msg.CreatedAt)
	if err != nil {
		return classify("create message", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, filter Filter) ([]*models.Message, error) {
	tail, args, err := filter.sqlClause(messageColumns)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, channel_id, user_id, user_name, content, is_bot, embed_data, created_at FROM messages`+tail,
		args...)
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var m models.Message
		var embed []byte
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.UserName, &m.Content, &m.IsBot,
			&embed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(embed) > 0 {
			m.Embed = embed
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// --- Agent Logs ---

func (s *PostgresStore) LogAction(ctx context.Context, action *models.ActionLog) error {
	return insertAction(ctx, s.db, action)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAction(ctx context.Context, db execer, a *models.ActionLog) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode action metadata: %w", err)
	}
	_, err = db.Exec(ctx,
		`INSERT INTO agent_logs (id, action_type, metadata, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.ActionType, metadata, a.CreatedAt)
	if err != nil {
		return classify("log action", err)
	}
	return nil
}

// classify maps driver errors onto the package sentinels. Server-side errors
// keep their detail; anything that never reached the server is unavailable.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // unique_violation
			return ErrDuplicateKey
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

var _ Gateway = (*PostgresStore)(nil)
