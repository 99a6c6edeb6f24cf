package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// conversationLockKey serializes conversation id assignment across connections.
const conversationLockKey int64 = 0x6d6b7470 // "mktp"

// PostgresStore implements Store on PostgreSQL through pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and migrates.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL,
			sender VARCHAR(50) NOT NULL,
			receiver_id VARCHAR(36),
			text VARCHAR(500) NOT NULL,
			display_time VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, conversation_id)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(20) NOT NULL UNIQUE,
			unique_id VARCHAR(36) NOT NULL UNIQUE,
			email VARCHAR(120) UNIQUE,
			first_name VARCHAR(20),
			last_name VARCHAR(20),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS freelancers (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(120) NOT NULL UNIQUE,
			first_name VARCHAR(50) NOT NULL,
			last_name VARCHAR(50),
			tagline VARCHAR(200),
			location VARCHAR(100),
			roles VARCHAR(500),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender, receiver_id, text, display_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		msg.ConversationID, msg.Sender, nullIfEmpty(msg.ReceiverID), msg.Text, msg.Timestamp, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// StartConversation holds a transaction-scoped advisory lock so concurrent
// starters observe each other's seed messages.
func (s *PostgresStore) StartConversation(ctx context.Context, seed *domain.Message) (int64, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, conversationLockKey); err != nil {
		return 0, false, fmt.Errorf("lock conversation ids: %w", err)
	}

	var existing int64
	err = tx.QueryRow(ctx, `
		SELECT conversation_id FROM messages WHERE receiver_id = $1
		ORDER BY conversation_id ASC LIMIT 1`, seed.ReceiverID).Scan(&existing)
	if err == nil {
		return existing, false, tx.Commit(ctx)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("find conversation: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender, receiver_id, text, display_time, created_at)
		SELECT COALESCE(MAX(conversation_id), 0) + 1, $1, $2, $3, $4, $5 FROM messages
		RETURNING id, conversation_id`,
		seed.Sender, nullIfEmpty(seed.ReceiverID), seed.Text, seed.Timestamp, seed.CreatedAt,
	).Scan(&seed.ID, &seed.ConversationID)
	if err != nil {
		return 0, false, fmt.Errorf("insert seed message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return seed.ConversationID, true, nil
}

const messageColumns = `id, conversation_id, sender, COALESCE(receiver_id, ''), text, display_time, created_at`

func (s *PostgresStore) ListMessages(ctx context.Context) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *PostgresStore) GetConversationMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.ReceiverID, &msg.Text, &msg.Timestamp, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) CreateClient(ctx context.Context, client *domain.Client) error {
	if client.UniqueID == "" {
		client.UniqueID = uuid.New().String()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO clients (username, unique_id, email, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		client.Username, client.UniqueID, nullIfEmpty(client.Email), client.FirstName, client.LastName, client.CreatedAt,
	).Scan(&client.ID)
	if err != nil {
		return pgConstraintError(err, "insert client")
	}
	return nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	var c domain.Client
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, unique_id, COALESCE(email, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), created_at
		FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Username, &c.UniqueID, &c.Email, &c.FirstName, &c.LastName, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) DeleteClient(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete client: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CreateFreelancer(ctx context.Context, f *domain.Freelancer) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO freelancers (username, email, first_name, last_name, tagline, location, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		f.Username, f.Email, f.FirstName, f.LastName, f.Tagline, f.Location, f.Roles, f.CreatedAt,
	).Scan(&f.ID)
	if err != nil {
		return pgConstraintError(err, "insert freelancer")
	}
	return nil
}

const freelancerColumns = `id, username, email, first_name, COALESCE(last_name, ''), COALESCE(tagline, ''),
	COALESCE(location, ''), COALESCE(roles, ''), created_at`

func (s *PostgresStore) GetFreelancer(ctx context.Context, id int64) (*domain.Freelancer, error) {
	var f domain.Freelancer
	err := s.pool.QueryRow(ctx, `SELECT `+freelancerColumns+` FROM freelancers WHERE id = $1`, id).
		Scan(&f.ID, &f.Username, &f.Email, &f.FirstName, &f.LastName, &f.Tagline, &f.Location, &f.Roles, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) ListFreelancers(ctx context.Context) ([]domain.Freelancer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+freelancerColumns+` FROM freelancers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Freelancer
	for rows.Next() {
		var f domain.Freelancer
		if err := rows.Scan(&f.ID, &f.Username, &f.Email, &f.FirstName, &f.LastName, &f.Tagline, &f.Location, &f.Roles, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteFreelancer(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM freelancers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete freelancer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, role domain.Role, id int64) (*domain.Identity, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	var ident domain.Identity
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COALESCE(first_name, ''), COALESCE(last_name, '') FROM %s WHERE id = $1`, table), id,
	).Scan(&ident.FirstName, &ident.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

func (s *PostgresStore) UsernameExists(ctx context.Context, role domain.Role, username string) (bool, error) {
	return s.exists(ctx, role, "username", username)
}

func (s *PostgresStore) EmailExists(ctx context.Context, role domain.Role, email string) (bool, error) {
	return s.exists(ctx, role, "email", email)
}

func (s *PostgresStore) exists(ctx context.Context, role domain.Role, column, value string) (bool, error) {
	table, err := accountTable(role)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`, table, column), value).Scan(&found)
	return found, err
}

// pgConstraintError maps unique_violation (23505) to a validation error.
func pgConstraintError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return domain.NewValidationError(field, "already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}
