package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// Writers take the database lock at BEGIN so that the find-or-create in
	// StartConversation cannot interleave with another writer.
	if !strings.Contains(dsn, "_txlock=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_txlock=immediate"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL,
			sender TEXT NOT NULL,
			receiver_id TEXT,
			text TEXT NOT NULL,
			display_time TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, conversation_id)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			unique_id TEXT NOT NULL UNIQUE,
			email TEXT UNIQUE,
			first_name TEXT,
			last_name TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS freelancers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT,
			tagline TEXT,
			location TEXT,
			roles TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendMessage inserts a message and sets its store-assigned id.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender, receiver_id, text, display_time, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ConversationID, msg.Sender, nullIfEmpty(msg.ReceiverID), msg.Text, msg.Timestamp, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	msg.ID = id
	return nil
}

// StartConversation returns the first conversation addressed to seed.ReceiverID,
// or writes seed under max(conversation_id)+1. The boolean reports whether a
// new conversation was created.
func (s *SQLiteStore) StartConversation(ctx context.Context, seed *domain.Message) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT conversation_id FROM messages WHERE receiver_id = ? ORDER BY conversation_id ASC LIMIT 1`,
		seed.ReceiverID).Scan(&existing)
	if err == nil {
		return existing, false, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("find conversation: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (conversation_id, sender, receiver_id, text, display_time, created_at)
		SELECT COALESCE(MAX(conversation_id), 0) + 1, ?, ?, ?, ?, ? FROM messages
		RETURNING id, conversation_id`,
		seed.Sender, nullIfEmpty(seed.ReceiverID), seed.Text, seed.Timestamp, seed.CreatedAt,
	).Scan(&seed.ID, &seed.ConversationID)
	if err != nil {
		return 0, false, fmt.Errorf("insert seed message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return seed.ConversationID, true, nil
}

// ListMessages returns the whole log by id.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender, receiver_id, text, display_time, created_at FROM messages ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// GetConversationMessages retrieves the messages of one conversation in stored order.
func (s *SQLiteStore) GetConversationMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender, receiver_id, text, display_time, created_at FROM messages WHERE conversation_id = ? ORDER BY id ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var receiverID sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &receiverID, &msg.Text, &msg.Timestamp, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if receiverID.Valid {
			msg.ReceiverID = receiverID.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateClient creates a new client and sets its id.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *domain.Client) error {
	if client.UniqueID == "" {
		client.UniqueID = uuid.New().String()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (username, unique_id, email, first_name, last_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		client.Username, client.UniqueID, nullIfEmpty(client.Email), client.FirstName, client.LastName, client.CreatedAt)
	if err != nil {
		return sqliteConstraintError(err, "insert client")
	}
	client.ID, err = result.LastInsertId()
	return err
}

// GetClient retrieves a client by ID.
func (s *SQLiteStore) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	var client domain.Client
	var email, firstName, lastName sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, unique_id, email, first_name, last_name, created_at FROM clients WHERE id = ?`,
		id).Scan(&client.ID, &client.Username, &client.UniqueID, &email, &firstName, &lastName, &client.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	client.Email = email.String
	client.FirstName = firstName.String
	client.LastName = lastName.String
	return &client, nil
}

// DeleteClient removes a client; the boolean reports whether a row existed.
func (s *SQLiteStore) DeleteClient(ctx context.Context, id int64) (bool, error) {
	return s.deleteAccount(ctx, "clients", id)
}

// CreateFreelancer creates a new freelancer and sets its id.
func (s *SQLiteStore) CreateFreelancer(ctx context.Context, f *domain.Freelancer) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO freelancers (username, email, first_name, last_name, tagline, location, roles, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Username, f.Email, f.FirstName, f.LastName, f.Tagline, f.Location, f.Roles, f.CreatedAt)
	if err != nil {
		return sqliteConstraintError(err, "insert freelancer")
	}
	f.ID, err = result.LastInsertId()
	return err
}

// GetFreelancer retrieves a freelancer by ID.
func (s *SQLiteStore) GetFreelancer(ctx context.Context, id int64) (*domain.Freelancer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, first_name, last_name, tagline, location, roles, created_at FROM freelancers WHERE id = ?`, id)
	f, err := scanFreelancer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFreelancers lists all freelancers by id.
func (s *SQLiteStore) ListFreelancers(ctx context.Context) ([]domain.Freelancer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, first_name, last_name, tagline, location, roles, created_at FROM freelancers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var freelancers []domain.Freelancer
	for rows.Next() {
		f, err := scanFreelancer(rows)
		if err != nil {
			return nil, err
		}
		freelancers = append(freelancers, *f)
	}
	return freelancers, rows.Err()
}

// DeleteFreelancer removes a freelancer; the boolean reports whether a row existed.
func (s *SQLiteStore) DeleteFreelancer(ctx context.Context, id int64) (bool, error) {
	return s.deleteAccount(ctx, "freelancers", id)
}

// GetIdentity returns the display name fields of an account of the given role.
func (s *SQLiteStore) GetIdentity(ctx context.Context, role domain.Role, id int64) (*domain.Identity, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	var firstName, lastName sql.NullString
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT first_name, last_name FROM %s WHERE id = ?`, table), id).Scan(&firstName, &lastName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Identity{FirstName: firstName.String, LastName: lastName.String}, nil
}

// UsernameExists reports whether the username is taken within the role's table.
func (s *SQLiteStore) UsernameExists(ctx context.Context, role domain.Role, username string) (bool, error) {
	return s.exists(ctx, role, "username", username)
}

// EmailExists reports whether the email is registered within the role's table.
func (s *SQLiteStore) EmailExists(ctx context.Context, role domain.Role, email string) (bool, error) {
	return s.exists(ctx, role, "email", email)
}

func (s *SQLiteStore) exists(ctx context.Context, role domain.Role, column, value string) (bool, error) {
	table, err := accountTable(role)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)`, table, column), value).Scan(&found)
	return found, err
}

func (s *SQLiteStore) deleteAccount(ctx context.Context, table string, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFreelancer(row rowScanner) (*domain.Freelancer, error) {
	var f domain.Freelancer
	var lastName, tagline, location, roles sql.NullString
	if err := row.Scan(&f.ID, &f.Username, &f.Email, &f.FirstName, &lastName, &tagline, &location, &roles, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.LastName = lastName.String
	f.Tagline = tagline.String
	f.Location = location.String
	f.Roles = roles.String
	return &f, nil
}

// sqliteConstraintError turns a UNIQUE violation into a validation error naming the column.
func sqliteConstraintError(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		field := "account"
		// Message format: "UNIQUE constraint failed: clients.email"
		if i := strings.LastIndex(sqliteErr.Error(), "."); i >= 0 {
			field = sqliteErr.Error()[i+1:]
		}
		return domain.NewValidationError(field, "already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}
