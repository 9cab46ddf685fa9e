package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/identity"
	"github.com/parleylabs/parley/internal/shared"
	_ "modernc.org/sqlite"
)

// appendRetries bounds SQLITE_BUSY retries on the append path.
const appendRetries = 3

// SQLiteStore implements ConversationStore using SQLite.
type SQLiteStore struct {
	db *sql.DB

	// Serializes read-modify-write appends so concurrent finalizations
	// cannot lose messages or trip SQLITE_BUSY.
	appendMu sync.Mutex
}

// NewSQLite creates a new SQLite-backed conversation store.
func NewSQLite(dbPath string) (ConversationStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		total_messages INTEGER NOT NULL DEFAULT 0,
		last_ai_response TEXT NOT NULL DEFAULT '',
		topics_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// OpenConversation returns the conversation with the given id, creating it
// if missing. An empty id mints a fresh conversation id.
func (s *SQLiteStore) OpenConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	if id != "" {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			return conv, nil
		}
	} else {
		var err error
		id, err = identity.NewConversationID()
		if err != nil {
			return nil, err
		}
	}

	conv := domain.NewConversation(id)
	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a conversation, or nil if not found.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, title, messages_json, total_messages, last_ai_response, topics_json, created_at, updated_at
		FROM conversations WHERE id = ?`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}
	return conv, nil
}

// ListConversations returns all conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*domain.Conversation, error) {
	query := `
		SELECT id, title, messages_json, total_messages, last_ai_response, topics_json, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, nil
}

// DeleteConversation removes a conversation record.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// AppendMessage appends a finalized message and updates derived metadata.
// SQLITE_BUSY conflicts are retried with exponential backoff.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, msg domain.Message) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	baseDelay := 50 * time.Millisecond
	var lastErr error
	for i := 0; i < appendRetries; i++ {
		lastErr = s.appendOnce(ctx, conversationID, msg)
		if lastErr == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(lastErr) || i == appendRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Append failed with SQLITE_BUSY, retrying",
			"conversation_id", conversationID,
			"attempt", i+1,
			"delay", delay)
		time.Sleep(delay)
	}
	return fmt.Errorf("append message to %s: %w", conversationID, lastErr)
}

func (s *SQLiteStore) appendOnce(ctx context.Context, conversationID string, msg domain.Message) error {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	conv.Append(msg)
	return s.save(ctx, conv)
}

func (s *SQLiteStore) save(ctx context.Context, conv *domain.Conversation) error {
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	topicsJSON, err := json.Marshal(conv.Metadata.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}

	query := `
	INSERT INTO conversations (id, title, messages_json, total_messages, last_ai_response, topics_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		messages_json = excluded.messages_json,
		total_messages = excluded.total_messages,
		last_ai_response = excluded.last_ai_response,
		topics_json = excluded.topics_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		conv.ID, conv.Title, string(messagesJSON),
		conv.Metadata.TotalMessages, conv.Metadata.LastAIResponse, string(topicsJSON),
		conv.CreatedAt.UnixMilli(), conv.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanConversation.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	var messagesJSON, topicsJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&conv.ID, &conv.Title, &messagesJSON,
		&conv.Metadata.TotalMessages, &conv.Metadata.LastAIResponse, &topicsJSON,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &conv.Metadata.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}

	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.UpdatedAt = time.UnixMilli(updatedAt)
	return &conv, nil
}
