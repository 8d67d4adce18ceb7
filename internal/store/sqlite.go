package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"aiko/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all DB access through Go's connection pool, so the bot
	// loop and the update orchestrator never hit "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Conversations ---

func (s *SQLiteStore) GetOrCreateConversation(ctx context.Context, chatID, title string) (*models.Conversation, error) {
	c := &models.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, title, created_at, updated_at FROM conversations WHERE chat_id = ?`, chatID,
	).Scan(&c.ID, &c.ChatID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	now := time.Now().UTC()
	c = &models.Conversation{
		ID:        newULID(),
		ChatID:    chatID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, chat_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ChatID, c.Title, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = newULID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, msg.CreatedAt, msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages of a conversation,
// oldest first, ready for prompt building.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) CountConversations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return n, nil
}

// --- Update events ---

func (s *SQLiteStore) RecordUpdateEvent(ctx context.Context, ev *models.UpdateEvent) error {
	if ev.ID == "" {
		ev.ID = newULID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_events (id, from_rev, to_rev, commits_behind, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.FromRev, ev.ToRev, ev.CommitsBehind, ev.Outcome, ev.Detail, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record update event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LastUpdateEvent(ctx context.Context) (*models.UpdateEvent, error) {
	ev := &models.UpdateEvent{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, from_rev, to_rev, commits_behind, outcome, detail, created_at
		FROM update_events ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&ev.ID, &ev.FromRev, &ev.ToRev, &ev.CommitsBehind, &ev.Outcome, &ev.Detail, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last update event: %w", err)
	}
	return ev, nil
}

func (s *SQLiteStore) ListUpdateEvents(ctx context.Context, limit int) ([]*models.UpdateEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_rev, to_rev, commits_behind, outcome, detail, created_at
		FROM update_events ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list update events: %w", err)
	}
	defer rows.Close()

	var events []*models.UpdateEvent
	for rows.Next() {
		ev := &models.UpdateEvent{}
		if err := rows.Scan(&ev.ID, &ev.FromRev, &ev.ToRev, &ev.CommitsBehind, &ev.Outcome, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan update event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate update events: %w", err)
	}
	return events, nil
}
