package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CatalogFileName is the catalog database written at the root of a vault
const CatalogFileName = "catalog.db"

// catalogTimeLayout is fixed width so stored times sort as text
const catalogTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrConversationNotFound is returned when a catalog lookup finds nothing
var ErrConversationNotFound = errors.New("conversation not found")

// Catalog records vault builds in a SQLite database
type Catalog struct {
	db   *sql.DB
	path string
}

// CatalogRun is one recorded conversion
type CatalogRun struct {
	ID                string
	Source            Source
	Input             string
	CreatedAt         time.Time
	ConversationCount int
}

// CatalogRecord pairs a conversation with the vault file it was written to
type CatalogRecord struct {
	Conversation *Conversation
	Path         string
}

// CatalogEntry is a conversation row as listed from the catalog
type CatalogEntry struct {
	RunID          string
	ConversationID string
	Source         Source
	Title          string
	Model          string
	CreatedAt      *time.Time
	MessageCount   int
	Path           string
}

// OpenCatalog opens or creates the catalog at path for writing
func OpenCatalog(path string) (*Catalog, error) {
	db, err := CreateDatabase(path)
	if err != nil {
		return nil, &CatalogError{Op: "open", Err: err}
	}
	return &Catalog{db: db, path: path}, nil
}

// OpenCatalogReadOnly opens an existing catalog without modifying it
func OpenCatalogReadOnly(path string) (*Catalog, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &CatalogError{Op: "open", Err: err}
	}
	ok, err := HasTable(db, "runs")
	if err == nil && !ok {
		err = fmt.Errorf("%s is not a chatvault catalog", path)
	}
	if err != nil {
		db.Close()
		return nil, &CatalogError{Op: "open", Err: err}
	}
	return &Catalog{db: db, path: path}, nil
}

// Path returns the catalog database path
func (c *Catalog) Path() string {
	return c.path
}

// Close closes the underlying database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// RecordRun stores a run with all of its conversations and messages in one
// transaction and returns the new run
func (c *Catalog) RecordRun(ctx context.Context, source Source, input string, records []CatalogRecord) (*CatalogRun, error) {
	run := &CatalogRun{
		ID:                uuid.NewString(),
		Source:            source,
		Input:             input,
		CreatedAt:         time.Now().UTC(),
		ConversationCount: len(records),
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &CatalogError{Op: "insert", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, source, input, created_at, conversation_count) VALUES (?, ?, ?, ?, ?)",
		run.ID, string(run.Source), run.Input, run.CreatedAt.Format(catalogTimeLayout), run.ConversationCount,
	); err != nil {
		return nil, &CatalogError{Op: "insert", Err: err}
	}

	for _, record := range records {
		if err := insertConversation(ctx, tx, run.ID, record); err != nil {
			return nil, &CatalogError{Op: "insert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &CatalogError{Op: "insert", Err: err}
	}
	LogDebug("Recorded run %s with %d conversation(s) in %s", run.ID, len(records), c.path)
	return run, nil
}

func insertConversation(ctx context.Context, tx *sql.Tx, runID string, record CatalogRecord) error {
	conv := record.Conversation
	metadata, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (run_id, conversation_id, source, title, model, created_at, message_count, path, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, conv.ID, string(conv.Source), conv.Title, nullString(conv.ResolvedModel()),
		nullTime(conv.CreatedAt), conv.MessageCount(), nullString(record.Path), string(metadata),
	)
	if err != nil {
		return err
	}
	pk, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, msg := range conv.Messages {
		var attachments sql.NullString
		if len(msg.Attachments) > 0 {
			data, err := json.Marshal(msg.Attachments)
			if err != nil {
				return fmt.Errorf("failed to marshal attachments: %w", err)
			}
			attachments = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_pk, position, role, content, model, created_at, attachments)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pk, i, string(msg.Role), msg.Content, nullString(msg.Model), nullTime(msg.CreatedAt), attachments,
		); err != nil {
			return err
		}
	}
	return nil
}

// Runs returns every recorded run, newest first
func (c *Catalog) Runs(ctx context.Context) ([]CatalogRun, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, source, input, created_at, conversation_count FROM runs ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}
	defer rows.Close()

	var runs []CatalogRun
	for rows.Next() {
		var run CatalogRun
		var source, createdAt string
		if err := rows.Scan(&run.ID, &source, &run.Input, &createdAt, &run.ConversationCount); err != nil {
			return nil, &CatalogError{Op: "query", Err: err}
		}
		run.Source = Source(source)
		if t, err := time.Parse(catalogTimeLayout, createdAt); err == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}
	return runs, nil
}

// ListConversations returns the conversations of a run in recorded order.
// An empty runID selects the newest run.
func (c *Catalog) ListConversations(ctx context.Context, runID string) ([]CatalogEntry, error) {
	if runID == "" {
		runs, err := c.Runs(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, nil
		}
		runID = runs[0].ID
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id, conversation_id, source, title, model, created_at, message_count, path
		FROM conversations WHERE run_id = ? ORDER BY pk`, runID)
	if err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var entry CatalogEntry
		var source string
		var model, createdAt, path sql.NullString
		if err := rows.Scan(&entry.RunID, &entry.ConversationID, &source, &entry.Title, &model, &createdAt, &entry.MessageCount, &path); err != nil {
			return nil, &CatalogError{Op: "query", Err: err}
		}
		entry.Source = Source(source)
		entry.Model = model.String
		entry.CreatedAt = parseNullTime(createdAt)
		entry.Path = path.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}
	return entries, nil
}

// GetConversation rebuilds a conversation by id from the newest run that
// recorded it. ErrConversationNotFound is returned when no run did.
func (c *Catalog) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var pk int64
	var source, title, metadata string
	var model, createdAt sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT c.pk, c.source, c.title, c.model, c.created_at, c.metadata
		FROM conversations c JOIN runs r ON r.id = c.run_id
		WHERE c.conversation_id = ?
		ORDER BY r.created_at DESC, r.rowid DESC, c.pk ASC LIMIT 1`, id,
	).Scan(&pk, &source, &title, &model, &createdAt, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}

	conv := &Conversation{
		ID:        id,
		Source:    Source(source),
		Title:     title,
		Model:     model.String,
		CreatedAt: parseNullTime(createdAt),
		Metadata:  map[string]string{},
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &conv.Metadata); err != nil {
			return nil, &CatalogError{Op: "query", Err: err}
		}
		if conv.Metadata == nil {
			conv.Metadata = map[string]string{}
		}
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT role, content, model, created_at, attachments FROM messages
		WHERE conversation_pk = ? ORDER BY position`, pk)
	if err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		var role string
		var msgModel, msgCreated, attachments sql.NullString
		if err := rows.Scan(&role, &msg.Content, &msgModel, &msgCreated, &attachments); err != nil {
			return nil, &CatalogError{Op: "query", Err: err}
		}
		msg.Role = Role(role)
		msg.Model = msgModel.String
		msg.CreatedAt = parseNullTime(msgCreated)
		if attachments.Valid {
			if err := json.Unmarshal([]byte(attachments.String), &msg.Attachments); err != nil {
				return nil, &CatalogError{Op: "query", Err: err}
			}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogError{Op: "query", Err: err}
	}
	return conv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(catalogTimeLayout), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(catalogTimeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
