package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/entities"
)

// Schema for the conversation database.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT 'New Conversation',
    selected_model TEXT NOT NULL,
    document_mode BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    sender TEXT NOT NULL CHECK (sender IN ('user', 'assistant')),
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    filename TEXT NOT NULL,
    data BLOB,
    mime_type TEXT NOT NULL,
    uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_documents_conversation_id ON documents(conversation_id, uploaded_at DESC);
`

// SQLiteStore implements ConversationStore on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the schema and returns the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetOrCreateConversation(ctx context.Context, userID int64, defaultModel string) (entities.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, selected_model, document_mode, created_at
		FROM conversations WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, userID)

	conversation, err := scanConversation(row)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return entities.Conversation{}, err
	}

	return s.CreateConversation(ctx, userID, "New Conversation", defaultModel)
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, userID int64, title, model string) (entities.Conversation, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (user_id, title, selected_model, created_at)
		VALUES (?, ?, ?, ?)`, userID, title, model, now)
	if err != nil {
		return entities.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return entities.Conversation{}, fmt.Errorf("conversation insert id: %w", err)
	}
	return entities.Conversation{
		ID:            id,
		UserID:        userID,
		Title:         title,
		SelectedModel: model,
		CreatedAt:     now,
	}, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (entities.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, selected_model, document_mode, created_at
		FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

func (s *SQLiteStore) UpdateConversation(ctx context.Context, conversation entities.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, selected_model = ?, document_mode = ?
		WHERE id = ?`,
		conversation.Title, conversation.SelectedModel, conversation.DocumentMode, conversation.ID)
	if err != nil {
		return fmt.Errorf("update conversation %d: %w", conversation.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id int64) error {
	// Messages and documents go with it via ON DELETE CASCADE.
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]entities.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []entities.ChatMessage
	for rows.Next() {
		var m entities.ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID int64, sender, content string) (entities.ChatMessage, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender, content, created_at)
		VALUES (?, ?, ?, ?)`, conversationID, sender, content, now)
	if err != nil {
		return entities.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return entities.ChatMessage{}, fmt.Errorf("message insert id: %w", err)
	}
	return entities.ChatMessage{
		ID:             id,
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (entities.ChatMessage, error) {
	var m entities.ChatMessage
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender, content, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ChatMessage{}, apperrors.ErrNotFound
	}
	if err != nil {
		return entities.ChatMessage{}, fmt.Errorf("get message %d: %w", id, err)
	}
	return m, nil
}

func (s *SQLiteStore) UpdateMessageContent(ctx context.Context, id int64, content string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("update message %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, document entities.Document) (entities.Document, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (conversation_id, filename, data, mime_type, uploaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		document.ConversationID, document.Filename, document.Data, document.MimeType, now)
	if err != nil {
		return entities.Document{}, fmt.Errorf("insert document: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return entities.Document{}, fmt.Errorf("document insert id: %w", err)
	}
	document.ID = id
	document.UploadedAt = now
	return document, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (entities.Document, error) {
	var d entities.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, filename, data, mime_type, uploaded_at
		FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.ConversationID, &d.Filename, &d.Data, &d.MimeType, &d.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Document{}, apperrors.ErrNotFound
	}
	if err != nil {
		return entities.Document{}, fmt.Errorf("get document %d: %w", id, err)
	}
	return d, nil
}

func (s *SQLiteStore) LatestDocument(ctx context.Context, conversationID int64, excludeAudio bool) (entities.Document, error) {
	query := `
		SELECT id, conversation_id, filename, data, mime_type, uploaded_at
		FROM documents WHERE conversation_id = ?`
	if excludeAudio {
		query += ` AND mime_type NOT IN ('audio/wav', 'audio/webm')`
	}
	query += ` ORDER BY uploaded_at DESC, id DESC LIMIT 1`

	var d entities.Document
	err := s.db.QueryRowContext(ctx, query, conversationID).
		Scan(&d.ID, &d.ConversationID, &d.Filename, &d.Data, &d.MimeType, &d.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Document{}, apperrors.ErrNotFound
	}
	if err != nil {
		return entities.Document{}, fmt.Errorf("latest document for conversation %d: %w", conversationID, err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (entities.Conversation, error) {
	var c entities.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.SelectedModel, &c.DocumentMode, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Conversation{}, apperrors.ErrNotFound
	}
	if err != nil {
		return entities.Conversation{}, fmt.Errorf("scan conversation: %w", err)
	}
	return c, nil
}
