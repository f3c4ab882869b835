package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filmsage-backend/internal/models"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// firstMessage selects the opening message of each conversation row "c".
const firstMessage = `LEFT JOIN LATERAL (
		SELECT content FROM chat_messages m WHERE m.conversation_id = c.id ORDER BY m.seq ASC LIMIT 1
	) fm ON TRUE`

func (r *ConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	c.ID = uuid.New()
	if c.Title == "" {
		c.Title = models.DefaultConversationTitle
	}
	c.Preview = models.Preview("")

	query := `INSERT INTO chat_conversations (id, user_id, title)
		VALUES ($1, $2, $3) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.ID, c.UserID, c.Title).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByID returns pgx.ErrNoRows when the conversation does not exist.
func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `SELECT c.id, c.user_id, c.title, COALESCE(fm.content, ''), c.created_at, c.updated_at
		FROM chat_conversations c ` + firstMessage + `
		WHERE c.id = $1`

	c := &models.Conversation{}
	var first string
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.UserID, &c.Title, &first, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Preview = models.Preview(first)
	return c, nil
}

// ListByUser pages through a user's conversations, most recently active
// first. search matches the title or any message.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, search string, limit, offset int) ([]*models.Conversation, int, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE c.user_id = $%d", argIdx)
	args = append(args, userID)
	argIdx++

	if search != "" {
		where += fmt.Sprintf(` AND (c.title ILIKE $%d OR EXISTS (
			SELECT 1 FROM chat_messages sm WHERE sm.conversation_id = c.id AND sm.content ILIKE $%d))`, argIdx, argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chat_conversations c "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT c.id, c.user_id, c.title, COALESCE(fm.content, ''), c.created_at, c.updated_at
		FROM chat_conversations c %s
		%s ORDER BY c.updated_at DESC LIMIT $%d OFFSET $%d`,
		firstMessage, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		c := &models.Conversation{}
		var first string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &first, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		c.Preview = models.Preview(first)
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// UpdateTitle returns pgx.ErrNoRows when nothing was updated.
func (r *ConversationRepo) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE chat_conversations SET title = $1, updated_at = NOW() WHERE id = $2", title, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the conversation and, by cascade, its messages.
func (r *ConversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM chat_conversations WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Messages pages through a conversation in chronological order.
func (r *ConversationRepo) Messages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.ConversationMessage, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chat_messages WHERE conversation_id = $1", conversationID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM chat_messages
		WHERE conversation_id = $1 ORDER BY seq ASC LIMIT $2 OFFSET $3`,
		conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// RecentTurns returns the last n turns of a conversation, oldest first,
// ready to be replayed to the model.
func (r *ConversationRepo) RecentTurns(ctx context.Context, conversationID uuid.UUID, n int) ([]models.ChatTurn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role, content FROM (
			SELECT role, content, seq FROM chat_messages
			WHERE conversation_id = $1 ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq ASC`,
		conversationID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var t models.ChatTurn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AppendTurns stores turns in order and bumps updated_at, all in one
// transaction. It returns the conversation's new message count.
func (r *ConversationRepo) AppendTurns(ctx context.Context, conversationID uuid.UUID, turns []models.ChatTurn) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE chat_conversations SET updated_at = NOW() WHERE id = $1", conversationID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, pgx.ErrNoRows
	}

	batch := &pgx.Batch{}
	for _, t := range turns {
		batch.Queue(`INSERT INTO chat_messages (id, conversation_id, role, content) VALUES ($1, $2, $3, $4)`,
			uuid.New(), conversationID, string(t.Role), t.Content)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to insert messages: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM chat_messages WHERE conversation_id = $1", conversationID).Scan(&count); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit append: %w", err)
	}
	return count, nil
}
