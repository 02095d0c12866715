package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pensionguru/backend/internal/apperr"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps timestamps as unix microseconds so per-user ordering can
// be enforced inside a single INSERT.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn, now: time.Now}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
	user_id            TEXT PRIMARY KEY,
	region             TEXT,
	age                INTEGER,
	income             INTEGER,
	retirement_age     INTEGER,
	risk_profile       TEXT,
	contribution_years INTEGER,
	pending_action     TEXT,
	updated_at         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_user_created ON chat_history (user_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) micros() int64 {
	return s.now().UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	profile := UserProfile{}
	var updatedAt int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, region, age, income, retirement_age, risk_profile, contribution_years, pending_action, updated_at
		 FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(
		&profile.UserID,
		&profile.Region,
		&profile.Age,
		&profile.Income,
		&profile.RetirementAge,
		&profile.RiskProfile,
		&profile.ContributionYears,
		&profile.PendingAction,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UserProfile{}, apperr.New(apperr.CodeProfileNotFound, "profile not found", "user_id", userID)
	}
	if err != nil {
		return UserProfile{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading profile", "user_id", userID)
	}
	profile.UpdatedAt = fromMicros(updatedAt)
	return profile, nil
}

func (s *SQLiteStore) EnsureProfile(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.New(apperr.CodeStoreInvalidInput, "user_id is required")
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO user_profiles (user_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
		s.micros(),
	); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreDatabase, "creating profile", "user_id", userID)
	}
	return nil
}

func (s *SQLiteStore) SetField(ctx context.Context, userID string, field Field, value any) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.New(apperr.CodeStoreInvalidInput, "user_id is required")
	}
	if err := ValidateField(field, value); err != nil {
		return err
	}
	column := string(field)
	query := fmt.Sprintf(
		`INSERT INTO user_profiles (user_id, %[1]s, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`,
		column,
	)
	if _, err := s.db.ExecContext(ctx, query, userID, value, s.micros()); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreDatabase, "saving profile field", "user_id", userID, "field", column)
	}
	return nil
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = ?`, userID)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting profile", "user_id", userID)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, userID, role, content string) (ChatMessage, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	content = strings.TrimSpace(content)
	if strings.TrimSpace(userID) == "" || !ValidRole(role) || content == "" {
		return ChatMessage{}, apperr.New(apperr.CodeStoreInvalidInput, "incomplete chat message", "user_id", userID, "role", role)
	}

	msg := ChatMessage{UserID: userID, Role: role, Content: content}
	var createdAt int64
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO chat_history (user_id, role, content, created_at)
		 VALUES (?, ?, ?, MAX(?, COALESCE((SELECT MAX(created_at) FROM chat_history WHERE user_id = ?), 0) + 1))
		 RETURNING id, created_at`,
		userID,
		role,
		content,
		s.micros(),
		userID,
	).Scan(&msg.ID, &createdAt)
	if err != nil {
		return ChatMessage{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "appending chat message", "user_id", userID)
	}
	msg.CreatedAt = fromMicros(createdAt)
	return msg, nil
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		return []ChatMessage{}, nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM chat_history
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading chat history", "user_id", userID)
	}
	messages, err := collectSQLiteMessages(rows)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "reading chat history", "user_id", userID)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) AllMessages(ctx context.Context, userID string) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM chat_history
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading chat history", "user_id", userID)
	}
	messages, err := collectSQLiteMessages(rows)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "reading chat history", "user_id", userID)
	}
	return messages, nil
}

func collectSQLiteMessages(rows *sql.Rows) ([]ChatMessage, error) {
	defer rows.Close()

	messages := make([]ChatMessage, 0)
	for rows.Next() {
		var (
			msg       ChatMessage
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.Role = strings.ToLower(strings.TrimSpace(msg.Role))
		msg.CreatedAt = fromMicros(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *SQLiteStore) DeleteMessages(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting chat history", "user_id", userID)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) Forget(ctx context.Context, userID string) (ForgetResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "starting forget transaction", "user_id", userID)
	}
	defer func() { _ = tx.Rollback() }()

	messagesRes, err := tx.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?`, userID)
	if err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting chat history", "user_id", userID)
	}
	profileRes, err := tx.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = ?`, userID)
	if err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting profile", "user_id", userID)
	}
	if err := tx.Commit(); err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "committing forget", "user_id", userID)
	}

	deletedMessages, _ := messagesRes.RowsAffected()
	deletedProfiles, _ := profileRes.RowsAffected()
	return ForgetResult{
		DeletedMessages: deletedMessages,
		DeletedProfile:  deletedProfiles > 0,
	}, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (User, error) {
	user := User{}
	var createdAt int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`,
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.New(apperr.CodeUserNotFound, "user not found", "user_id", userID)
	}
	if err != nil {
		return User{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading user", "user_id", userID)
	}
	user.CreatedAt = fromMicros(createdAt)
	return user, nil
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, user User) (User, bool, error) {
	if strings.TrimSpace(user.ID) == "" {
		return User{}, false, apperr.New(apperr.CodeStoreInvalidInput, "user id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "starting user transaction", "user_id", user.ID)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.micros()
	stored := User{}
	created := true
	var createdAt int64
	err = tx.QueryRowContext(
		ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING id, name, email, created_at`,
		user.ID,
		user.Name,
		user.Email,
		now,
	).Scan(&stored.ID, &stored.Name, &stored.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		created = false
		err = tx.QueryRowContext(
			ctx,
			`SELECT id, name, email, created_at FROM users WHERE id = ?`,
			user.ID,
		).Scan(&stored.ID, &stored.Name, &stored.Email, &createdAt)
	}
	if err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "upserting user", "user_id", user.ID)
	}
	stored.CreatedAt = fromMicros(createdAt)

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO user_profiles (user_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		user.ID,
		now,
	); err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "creating profile", "user_id", user.ID)
	}
	if err := tx.Commit(); err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "committing user upsert", "user_id", user.ID)
	}
	return stored, created, nil
}
