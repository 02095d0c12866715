package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pensionguru/backend/internal/apperr"
)

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresProfileColumns = `user_id, region, age, income, retirement_age, risk_profile, contribution_years, pending_action, updated_at`

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	profile := UserProfile{}
	err := s.pool.QueryRow(
		ctx,
		`SELECT `+postgresProfileColumns+` FROM user_profiles WHERE user_id = $1`,
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
		&profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserProfile{}, apperr.New(apperr.CodeProfileNotFound, "profile not found", "user_id", userID)
	}
	if err != nil {
		return UserProfile{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading profile", "user_id", userID)
	}
	return profile, nil
}

func (s *PostgresStore) EnsureProfile(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.New(apperr.CodeStoreInvalidInput, "user_id is required")
	}
	if _, err := s.pool.Exec(
		ctx,
		`INSERT INTO user_profiles (user_id, updated_at) VALUES ($1, NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreDatabase, "creating profile", "user_id", userID)
	}
	return nil
}

func (s *PostgresStore) SetField(ctx context.Context, userID string, field Field, value any) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.New(apperr.CodeStoreInvalidInput, "user_id is required")
	}
	if err := ValidateField(field, value); err != nil {
		return err
	}
	column := string(field)
	query := fmt.Sprintf(
		`INSERT INTO user_profiles (user_id, %[1]s, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()`,
		column,
	)
	if _, err := s.pool.Exec(ctx, query, userID, value); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreDatabase, "saving profile field", "user_id", userID, "field", column)
	}
	return nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting profile", "user_id", userID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, userID, role, content string) (ChatMessage, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	content = strings.TrimSpace(content)
	if strings.TrimSpace(userID) == "" || !ValidRole(role) || content == "" {
		return ChatMessage{}, apperr.New(apperr.CodeStoreInvalidInput, "incomplete chat message", "user_id", userID, "role", role)
	}

	msg := ChatMessage{UserID: userID, Role: role, Content: content}
	err := s.pool.QueryRow(
		ctx,
		`INSERT INTO chat_history (user_id, role, content, created_at)
		 VALUES ($1, $2, $3, GREATEST(
			clock_timestamp(),
			COALESCE((SELECT MAX(created_at) FROM chat_history WHERE user_id = $1), 'epoch'::timestamptz) + INTERVAL '1 microsecond'
		 ))
		 RETURNING id, created_at`,
		userID,
		role,
		content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return ChatMessage{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "appending chat message", "user_id", userID)
	}
	return msg, nil
}

func (s *PostgresStore) RecentMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		return []ChatMessage{}, nil
	}
	rows, err := s.pool.Query(
		ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM chat_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading chat history", "user_id", userID)
	}
	messages, err := collectPostgresMessages(rows)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "reading chat history", "user_id", userID)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresStore) AllMessages(ctx context.Context, userID string) ([]ChatMessage, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM chat_history
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading chat history", "user_id", userID)
	}
	messages, err := collectPostgresMessages(rows)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreDatabase, "reading chat history", "user_id", userID)
	}
	return messages, nil
}

func collectPostgresMessages(rows pgx.Rows) ([]ChatMessage, error) {
	defer rows.Close()

	messages := make([]ChatMessage, 0)
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = strings.ToLower(strings.TrimSpace(msg.Role))
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *PostgresStore) DeleteMessages(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting chat history", "user_id", userID)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Forget(ctx context.Context, userID string) (ForgetResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "starting forget transaction", "user_id", userID)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	messagesTag, err := tx.Exec(ctx, `DELETE FROM chat_history WHERE user_id = $1`, userID)
	if err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting chat history", "user_id", userID)
	}
	profileTag, err := tx.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "deleting profile", "user_id", userID)
	}
	if err := tx.Commit(ctx); err != nil {
		return ForgetResult{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "committing forget", "user_id", userID)
	}
	return ForgetResult{
		DeletedMessages: messagesTag.RowsAffected(),
		DeletedProfile:  profileTag.RowsAffected() > 0,
	}, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	user := User{}
	err := s.pool.QueryRow(
		ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.New(apperr.CodeUserNotFound, "user not found", "user_id", userID)
	}
	if err != nil {
		return User{}, apperr.Wrap(err, apperr.CodeStoreDatabase, "loading user", "user_id", userID)
	}
	return user, nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user User) (User, bool, error) {
	if strings.TrimSpace(user.ID) == "" {
		return User{}, false, apperr.New(apperr.CodeStoreInvalidInput, "user id is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "starting user transaction", "user_id", user.ID)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored := User{}
	created := true
	err = tx.QueryRow(
		ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (id) DO NOTHING
		 RETURNING id, name, email, created_at`,
		user.ID,
		user.Name,
		user.Email,
	).Scan(&stored.ID, &stored.Name, &stored.Email, &stored.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
		err = tx.QueryRow(
			ctx,
			`SELECT id, name, email, created_at FROM users WHERE id = $1`,
			user.ID,
		).Scan(&stored.ID, &stored.Name, &stored.Email, &stored.CreatedAt)
	}
	if err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "upserting user", "user_id", user.ID)
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO user_profiles (user_id, updated_at) VALUES ($1, NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		user.ID,
	); err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "creating profile", "user_id", user.ID)
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, false, apperr.Wrap(err, apperr.CodeStoreDatabase, "committing user upsert", "user_id", user.ID)
	}
	return stored, created, nil
}
