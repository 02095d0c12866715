package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pensionguru/backend/internal/ai"
	"pensionguru/backend/internal/config"
	"pensionguru/backend/internal/db"
	"pensionguru/backend/internal/dialogue"
	"pensionguru/backend/internal/metrics"
	"pensionguru/backend/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTestConfig() config.Config {
	return config.Config{
		AppEnv:           "test",
		AppName:          "Pension Guru API Test",
		APIPrefix:        "",
		AppPort:          "0",
		DatabaseURL:      "sqlite://test",
		DefaultTone:      "adult",
		JWTSecret:        "test-secret-1234567890",
		JWTAlgorithm:     "HS256",
		JWTTTLMinutes:    60,
		ChatHistoryLimit: 10,
		CORSAllowOrigins: []string{"http://localhost:5173"},
	}
}

// recordingCompleter returns scripted replies, then falls back to the mock.
type recordingCompleter struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (r *recordingCompleter) Complete(ctx context.Context, messages []ai.Message) (ai.Completion, error) {
	r.mu.Lock()
	r.calls++
	if len(r.replies) > 0 {
		reply := r.replies[0]
		r.replies = r.replies[1:]
		r.mu.Unlock()
		return ai.Completion{Text: reply, Model: "scripted"}, nil
	}
	r.mu.Unlock()
	return ai.MockClient{}.Complete(ctx, messages)
}

func (r *recordingCompleter) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type stubVerifier struct {
	identities map[string]Identity
}

func (s stubVerifier) Verify(_ context.Context, credential string) (Identity, error) {
	identity, ok := s.identities[credential]
	if !ok {
		return Identity{}, errInvalidCredential
	}
	return identity, nil
}

type testApp struct {
	router    http.Handler
	store     *store.SQLiteStore
	completer *recordingCompleter
	metrics   *metrics.Collectors
	cfg       config.Config
}

type appOption func(*Dependencies)

func withVerifier(v IdentityVerifier) appOption {
	return func(d *Dependencies) { d.Verifier = v }
}

func newTestApp(t *testing.T, cfg config.Config, replies []string, opts ...appOption) *testApp {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, "sqlite://"+filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	s := store.NewSQLiteStore(conn)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })

	logger := zaptest.NewLogger(t)
	collectors := metrics.New()
	completer := &recordingCompleter{replies: replies}
	controller := dialogue.NewController(dialogue.Options{
		Profiles:     s,
		History:      s,
		Users:        s,
		Completer:    completer,
		Extractor:    dialogue.NewExtractor(logger, cfg.LegacyBareNumberFallback),
		Observer:     collectors,
		Logger:       logger,
		DefaultTone:  cfg.DefaultTone,
		HistoryLimit: cfg.ChatHistoryLimit,
	})

	deps := Dependencies{
		Config:  cfg,
		Store:   s,
		Turns:   controller,
		Metrics: collectors,
		Logger:  logger,
		Now:     func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testApp{
		router:    New(deps).Router(),
		store:     s,
		completer: completer,
		metrics:   collectors,
		cfg:       cfg,
	}
}

func signTokenWithConfig(t *testing.T, cfg config.Config, sub string, overrides map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	if strings.TrimSpace(sub) != "" {
		claims["sub"] = sub
	}
	if strings.TrimSpace(cfg.JWTAudience) != "" {
		claims["aud"] = cfg.JWTAudience
	}
	if strings.TrimSpace(cfg.JWTIssuer) != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(
	t *testing.T,
	router http.Handler,
	method, targetPath, token string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func responseDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSONMap(t, rec)
	detail, _ := body["detail"].(string)
	return detail
}

func chat(t *testing.T, app *testApp, userID, message string) string {
	t.Helper()
	rec := performRequest(t, app.router, http.MethodPost, "/chat", "", map[string]any{
		"user_id": userID,
		"message": message,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reply, _ := decodeJSONMap(t, rec)["response"].(string)
	return reply
}

func testID() string {
	return uuid.NewString()
}
