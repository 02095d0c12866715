package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/config"
	"pensionguru/backend/internal/dialogue"
	"pensionguru/backend/internal/logging"
	"pensionguru/backend/internal/metrics"
	"pensionguru/backend/internal/store"
)

// TurnHandler runs one conversational turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req dialogue.TurnRequest) (dialogue.TurnResult, error)
}

type Dependencies struct {
	Config   config.Config
	Store    store.Store
	Turns    TurnHandler
	Verifier IdentityVerifier
	Metrics  *metrics.Collectors
	Logger   *zap.Logger
	Now      func() time.Time
}

type App struct {
	cfg      config.Config
	store    store.Store
	turns    TurnHandler
	verifier IdentityVerifier
	metrics  *metrics.Collectors
	logger   *zap.Logger
	now      func() time.Time
}

func New(deps Dependencies) *App {
	app := &App{
		cfg:      deps.Config,
		store:    deps.Store,
		turns:    deps.Turns,
		verifier: deps.Verifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if app.logger == nil {
		app.logger = zap.NewNop()
	}
	if app.now == nil {
		app.now = time.Now
	}
	return app
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(logging.GinMiddleware(a.logger), gin.Recovery(), a.metricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := router.Group(a.cfg.APIPrefix)
	api.GET("/", a.root)
	api.POST("/auth/google", a.authGoogle)

	protected := api.Group("")
	if a.cfg.AuthRequired {
		protected.Use(a.authMiddleware())
	}
	protected.POST("/chat", a.chat)
	protected.POST("/chat/forget", a.forgetChat)
	protected.GET("/export-pdf", a.exportPDF)
	protected.GET("/export-csv", a.exportCSV)

	return router
}

func (a *App) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pension Planner API is running"})
}

func (a *App) health(c *gin.Context) {
	database := "ok"
	state := "ok"
	status := http.StatusOK
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn("health check database ping failed", zap.Error(err))
		database = "unavailable"
		state = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   state,
		"service":  a.cfg.AppName,
		"database": database,
	})
}

func (a *App) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.metrics.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// authorizeUser resolves the user a request acts for. With bearer auth on, the
// token subject wins and a mismatching user_id is rejected.
func (a *App) authorizeUser(c *gin.Context, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	subject, ok := authSubjectFromContext(c)
	if !ok {
		return requested, true
	}
	if requested == "" {
		return subject, true
	}
	if requested != subject {
		writeError(c, http.StatusForbidden, "user_id does not match the signed-in user")
		return "", false
	}
	return requested, true
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// writeAppError maps a coded error onto a status. Server-side failures get the
// fallback detail so internals never reach the client.
func (a *App) writeAppError(c *gin.Context, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	detail := fallback
	if status < http.StatusInternalServerError {
		detail = err.Error()
	} else {
		a.logger.Error(fallback,
			zap.String("code", string(apperr.CodeOf(err))),
			zap.Any("context", apperr.FieldsOf(err)),
			zap.Error(err),
		)
	}
	writeError(c, status, detail)
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
