// Package dialogue runs one conversational turn: pending-state handling, fact
// extraction, prompt assembly, completion, persistence and the tips offer.
package dialogue

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"pensionguru/backend/internal/ai"
	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/store"
	"pensionguru/backend/internal/turnlock"
)

// Path names the branch that produced a reply.
type Path string

const (
	PathGreeting Path = "greeting"
	PathTips     Path = "tips"
	PathModel    Path = "model"
	PathFallback Path = "fallback"
)

// Observer receives turn-level measurements.
type Observer interface {
	TurnCompleted(path string)
	CompletionObserved(elapsed time.Duration, err error)
	FieldExtracted(field string)
	PersistenceFault(operation string)
}

type nopObserver struct{}

func (nopObserver) TurnCompleted(string)                    {}
func (nopObserver) CompletionObserved(time.Duration, error) {}
func (nopObserver) FieldExtracted(string)                   {}
func (nopObserver) PersistenceFault(string)                 {}

type TurnRequest struct {
	UserID  string
	Message string
	Tone    string
}

type TurnResult struct {
	Reply string
	Path  Path
}

type Options struct {
	Profiles  store.ProfileStore
	History   store.HistoryStore
	Users     store.UserStore
	Completer ai.Client
	Locker    turnlock.Locker
	Extractor *Extractor
	Observer  Observer
	Logger    *zap.Logger

	Directive         string
	DefaultTone       string
	HistoryLimit      int
	CompletionTimeout time.Duration
	LockWait          time.Duration
}

type Controller struct {
	profiles  store.ProfileStore
	history   store.HistoryStore
	users     store.UserStore
	completer ai.Client
	locker    turnlock.Locker
	extractor *Extractor
	observer  Observer
	logger    *zap.Logger

	directive         string
	defaultTone       string
	historyLimit      int
	completionTimeout time.Duration
	lockWait          time.Duration
}

func NewController(opts Options) *Controller {
	c := &Controller{
		profiles:          opts.Profiles,
		history:           opts.History,
		users:             opts.Users,
		completer:         opts.Completer,
		locker:            opts.Locker,
		extractor:         opts.Extractor,
		observer:          opts.Observer,
		logger:            opts.Logger,
		directive:         opts.Directive,
		defaultTone:       opts.DefaultTone,
		historyLimit:      opts.HistoryLimit,
		completionTimeout: opts.CompletionTimeout,
		lockWait:          opts.LockWait,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.locker == nil {
		c.locker = turnlock.NewLocalLocker()
	}
	if c.extractor == nil {
		c.extractor = NewExtractor(c.logger, false)
	}
	if strings.TrimSpace(c.directive) == "" {
		c.directive = DefaultDirective
	}
	if c.historyLimit <= 0 {
		c.historyLimit = 10
	}
	if c.completionTimeout <= 0 {
		c.completionTimeout = 20 * time.Second
	}
	if c.lockWait <= 0 {
		c.lockWait = 30 * time.Second
	}
	return c
}

// HandleTurn produces the reply for one inbound message. It only returns an
// error for invalid requests; every other fault degrades to a reply.
func (c *Controller) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	userID := strings.TrimSpace(req.UserID)
	message := strings.TrimSpace(req.Message)
	if userID == "" {
		return TurnResult{}, apperr.New(apperr.CodeRequestInvalid, "user_id is required")
	}
	if message == "" {
		return TurnResult{}, apperr.New(apperr.CodeRequestInvalid, "Message cannot be empty", "user_id", userID)
	}
	logger := c.logger.With(zap.String("user_id", userID))
	// A started turn runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if message == SessionOpenSentinel {
		reply := c.greeting(ctx, logger, userID)
		c.observer.TurnCompleted(string(PathGreeting))
		return TurnResult{Reply: reply, Path: PathGreeting}, nil
	}

	unlock := c.acquire(ctx, logger, userID)
	defer unlock()

	profile := c.loadProfile(ctx, logger, userID)

	if profile != nil && profile.HasPendingAction(store.PendingOfferTips) {
		// Clear before interpreting so the flag is consumed exactly once.
		if err := c.profiles.SetField(ctx, userID, store.FieldPendingAction, nil); err != nil {
			c.persistenceFault(logger, "clear_pending_action", err)
		}
		profile.PendingAction = nil

		if IsAffirmative(message) {
			logger.Info("user accepted tips offer")
			reply := TipsReply(profile)
			c.appendMessages(ctx, logger, userID, message, reply)
			c.observer.TurnCompleted(string(PathTips))
			return TurnResult{Reply: reply, Path: PathTips}, nil
		}
		logger.Info("tips offer not accepted, continuing with model turn")
	}

	history, err := c.history.RecentMessages(ctx, userID, c.historyLimit)
	if err != nil {
		c.persistenceFault(logger, "recent_messages", err)
		history = nil
	}

	profile = c.applyExtraction(ctx, logger, userID, profile, message, lastAssistantMessage(history))

	tone := req.Tone
	if strings.TrimSpace(tone) == "" {
		tone = c.defaultTone
	}
	messages := Assemble(logger, c.directive, tone, profile, history, message)

	reply, path := c.complete(ctx, logger, messages)
	c.appendMessages(ctx, logger, userID, message, reply)

	if OffersTips(reply) {
		if err := c.profiles.SetField(ctx, userID, store.FieldPendingAction, store.PendingOfferTips); err != nil {
			c.persistenceFault(logger, "set_pending_action", err)
		} else {
			logger.Info("reply offered tips, awaiting confirmation")
		}
	}

	c.observer.TurnCompleted(string(path))
	return TurnResult{Reply: reply, Path: path}, nil
}

func (c *Controller) greeting(ctx context.Context, logger *zap.Logger, userID string) string {
	name := ""
	if c.users != nil {
		user, err := c.users.GetUser(ctx, userID)
		switch {
		case err == nil:
			name = user.Name
		case !apperr.IsNotFound(err):
			logger.Warn("loading user for greeting failed", zap.Error(err))
		}
	}
	return Greeting(name, c.loadProfile(ctx, logger, userID))
}

func (c *Controller) acquire(ctx context.Context, logger *zap.Logger, userID string) turnlock.Unlock {
	lockCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()
	unlock, err := c.locker.Lock(lockCtx, userID)
	if err != nil {
		logger.Warn("turn lock unavailable, continuing without it", zap.Error(err))
		return func() {}
	}
	return unlock
}

// loadProfile returns nil when the user has no profile or the read failed.
func (c *Controller) loadProfile(ctx context.Context, logger *zap.Logger, userID string) *store.UserProfile {
	profile, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			c.persistenceFault(logger, "get_profile", err)
		}
		return nil
	}
	return &profile
}

func (c *Controller) applyExtraction(
	ctx context.Context,
	logger *zap.Logger,
	userID string,
	profile *store.UserProfile,
	message string,
	priorAssistant string,
) *store.UserProfile {
	if profile == nil {
		if err := c.profiles.EnsureProfile(ctx, userID); err != nil {
			c.persistenceFault(logger, "ensure_profile", err)
		}
	}

	updates := c.extractor.Extract(userID, profile, message, priorAssistant)
	if len(updates) == 0 {
		if profile == nil {
			return c.loadProfile(ctx, logger, userID)
		}
		return profile
	}

	working := store.UserProfile{UserID: userID}
	if profile != nil {
		working = *profile
	}
	unsaved := make([]store.FieldUpdate, 0)
	for _, update := range updates {
		working.Apply(update)
		if err := c.profiles.SetField(ctx, userID, update.Field, update.Value); err != nil {
			c.persistenceFault(logger, "set_field", err, zap.String("field", string(update.Field)))
			unsaved = append(unsaved, update)
			continue
		}
		c.observer.FieldExtracted(string(update.Field))
		logger.Debug("profile field updated", zap.String("field", string(update.Field)), zap.Any("value", update.Value))
	}

	refreshed, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			c.persistenceFault(logger, "get_profile", err)
		}
		return &working
	}
	// Facts that failed to save still shape this turn's prompt.
	for _, update := range unsaved {
		refreshed.Apply(update)
	}
	return &refreshed
}

func (c *Controller) complete(ctx context.Context, logger *zap.Logger, messages []ai.Message) (string, Path) {
	callCtx, cancel := context.WithTimeout(ctx, c.completionTimeout)
	defer cancel()

	started := time.Now()
	completion, err := c.completer.Complete(callCtx, messages)
	c.observer.CompletionObserved(time.Since(started), err)
	if err != nil {
		logger.Error("completion failed, replying with apology",
			zap.String("code", string(apperr.CodeOf(err))),
			zap.Error(err),
		)
		return ApologyReply, PathFallback
	}
	reply := strings.TrimSpace(completion.Text)
	if reply == "" {
		logger.Error("completion returned empty text, replying with apology")
		return ApologyReply, PathFallback
	}
	logger.Info("completion succeeded",
		zap.String("model", completion.Model),
		zap.Int("total_tokens", completion.Usage.TotalTokens),
	)
	return reply, PathModel
}

func (c *Controller) appendMessages(ctx context.Context, logger *zap.Logger, userID, message, reply string) {
	if _, err := c.history.AppendMessage(ctx, userID, store.RoleUser, message); err != nil {
		c.persistenceFault(logger, "append_user_message", err)
	}
	if _, err := c.history.AppendMessage(ctx, userID, store.RoleAssistant, reply); err != nil {
		c.persistenceFault(logger, "append_assistant_message", err)
	}
}

func (c *Controller) persistenceFault(logger *zap.Logger, operation string, err error, fields ...zap.Field) {
	c.observer.PersistenceFault(operation)
	fields = append(fields, zap.String("operation", operation), zap.Error(err))
	logger.Error("store operation failed", fields...)
}

// lastAssistantMessage returns the newest history entry when the assistant
// wrote it.
func lastAssistantMessage(history []store.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	last := history[len(history)-1]
	if !strings.EqualFold(strings.TrimSpace(last.Role), store.RoleAssistant) {
		return ""
	}
	return last.Content
}
