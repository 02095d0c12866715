package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pensionguru/backend/internal/store"
)

const defaultUserName = "Unknown User"

func (a *App) authGoogle(c *gin.Context) {
	var payload googleAuthRequest
	if !mustJSON(c, &payload) {
		return
	}

	identity, ok := a.resolveIdentity(c, payload)
	if !ok {
		return
	}

	name := identity.Name
	if name == "" {
		name = defaultUserName
	}
	var email *string
	if identity.Email != "" {
		email = &identity.Email
	}

	user, created, err := a.store.UpsertUser(c.Request.Context(), store.User{
		ID:    identity.Subject,
		Name:  name,
		Email: email,
	})
	if err != nil {
		a.writeAppError(c, err, "Database operation failed")
		return
	}
	a.logger.Info("google sign-in processed", zap.String("user_id", user.ID), zap.Bool("created", created))

	token, err := a.issueAccessToken(user.ID, user.Name)
	if err != nil {
		a.writeAppError(c, err, "Failed to issue access token")
		return
	}

	response := gin.H{
		"status":  "ok",
		"user_id": user.ID,
		"created": created,
	}
	if token != "" {
		response["access_token"] = token
		response["token_type"] = "bearer"
	}
	c.JSON(http.StatusOK, response)
}

// resolveIdentity verifies the Google credential when a verifier is
// configured and otherwise trusts the decoded fields sent by the client.
func (a *App) resolveIdentity(c *gin.Context, payload googleAuthRequest) (Identity, bool) {
	if a.verifier != nil {
		credential := strings.TrimSpace(payload.Credential)
		if credential == "" {
			writeError(c, http.StatusBadRequest, "Invalid user data received")
			return Identity{}, false
		}
		identity, err := a.verifier.Verify(c.Request.Context(), credential)
		if err != nil {
			a.logger.Warn("google credential rejected", zap.Error(err))
			writeError(c, http.StatusUnauthorized, "Invalid Google credential")
			return Identity{}, false
		}
		return identity, true
	}

	sub := strings.TrimSpace(payload.Sub)
	if sub == "" {
		writeError(c, http.StatusBadRequest, "Invalid user data received")
		return Identity{}, false
	}
	identity := Identity{Subject: sub, Name: strings.TrimSpace(payload.Name)}
	if payload.Email != nil {
		identity.Email = strings.TrimSpace(*payload.Email)
	}
	return identity, true
}
