package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pensionguru/backend/internal/dialogue"
)

func (a *App) chat(c *gin.Context) {
	var payload chatRequest
	if !mustJSON(c, &payload) {
		return
	}
	userID, ok := a.authorizeUser(c, payload.UserID)
	if !ok {
		return
	}

	result, err := a.turns.HandleTurn(c.Request.Context(), dialogue.TurnRequest{
		UserID:  userID,
		Message: payload.Message,
		Tone:    payload.Tone,
	})
	if err != nil {
		a.writeAppError(c, err, "Failed to process chat message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": result.Reply})
}

func (a *App) forgetChat(c *gin.Context) {
	var payload forgetRequest
	if !mustJSON(c, &payload) {
		return
	}
	if strings.TrimSpace(payload.UserID) == "" {
		writeError(c, http.StatusBadRequest, "Missing user_id")
		return
	}
	userID, ok := a.authorizeUser(c, payload.UserID)
	if !ok {
		return
	}

	result, err := a.store.Forget(c.Request.Context(), userID)
	if err != nil {
		a.writeAppError(c, err, "Failed to clear history")
		return
	}
	a.logger.Info("cleared chat history and profile",
		zap.String("user_id", userID),
		zap.Int64("deleted_messages", result.DeletedMessages),
		zap.Bool("deleted_profile", result.DeletedProfile),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"message":          "Chat history and profile cleared.",
		"deleted_messages": result.DeletedMessages,
		"deleted_profile":  result.DeletedProfile,
	})
}
