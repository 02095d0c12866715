package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pensionguru/backend/internal/apperr"
	"pensionguru/backend/internal/export"
	"pensionguru/backend/internal/store"
)

func (a *App) exportUserID(c *gin.Context) (string, bool) {
	if strings.TrimSpace(c.Query("user_id")) == "" {
		if _, signedIn := authSubjectFromContext(c); !signedIn {
			writeError(c, http.StatusBadRequest, "user_id is required")
			return "", false
		}
	}
	return a.authorizeUser(c, c.Query("user_id"))
}

func (a *App) exportPDF(c *gin.Context) {
	userID, ok := a.exportUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	profile, err := a.store.GetProfile(ctx, userID)
	if apperr.IsNotFound(err) {
		writeError(c, http.StatusNotFound, "No profile found for PDF export.")
		return
	}
	if err != nil {
		a.writeAppError(c, err, "Failed to load profile")
		return
	}

	messages, err := a.store.AllMessages(ctx, userID)
	if err != nil {
		// The summary is still useful without the transcript.
		a.logger.Error("loading transcript for pdf export failed", zap.String("user_id", userID), zap.Error(err))
		messages = []store.ChatMessage{}
	}

	var out bytes.Buffer
	if err := export.WritePDF(&out, profile, messages); err != nil {
		a.writeAppError(c, apperr.Wrap(err, apperr.CodeExportFailure, "rendering pdf", "user_id", userID), "Failed to generate PDF report.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", export.PDFFilename(userID)))
	c.Data(http.StatusOK, "application/pdf", out.Bytes())
}

func (a *App) exportCSV(c *gin.Context) {
	userID, ok := a.exportUserID(c)
	if !ok {
		return
	}

	messages, err := a.store.AllMessages(c.Request.Context(), userID)
	if err != nil {
		a.writeAppError(c, err, "Failed to load chat history")
		return
	}

	var out bytes.Buffer
	if err := export.WriteTranscriptCSV(&out, userID, messages); err != nil {
		a.writeAppError(c, apperr.Wrap(err, apperr.CodeExportFailure, "rendering csv", "user_id", userID), "Failed to build CSV export")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", export.CSVFilename(userID, a.now())))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out.Bytes())
}
