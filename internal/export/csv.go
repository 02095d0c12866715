package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pensionguru/backend/internal/store"
)

var transcriptHeader = []string{
	"message_id",
	"user_id",
	"role",
	"content",
	"created_at_utc",
}

func CSVFilename(userID string, now time.Time) string {
	return fmt.Sprintf(
		"pensionguru_transcript_%s_%s.csv",
		sanitizeFilename(userID, "user"),
		now.UTC().Format("20060102_150405"),
	)
}

// WriteTranscriptCSV writes one row per stored message, oldest first.
func WriteTranscriptCSV(w io.Writer, userID string, messages []store.ChatMessage) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(transcriptHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, msg := range messages {
		if err := writer.Write([]string{
			strconv.FormatInt(msg.ID, 10),
			userID,
			msg.Role,
			msg.Content,
			msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func sanitizeFilename(input, fallback string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fallback
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		return fallback
	}
	return sanitized
}
