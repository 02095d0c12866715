// Package export renders a user's profile and transcript as downloadable files.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"pensionguru/backend/internal/dialogue"
	"pensionguru/backend/internal/store"
)

const missingValue = "—"

// PDFFilename is the attachment name used for the plan summary.
func PDFFilename(userID string) string {
	return fmt.Sprintf("retirement_plan_%s.pdf", sanitizeFilename(userID, "user"))
}

type profileLine struct {
	Label string
	Value string
}

func profileLines(profile store.UserProfile) []profileLine {
	income := missingValue
	if profile.Income != nil {
		income = dialogue.FormatIncome(&profile, *profile.Income)
	}
	return []profileLine{
		{Label: "Region", Value: stringOrMissing(profile.Region)},
		{Label: "Age", Value: intOrMissing(profile.Age)},
		{Label: "Income", Value: income},
		{Label: "Retirement Age", Value: intOrMissing(profile.RetirementAge)},
		{Label: "Risk Profile", Value: stringOrMissing(profile.RiskProfile)},
		{Label: "PRSI Years", Value: intOrMissing(profile.ContributionYears)},
		{Label: "Pending Action", Value: stringOrMissing(profile.PendingAction)},
	}
}

func speaker(role string) string {
	if role == store.RoleUser {
		return "You"
	}
	return "Pension Guru"
}

// WritePDF renders the plan summary followed by the full transcript.
func WritePDF(w io.Writer, profile store.UserProfile, messages []store.ChatMessage) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Pension Plan Summary", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	// Core fonts are cp1252; the translator keeps € and £ intact.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	body := width - left - right

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(body, 10, tr("Pension Plan Summary"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(body, 8, tr("User Info"), "", 1, "L", false, 0, "")
	for _, line := range profileLines(profile) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 6, tr(line.Label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(body-45, 6, tr(line.Value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(body, 8, tr("Chat History"), "", 1, "L", false, 0, "")
	if len(messages) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(body, 6, tr("No chat history found."), "", 1, "L", false, 0, "")
	}
	for _, msg := range messages {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(body, 6, tr(speaker(msg.Role)+":"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(body, 5.5, tr(msg.Content), "", "L", false)
		pdf.Ln(1.5)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func stringOrMissing(v *string) string {
	if v == nil {
		return missingValue
	}
	return *v
}

func intOrMissing(v *int) string {
	if v == nil {
		return missingValue
	}
	return strconv.Itoa(*v)
}
