package notify

import (
	"fmt"
	"net/url"

	"studenttrack_go/models"
	"studenttrack_go/utils"
)

// BuildWhatsAppLink composes a wa.me deep link that opens a chat with the
// text pre-filled. phone is the raw number as stored; countryCode comes
// from the app settings. Delivery is fire-and-forget: the admin's device
// opens the link, the app never awaits confirmation.
func BuildWhatsAppLink(phone, countryCode, text string) (string, error) {
	normalized, err := utils.NormalizePhone(phone, countryCode)
	if err != nil {
		return "", err
	}
	return "https://wa.me/" + normalized + "?text=" + url.QueryEscape(text), nil
}

// AbsenceMessage is the parent notification for a missed session.
func AbsenceMessage(settings models.AppSettings, student models.Student, date string) string {
	if settings.AbsenceMessage != "" {
		return fmt.Sprintf(settings.AbsenceMessage, student.Name, date)
	}
	return fmt.Sprintf("Dear parent, %s was absent from the session on %s. Please contact %s for details.",
		student.Name, date, settings.CenterName)
}

// PaymentReminder is the parent notification for an unsettled month.
func PaymentReminder(settings models.AppSettings, student models.Student, month string) string {
	if settings.PaymentMessage != "" {
		return fmt.Sprintf(settings.PaymentMessage, student.Name, month)
	}
	return fmt.Sprintf("Dear parent, the %s fee for %s (%d) is still due. Thank you, %s.",
		month, student.Name, student.MonthlyFee, settings.CenterName)
}

// PaymentReceipt confirms a registered payment.
func PaymentReceipt(settings models.AppSettings, student models.Student, month string, amount int) string {
	return fmt.Sprintf("Payment received: %d for %s, month %s. Thank you, %s.",
		amount, student.Name, month, settings.CenterName)
}

// GradeReport summarises a score for the parent.
func GradeReport(settings models.AppSettings, student models.Student, title string, score, maxScore int) string {
	return fmt.Sprintf("%s: %s scored %d/%d. %s", title, student.Name, score, maxScore, settings.CenterName)
}
