package assistant

import (
	"fmt"
	"strings"

	"github.com/finboard/backend/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Snapshot is the user's financial data handed to the responder for one
// query. It is read-only; the responder never mutates it.
type Snapshot struct {
	Items     []*model.FinancialItem
	Alerts    []*model.Alert
	Documents []*model.Document
}

// hebrewPrinter groups numbers the way the dashboard does.
var hebrewPrinter = message.NewPrinter(language.Hebrew)

// FormatShekels renders a value as "₪1,234,567" with up to two fraction
// digits, Hebrew-locale grouping. Shared with the messaging surface so every
// user-facing amount is grouped the same way.
func FormatShekels(v float64) string {
	return hebrewPrinter.Sprintf("₪%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatContext serializes the snapshot into the Hebrew context block fed to
// the completion model: all items, unread alerts only, and document names.
func FormatContext(snap Snapshot) string {
	var b strings.Builder
	b.WriteString("נתונים פיננסיים של המשתמש:\n\n")

	if len(snap.Items) > 0 {
		b.WriteString("פריטים פיננסיים:\n")
		for _, item := range snap.Items {
			fmt.Fprintf(&b, "- %s (%s): %s, ערך: %s", item.Name, item.Institution, item.Category, FormatShekels(item.Value))
			if item.ExpiryDate != "" {
				fmt.Fprintf(&b, ", תאריך פקיעה: %s", item.ExpiryDate)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	unread := unreadAlerts(snap.Alerts)
	if len(unread) > 0 {
		b.WriteString("התראות:\n")
		for _, alert := range unread {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", alert.Title, alert.Description, alert.Date)
		}
		b.WriteString("\n")
	}

	if len(snap.Documents) > 0 {
		b.WriteString("מסמכים:\n")
		for _, doc := range snap.Documents {
			fmt.Fprintf(&b, "- %s (%s)\n", doc.Name, doc.Category)
		}
	}

	return b.String()
}

// BuildSystemPrompt constructs the fixed system instruction plus the user's
// data. The instruction constrains the model to answer only from supplied
// data, in Hebrew, with shekel-formatted numbers, and to say explicitly when
// data is absent.
func BuildSystemPrompt(snap Snapshot) string {
	return fmt.Sprintf(`אתה עוזר פיננסי אישי חכם. אתה עוזר למשתמש לנהל את הכספים, הביטוחים וההשקעות שלו.

חוקים חשובים:
1. תשובה רק על בסיס הנתונים שסופקו לך - אל תמציא מידע
2. אם אין מידע במערכת, אמור זאת בבירור
3. תשובות בעברית, ברורות וקצרות
4. השתמש בפורמט מספרים ישראלי (₪)
5. אם יש תאריכי פקיעה, ציין אותם

נתוני המשתמש:
%s`, FormatContext(snap))
}

func unreadAlerts(alerts []*model.Alert) []*model.Alert {
	var unread []*model.Alert
	for _, a := range alerts {
		if !a.Read {
			unread = append(unread, a)
		}
	}
	return unread
}
