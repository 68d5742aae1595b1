package assistant

import (
	"fmt"
	"strings"

	"github.com/finboard/backend/internal/model"
)

// categoryTitles label the net-worth breakdown lines.
var categoryTitles = map[model.Category]string{
	model.CategoryFinance:     "כספים ונזילות",
	model.CategoryInsurance:   "ביטוחים",
	model.CategoryInvestments: "השקעות",
	model.CategoryAssets:      "נכסים ונדל״ן",
}

// breakdownOrder fixes the category order in the net-worth answer.
var breakdownOrder = []model.Category{
	model.CategoryFinance,
	model.CategoryInsurance,
	model.CategoryInvestments,
	model.CategoryAssets,
}

// KeywordAnswer is the deterministic fallback responder. Templates are
// evaluated in a fixed order and the first whose keywords match wins; when
// nothing matches it returns a capability summary reflecting the user's
// actual data counts. It always produces an answer.
func KeywordAnswer(query string, snap Snapshot) string {
	q := strings.ToLower(query)

	if strings.Contains(q, "ביטוח רכב") || strings.Contains(q, "רכב") {
		return carInsuranceAnswer(snap)
	}

	if strings.Contains(q, "דרכון") || strings.Contains(q, "תוקף") {
		return passportAnswer(snap)
	}

	if strings.Contains(q, "פנסיה") || strings.Contains(q, "קרן השתלמות") {
		return pensionAnswer(snap)
	}

	if strings.Contains(q, "כמה") && (strings.Contains(q, "ביטוח") || strings.Contains(q, "משלם")) {
		total := sumByCategory(snap.Items, model.CategoryInsurance)
		return fmt.Sprintf("סך ההוצאות השנתיות על ביטוחים: %s.", FormatShekels(total))
	}

	if strings.Contains(q, "הון") || strings.Contains(q, "שווי") || strings.Contains(q, "כסף") {
		return netWorthAnswer(snap)
	}

	if strings.Contains(q, "חידוש") || strings.Contains(q, "פג") {
		return expirationsAnswer(snap)
	}

	return capabilitySummary(snap)
}

func carInsuranceAnswer(snap Snapshot) string {
	for _, item := range snap.Items {
		if strings.Contains(item.ProductType, "רכב") {
			answer := fmt.Sprintf("ביטוח הרכב שלך הוא דרך %s, בעלות שנתית של %s.",
				item.Institution, FormatShekels(item.Value))
			if item.ExpiryDate != "" {
				answer += fmt.Sprintf(" תאריך החידוש הקרוב: %s.", item.ExpiryDate)
			}
			return answer
		}
	}
	return "לא מצאתי מידע על ביטוח רכב במערכת."
}

// passportAnswer cross-references document records and document alerts.
func passportAnswer(snap Snapshot) string {
	for _, alert := range snap.Alerts {
		if alert.Category == "document" && !alert.Read {
			return fmt.Sprintf("%s: %s (%s). מומלץ להתחיל בתהליך החידוש לפחות 3 חודשים מראש.",
				alert.Title, alert.Description, alert.Date)
		}
	}
	for _, doc := range snap.Documents {
		if strings.Contains(doc.Name, "דרכון") {
			return fmt.Sprintf("המסמך \"%s\" שמור במערכת (הועלה ב-%s), אך אין התראת תוקף פעילה עבורו.",
				doc.Name, doc.UploadDate)
		}
	}
	return "לא מצאתי מידע על דרכון או תאריכי תוקף במערכת."
}

func pensionAnswer(snap Snapshot) string {
	total := sumByCategory(snap.Items, model.CategoryInvestments)
	if total == 0 {
		return "לא מצאתי מידע על חסכונות פנסיוניים."
	}
	return fmt.Sprintf("סך ההשקעות לטווח ארוך שלך: %s. זה כולל פנסיה וקרן השתלמות.", FormatShekels(total))
}

func netWorthAnswer(snap Snapshot) string {
	var total float64
	for _, item := range snap.Items {
		total += item.Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "סך ההון העצמי הכולל שלך: %s.", FormatShekels(total))
	for _, cat := range breakdownOrder {
		sum := sumByCategory(snap.Items, cat)
		if sum > 0 {
			fmt.Fprintf(&b, "\n• %s: %s", categoryTitles[cat], FormatShekels(sum))
		}
	}
	return b.String()
}

// expirationsAnswer merges unread alert dates with item expiry dates.
func expirationsAnswer(snap Snapshot) string {
	var lines []string
	for _, alert := range snap.Alerts {
		if !alert.Read {
			lines = append(lines, fmt.Sprintf("• %s - %s", alert.Title, alert.Date))
		}
	}
	for _, item := range snap.Items {
		if item.ExpiryDate != "" && item.Status == model.StatusActive {
			lines = append(lines, fmt.Sprintf("• %s - %s", item.Name, item.ExpiryDate))
		}
	}
	if len(lines) == 0 {
		return "אין חידושים או תאריכי תפוגה קרובים במערכת."
	}
	return "תאריכי חידוש ותפוגה קרובים:\n" + strings.Join(lines, "\n")
}

func capabilitySummary(snap Snapshot) string {
	if len(snap.Items) == 0 {
		return "עדיין אין נתונים במערכת. הוסף פריטים דרך האפליקציה או שלח הודעה כמו \"הוסף ביטוח רכב הראל 5000\"."
	}

	unread := len(unreadAlerts(snap.Alerts))
	return fmt.Sprintf("אני יכול לעזור לך עם מידע על הנכסים, הביטוחים וההשקעות שלך (%d פריטים, %d התראות שלא נקראו). "+
		"נסה לשאול שאלה ספציפית כמו 'כמה אני משלם על ביטוחים?' או 'מתי פג תוקף הדרכון?'",
		len(snap.Items), unread)
}

func sumByCategory(items []*model.FinancialItem, cat model.Category) float64 {
	var sum float64
	for _, item := range items {
		if item.Category == cat {
			sum += item.Value
		}
	}
	return sum
}
