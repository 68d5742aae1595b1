package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/finboard/backend/internal/model"
)

// categoryGroup is one ordered bucket of category keywords. The first group
// with any keyword present in the message wins; later groups are not tested.
type categoryGroup struct {
	category model.Category
	keywords []string
}

// categoryGroups are evaluated in this exact order. Insurance terms shadow
// pension terms, pension terms shadow bank terms, and so on. Matching is
// case-sensitive against the original message script.
var categoryGroups = []categoryGroup{
	{model.CategoryInsurance, []string{"ביטוח", "insurance"}},
	{model.CategoryInvestments, []string{"פנסיה", "קרן", "pension"}},
	{model.CategoryFinance, []string{"חשבון", "בנק", "bank"}},
	{model.CategoryAssets, []string{"דירה", "נכס", "property"}},
}

// knownInstitutions is the closed set of recognized Israeli financial brands,
// scanned in order; the first one found as a substring is selected.
var knownInstitutions = []string{
	"הראל", "כלל", "מגדל", "הפניקס", "מיטב", "לאומי", "הפועלים", "דיסקונט", "מזרחי",
}

// valuePattern matches the first digit run with optional thousands grouping
// and an optional decimal fraction, e.g. "5000", "1,250.50".
var valuePattern = regexp.MustCompile(`(\d+(?:,\d{3})*(?:\.\d+)?)`)

// DefaultItemName is used when an add command carries no residual free text.
const DefaultItemName = "פריט חדש"

// extractAddFields pulls structured fields out of an "add" message using
// ordered heuristics. It never fails: every field degrades to a safe default
// except Category, whose absence the caller must reject when the command is
// materialized into an item.
func extractAddFields(raw string) model.ParsedCommand {
	cmd := model.ParsedCommand{Action: model.ActionAdd}

	for _, group := range categoryGroups {
		if containsAny(raw, group.keywords) {
			cmd.Category = group.category
			break
		}
	}

	for _, inst := range knownInstitutions {
		if strings.Contains(raw, inst) {
			cmd.Institution = inst
			break
		}
	}

	rawValue := valuePattern.FindString(raw)
	if rawValue != "" {
		v, err := strconv.ParseFloat(strings.ReplaceAll(rawValue, ",", ""), 64)
		if err == nil {
			cmd.Value = v
			cmd.HasValue = true
		}
	}

	cmd.Name = extractName(raw, cmd.Institution, rawValue)
	return cmd
}

// extractName takes the text following the add keyword, strips the detected
// institution and value substrings, and falls back to a placeholder name.
//
// The keyword position is the max of the per-variant indices: when several
// variants occur the latest one wins, and absent variants contribute -1 and
// drop out of the max. This favors the last-occurring variant on purpose;
// do not change it without checking real message logs.
func extractName(raw, institution, rawValue string) string {
	runes := []rune(raw)

	addIndex := -1
	for _, kw := range addKeywords {
		if idx := runeIndex(runes, kw); idx > addIndex {
			addIndex = idx
		}
	}
	if addIndex == -1 {
		return ""
	}

	// Skip four characters past the keyword start: the length of the Hebrew
	// imperative, or "add" plus its trailing space.
	start := addIndex + 4
	if start > len(runes) {
		start = len(runes)
	}
	name := strings.TrimSpace(string(runes[start:]))

	if institution != "" {
		name = strings.TrimSpace(strings.Replace(name, institution, "", 1))
	}
	if rawValue != "" {
		name = strings.TrimSpace(strings.Replace(name, rawValue, "", 1))
	}

	if name == "" {
		return DefaultItemName
	}
	return name
}

// runeIndex returns the index of substr within runes in characters, not
// bytes, so the 4-character offset above lands consistently regardless of
// script. Returns -1 when absent.
func runeIndex(runes []rune, substr string) int {
	sub := []rune(substr)
	if len(sub) == 0 || len(sub) > len(runes) {
		return -1
	}
	for i := 0; i+len(sub) <= len(runes); i++ {
		if string(runes[i:i+len(sub)]) == substr {
			return i
		}
	}
	return -1
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
