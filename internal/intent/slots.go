package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tajerhq/tajerbot/internal/models"
)

var (
	// budgetPattern matches an amount near a currency or budget marker, e.g.
	// "under 1,500 dh", "budget 2000", "b 300 dirham", "ب300 درهم". The digits
	// may carry thousands separators.
	budgetPattern = regexp.MustCompile(`(?:budget|under|max|moins de|ب)\s*:?\s*(\d[\d\s.,]*)|(\d[\d\s.,]*)\s*(?:dh|dhs|dirhams?|mad|درهم|euros?|€)`)

	// quantityPattern matches explicit quantities: "2 pcs", "x3", "qty 2",
	// "2 وحدة", "jouj" (Darija two).
	quantityPattern = regexp.MustCompile(`(?:qty|quantity|quantité|x)\s*:?\s*(\d{1,3})|(\d{1,3})\s*(?:x|pcs?|pieces?|pièces?|units?|وحدات?|وحدة)`)

	// datePattern matches explicit dates: "12/08", "12-08-2026", "2026-08-12".
	datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)\b`)

	// timePattern matches clock times: "14:30", "14h30", "2pm", "9 am".
	timePattern = regexp.MustCompile(`\b(\d{1,2}(?::|h)\d{2}|\d{1,2}\s*(?:am|pm|h))\b`)

	// idPattern matches an explicit entity identifier after an order or
	// appointment marker: "order #A123", "commande CMD-42", "طلب 857".
	idPattern = regexp.MustCompile(`(?:order|commande|tlba|طلب(?:ية)?|maw3id|rendez[- ]?vous|rdv|appointment)\s*#?\s*([A-Za-z0-9][A-Za-z0-9-]{2,})`)

	// categoryPattern matches the phrase naming what the customer is after:
	// "looking for shoes", "category cosmetics", "je cherche des sacs".
	categoryPattern = regexp.MustCompile(`(?:looking for|category|catégorie|categorie|je cherche (?:des|du|de la)?|kanqelleb 3la|كنقلب على)\s+([\p{L}\d]+)`)
)

// relativeDays maps "today/tomorrow" words of the supported languages to a
// canonical relative date token.
var relativeDays = map[string]string{
	"today": "today", "tonight": "today",
	"aujourd'hui": "today", "aujourdhui": "today",
	"اليوم": "today", "لليوم": "today",
	"lyoum": "today", "lyoma": "today", "daba": "today",
	"tomorrow": "tomorrow",
	"demain":   "tomorrow",
	"غدا":      "tomorrow", "غدوة": "tomorrow",
	"ghedda": "tomorrow", "ghadda": "tomorrow", "gheda": "tomorrow",
}

// ExtractSlots pulls typed attributes out of the message text, scoped by the
// candidate intent so that e.g. a date in a browse message is not misread as
// an appointment slot.
func ExtractSlots(text string, candidate models.Intent) map[string]string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	slots := make(map[string]string)

	switch candidate {
	case models.IntentBrowseProducts, models.IntentBrowseServices, models.IntentProductDetails, models.IntentServiceDetails:
		if cat := extractCategory(normalized); cat != "" {
			slots[models.SlotCategory] = cat
		}
		if budget, ok := extractBudget(normalized); ok {
			slots[models.SlotBudget] = strconv.Itoa(budget)
		}
	case models.IntentPlaceOrder:
		if qty, ok := extractQuantity(normalized); ok {
			slots[models.SlotQuantity] = strconv.Itoa(qty)
		}
		if budget, ok := extractBudget(normalized); ok {
			slots[models.SlotBudget] = strconv.Itoa(budget)
		}
	case models.IntentBookAppointment:
		if d := extractDate(normalized); d != "" {
			slots[models.SlotDate] = d
		}
		if t := extractTime(normalized); t != "" {
			slots[models.SlotTime] = t
		}
	case models.IntentCheckOrderStatus:
		if id := extractEntityID(normalized); id != "" {
			slots[models.SlotOrderID] = id
		}
	case models.IntentCheckAppointmentStatus:
		if id := extractEntityID(normalized); id != "" {
			slots[models.SlotAppointmentID] = id
		}
	}

	if len(slots) == 0 {
		return nil
	}
	return slots
}

func extractCategory(text string) string {
	if m := categoryPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractBudget returns the matched amount with thousands separators
// stripped. Separators are spaces, commas and dots between digits; a trailing
// two-digit decimal part is truncated rather than rounded.
func extractBudget(text string) (int, bool) {
	m := budgetPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	// A separator followed by fewer than three trailing digits is a decimal
	// part, not a thousands group ("1500.99" -> 1500, "1.500" stays 1500).
	raw = strings.TrimRight(raw, " \t.,")
	if i := strings.LastIndexAny(raw, ".,"); i >= 0 && len(raw)-i-1 < 3 {
		raw = raw[:i]
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	n, err := strconv.Atoi(cleaned)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func extractQuantity(text string) (int, bool) {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func extractDate(text string) string {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,!?;:")
		if day, ok := relativeDays[tok]; ok {
			return day
		}
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractTime(text string) string {
	if m := timePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractEntityID(text string) string {
	if m := idPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
