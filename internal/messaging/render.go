package messaging

import (
	"fmt"
	"strings"

	"github.com/tajerhq/tajerbot/internal/models"
)

// RenderActionText flattens a router Action into plain text for channels
// without native list/button support. Lists and buttons become numbered
// entries so positional replies keep working.
func RenderActionText(action models.Action) string {
	var b strings.Builder
	if action.Text != "" {
		b.WriteString(action.Text)
	}
	if action.RichPayload == nil {
		return b.String()
	}

	for i, item := range action.RichPayload.Items {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s", i+1, item.Title)
		if item.Description != "" {
			fmt.Fprintf(&b, " — %s", item.Description)
		}
	}
	for i, btn := range action.RichPayload.Buttons {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s", i+1, btn.Label)
	}
	for _, card := range action.RichPayload.Cards {
		if card.Body != "" && !strings.Contains(b.String(), card.Body) {
			b.WriteString("\n")
			b.WriteString(card.Body)
		}
	}
	return b.String()
}
