package intent

import (
	"strings"

	"github.com/tajerhq/tajerbot/internal/models"
)

// flowExpectations is the fixed flow→expected-intent table consulted when the
// previous turn asked a direct question. It is the single source of truth for
// context resolution: a decision function that introduces a new flow must add
// it here, or its follow-up turns fall through to the slower stages.
var flowExpectations = map[string]models.Intent{
	models.FlowBrowsingProducts: models.IntentProductDetails,
	models.FlowBrowsingServices: models.IntentServiceDetails,
	models.FlowOrdering:         models.IntentPlaceOrder,
	models.FlowBooking:          models.IntentBookAppointment,
	models.FlowPayment:          models.IntentPaymentHelp,
	models.FlowAwaitingOrderID:  models.IntentCheckOrderStatus,
	models.FlowAwaitingHandoff:  models.IntentRequestHuman,
}

// ExpectedIntent returns the intent a flow's follow-up answer is expected to
// carry, if the flow is in the table.
func ExpectedIntent(flow string) (models.Intent, bool) {
	i, ok := flowExpectations[flow]
	return i, ok
}

// menuIntents maps a displayed menu's list type to the intent a positional
// selection against it means.
var menuIntents = map[string]models.Intent{
	"products":     models.IntentProductDetails,
	"services":     models.IntentServiceDetails,
	"orders":       models.IntentCheckOrderStatus,
	"appointments": models.IntentCheckAppointmentStatus,
}

// menuSlotKeys maps a list type to the slot key carrying the selected item id.
var menuSlotKeys = map[string]string{
	"products":     models.SlotProductID,
	"services":     models.SlotServiceID,
	"orders":       models.SlotOrderID,
	"appointments": models.SlotAppointmentID,
}

// buttonIntents maps the fixed interactive button IDs rendered by the decision
// functions back to intents.
var buttonIntents = map[string]models.Intent{
	"btn_browse_products": models.IntentBrowseProducts,
	"btn_browse_services": models.IntentBrowseServices,
	"btn_place_order":     models.IntentPlaceOrder,
	"btn_book":            models.IntentBookAppointment,
	"btn_order_status":    models.IntentCheckOrderStatus,
	"btn_delivery_fees":   models.IntentAskDeliveryFees,
	"btn_return_policy":   models.IntentAskReturnPolicy,
	"btn_payment_help":    models.IntentPaymentHelp,
	"btn_human":           models.IntentRequestHuman,
}

// payloadPrefixes maps the "<type>_<id>" list-reply convention to the intent
// and slot key for the embedded entity id.
var payloadPrefixes = []struct {
	prefix  string
	intent  models.Intent
	slotKey string
}{
	{"product_", models.IntentProductDetails, models.SlotProductID},
	{"service_", models.IntentServiceDetails, models.SlotServiceID},
	{"order_", models.IntentCheckOrderStatus, models.SlotOrderID},
	{"appointment_", models.IntentCheckAppointmentStatus, models.SlotAppointmentID},
}

// resolvePayload maps an explicit structured selection (button or list tap) to
// an intent. Known button IDs resolve through the fixed table; list IDs follow
// the "<type>_<id>" convention with the entity id returned as the slot value.
func resolvePayload(payloadID string) (models.Intent, string, string, bool) {
	if i, ok := buttonIntents[payloadID]; ok {
		return i, "", "", true
	}
	for _, p := range payloadPrefixes {
		if id, found := strings.CutPrefix(payloadID, p.prefix); found && id != "" {
			return p.intent, p.slotKey, id, true
		}
	}
	return models.IntentUnknown, "", "", false
}
