// Package models defines intent classification structures for TajerBot.
package models

import "time"

// Intent is the closed set of customer communicative purposes the dialog core
// can resolve a message to.
type Intent string

const (
	IntentGreet                  Intent = "GREET"
	IntentBrowseProducts         Intent = "BROWSE_PRODUCTS"
	IntentProductDetails         Intent = "PRODUCT_DETAILS"
	IntentBrowseServices         Intent = "BROWSE_SERVICES"
	IntentServiceDetails         Intent = "SERVICE_DETAILS"
	IntentPlaceOrder             Intent = "PLACE_ORDER"
	IntentBookAppointment        Intent = "BOOK_APPOINTMENT"
	IntentCheckOrderStatus       Intent = "CHECK_ORDER_STATUS"
	IntentCheckAppointmentStatus Intent = "CHECK_APPOINTMENT_STATUS"
	IntentAskDeliveryFees        Intent = "ASK_DELIVERY_FEES"
	IntentAskReturnPolicy        Intent = "ASK_RETURN_POLICY"
	IntentPaymentHelp            Intent = "PAYMENT_HELP"
	IntentRequestHuman           Intent = "REQUEST_HUMAN"
	IntentGeneralFAQ             Intent = "GENERAL_FAQ"
	IntentSmallTalk              Intent = "SMALL_TALK"
	IntentUnknown                Intent = "UNKNOWN"
)

// AllIntents lists every intent in the closed enum. The router's dispatch
// table is checked against this list in tests.
var AllIntents = []Intent{
	IntentGreet,
	IntentBrowseProducts,
	IntentProductDetails,
	IntentBrowseServices,
	IntentServiceDetails,
	IntentPlaceOrder,
	IntentBookAppointment,
	IntentCheckOrderStatus,
	IntentCheckAppointmentStatus,
	IntentAskDeliveryFees,
	IntentAskReturnPolicy,
	IntentPaymentHelp,
	IntentRequestHuman,
	IntentGeneralFAQ,
	IntentSmallTalk,
	IntentUnknown,
}

// IsValidIntent checks if the given intent belongs to the closed enum.
func IsValidIntent(i Intent) bool {
	for _, known := range AllIntents {
		if known == i {
			return true
		}
	}
	return false
}

// ResolveMethod records which pipeline stage produced an IntentResult.
type ResolveMethod string

const (
	// ResolveMethodContext covers stage 1 (flow context), stage 2 (menu
	// position) and stage 3 (structured payload) resolutions.
	ResolveMethodContext ResolveMethod = "context"
	// ResolveMethodRule covers the rule-based pattern classifier.
	ResolveMethodRule ResolveMethod = "rule"
	// ResolveMethodExternal covers the external classifier gateway, including
	// its degraded UNKNOWN results.
	ResolveMethodExternal ResolveMethod = "external"
	// ResolveMethodDefault is the terminal fallback.
	ResolveMethodDefault ResolveMethod = "default"
)

// Slot keys produced by the slot extractor and carried on IntentResult.
const (
	SlotCategory      = "category"
	SlotBudget        = "budget"
	SlotQuantity      = "quantity"
	SlotDate          = "date"
	SlotTime          = "time"
	SlotProductID     = "product_id"
	SlotServiceID     = "service_id"
	SlotOrderID       = "order_id"
	SlotAppointmentID = "appointment_id"
	SlotPosition      = "position"
)

// IntentResult is the outcome of resolving one inbound message. It is
// transient: produced per message and persisted only to the classification log.
type IntentResult struct {
	Intent              Intent            `json:"intent"`
	Confidence          float64           `json:"confidence"`
	Slots               map[string]string `json:"slots,omitempty"`
	LanguageTags        []string          `json:"language_tags,omitempty"`
	ResolvedFromContext bool              `json:"resolved_from_context"`
	Method              ResolveMethod     `json:"method"`
	NeedsClarification  bool              `json:"needs_clarification"`
}

// Slot returns the named slot value, or empty string when absent.
func (r *IntentResult) Slot(key string) string {
	if r.Slots == nil {
		return ""
	}
	return r.Slots[key]
}

// SetSlot records a slot value, allocating the map on first use.
func (r *IntentResult) SetSlot(key, value string) {
	if r.Slots == nil {
		r.Slots = make(map[string]string)
	}
	r.Slots[key] = value
}

// ClassificationRecord is one append-only classification log entry, kept for
// offline analysis of resolution quality and latency.
type ClassificationRecord struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	ConversationID string        `json:"conversation_id"`
	Message        string        `json:"message"`
	Intent         Intent        `json:"intent"`
	Confidence     float64       `json:"confidence"`
	Method         ResolveMethod `json:"method"`
	ElapsedMs      int64         `json:"elapsed_ms"`
	CreatedAt      time.Time     `json:"created_at"`
}
