package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tajerhq/tajerbot/internal/commerce"
	"github.com/tajerhq/tajerbot/internal/models"
)

func (r *Router) decideGreet(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	name := req.Tenant.BusinessName
	if name == "" {
		name = "our shop"
	}
	return models.Action{
		Type: models.ActionTypeButtons,
		Text: phrase(tag, "welcome", name),
		RichPayload: &models.RichPayload{
			Buttons: []models.Button{
				{ID: "btn_browse_products", Label: "🛍️ Products"},
				{ID: "btn_browse_services", Label: "📅 Services"},
				{ID: "btn_order_status", Label: "📦 My order"},
			},
		},
		StateDelta: resetDelta(),
	}, nil
}

func (r *Router) decideBrowseProducts(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	products, err := r.catalog.ListProducts(ctx, req.Tenant.ID, req.Result.Slot(models.SlotCategory), commerce.ListLimit)
	if err != nil {
		return models.Action{}, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return textAction(phrase(tag, "no_products"), resetDelta()), nil
	}

	items := make([]models.ListItem, len(products))
	refItems := make([]models.ReferenceItem, len(products))
	menuItems := make([]models.MenuItem, len(products))
	for i, p := range products {
		items[i] = models.ListItem{
			ID:          "product_" + p.ID,
			Title:       p.Name,
			Description: formatPrice(p.Price, req.Tenant.Currency),
		}
		refItems[i] = models.ReferenceItem{ID: p.ID, Title: p.Name, Description: p.Description, Category: p.Category}
		menuItems[i] = models.MenuItem{ID: p.ID, Position: i + 1}
	}
	r.rememberList(ctx, req.State.ConversationID, "products", refItems)

	delta := &models.StateDelta{
		AwaitingResponse:      models.BoolPtr(true),
		CurrentFlow:           models.StringPtr(models.FlowBrowsingProducts),
		LastQuestion:          models.StringPtr("product_selection"),
		LastMenu:              &models.Menu{Type: "products", Items: menuItems, ShownAt: r.now()},
		ClarificationAttempts: models.IntPtr(0),
	}
	return models.Action{
		Type:        models.ActionTypeList,
		Text:        phrase(tag, "browse_prompt"),
		RichPayload: &models.RichPayload{ListType: "products", Items: items},
		StateDelta:  delta,
	}, nil
}

func (r *Router) decideProductDetails(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	productID := req.Result.Slot(models.SlotProductID)
	if productID == "" {
		productID = req.State.Entity(models.SlotProductID)
	}
	if productID == "" {
		productID = r.resolveReference(ctx, req, "products")
	}
	if productID == "" {
		delta := &models.StateDelta{
			AwaitingResponse: models.BoolPtr(true),
			CurrentFlow:      models.StringPtr(models.FlowBrowsingProducts),
			LastQuestion:     models.StringPtr("product_selection"),
		}
		return textAction(phrase(tag, "which_product"), delta), nil
	}

	product, err := r.catalog.GetProduct(ctx, req.Tenant.ID, productID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return textAction(phrase(tag, "product_not_found"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("get product: %w", err)
	}

	delta := resetDelta()
	delta.CurrentFlow = models.StringPtr(models.FlowOrdering)
	delta.AwaitingResponse = models.BoolPtr(true)
	delta.LastQuestion = models.StringPtr("order_confirmation")
	delta.Entities = map[string]string{models.SlotProductID: product.ID}
	return models.Action{
		Type: models.ActionTypeCards,
		Text: phrase(tag, "product_details", product.Name, product.Description, formatPrice(product.Price, req.Tenant.Currency)),
		RichPayload: &models.RichPayload{
			Cards: []models.Card{{
				Title:   product.Name,
				Body:    product.Description,
				Buttons: []models.Button{{ID: "btn_place_order", Label: "🛒 Order"}},
			}},
		},
		StateDelta: delta,
	}, nil
}

func (r *Router) decideBrowseServices(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	services, err := r.catalog.ListServices(ctx, req.Tenant.ID, commerce.ListLimit)
	if err != nil {
		return models.Action{}, fmt.Errorf("list services: %w", err)
	}
	if len(services) == 0 {
		return textAction(phrase(tag, "no_services"), resetDelta()), nil
	}

	items := make([]models.ListItem, len(services))
	refItems := make([]models.ReferenceItem, len(services))
	menuItems := make([]models.MenuItem, len(services))
	for i, s := range services {
		items[i] = models.ListItem{
			ID:          "service_" + s.ID,
			Title:       s.Name,
			Description: formatPrice(s.Price, req.Tenant.Currency),
		}
		refItems[i] = models.ReferenceItem{ID: s.ID, Title: s.Name, Description: s.Description, Category: s.Category}
		menuItems[i] = models.MenuItem{ID: s.ID, Position: i + 1}
	}
	r.rememberList(ctx, req.State.ConversationID, "services", refItems)

	delta := &models.StateDelta{
		AwaitingResponse:      models.BoolPtr(true),
		CurrentFlow:           models.StringPtr(models.FlowBrowsingServices),
		LastQuestion:          models.StringPtr("service_selection"),
		LastMenu:              &models.Menu{Type: "services", Items: menuItems, ShownAt: r.now()},
		ClarificationAttempts: models.IntPtr(0),
	}
	return models.Action{
		Type:        models.ActionTypeList,
		Text:        phrase(tag, "browse_prompt"),
		RichPayload: &models.RichPayload{ListType: "services", Items: items},
		StateDelta:  delta,
	}, nil
}

func (r *Router) decideServiceDetails(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	serviceID := req.Result.Slot(models.SlotServiceID)
	if serviceID == "" {
		serviceID = req.State.Entity(models.SlotServiceID)
	}
	if serviceID == "" {
		serviceID = r.resolveReference(ctx, req, "services")
	}
	if serviceID == "" {
		delta := &models.StateDelta{
			AwaitingResponse: models.BoolPtr(true),
			CurrentFlow:      models.StringPtr(models.FlowBrowsingServices),
			LastQuestion:     models.StringPtr("service_selection"),
		}
		return textAction(phrase(tag, "which_service"), delta), nil
	}

	service, err := r.catalog.GetService(ctx, req.Tenant.ID, serviceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return textAction(phrase(tag, "service_not_found"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("get service: %w", err)
	}

	delta := resetDelta()
	delta.CurrentFlow = models.StringPtr(models.FlowBooking)
	delta.AwaitingResponse = models.BoolPtr(true)
	delta.LastQuestion = models.StringPtr("booking_datetime")
	delta.Entities = map[string]string{models.SlotServiceID: service.ID}
	return models.Action{
		Type: models.ActionTypeCards,
		Text: phrase(tag, "product_details", service.Name, service.Description, formatPrice(service.Price, req.Tenant.Currency)),
		RichPayload: &models.RichPayload{
			Cards: []models.Card{{
				Title:   service.Name,
				Body:    service.Description,
				Buttons: []models.Button{{ID: "btn_book", Label: "📅 Book"}},
			}},
		},
		StateDelta: delta,
	}, nil
}

func (r *Router) decidePlaceOrder(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	productID := req.Result.Slot(models.SlotProductID)
	if productID == "" {
		productID = req.State.Entity(models.SlotProductID)
	}
	if productID == "" {
		productID = r.resolveReference(ctx, req, "products")
	}
	if productID == "" {
		delta := &models.StateDelta{
			AwaitingResponse: models.BoolPtr(true),
			CurrentFlow:      models.StringPtr(models.FlowBrowsingProducts),
			LastQuestion:     models.StringPtr("product_selection"),
		}
		return textAction(phrase(tag, "which_product"), delta), nil
	}

	product, err := r.catalog.GetProduct(ctx, req.Tenant.ID, productID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return textAction(phrase(tag, "product_not_found"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("get product: %w", err)
	}
	if product.Stock < 1 {
		return textAction(phrase(tag, "out_of_stock", product.Name), resetDelta()), nil
	}

	quantity := 1
	if q := req.Result.Slot(models.SlotQuantity); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			quantity = n
		}
	}

	order := models.Order{
		ID:         uuid.NewString(),
		TenantID:   req.Tenant.ID,
		CustomerID: req.Customer.ID,
		ProductID:  product.ID,
		Quantity:   quantity,
		Total:      product.Price * int64(quantity),
		Status:     models.OrderStatusPending,
		CreatedAt:  r.now().UTC(),
		UpdatedAt:  r.now().UTC(),
	}
	if err := commerce.ValidateOrder(order); err != nil {
		slog.Warn("order rejected by validation", "tenant_id", req.Tenant.ID, "customer_id", req.Customer.ID, "error", err)
		return textAction(phrase(tag, "order_failed"), resetDelta()), nil
	}
	if err := r.catalog.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, models.ErrValidation) {
			return textAction(phrase(tag, "order_failed"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("create order: %w", err)
	}

	delta := resetDelta()
	delta.Entities = map[string]string{
		models.SlotOrderID:   order.ID,
		models.SlotProductID: "",
	}
	return models.Action{
		Type:        models.ActionTypeText,
		Text:        phrase(tag, "order_confirmed", quantity, product.Name, formatPrice(order.Total, req.Tenant.Currency), shortID(order.ID)),
		StateDelta:  delta,
		SideEffects: []string{models.SideEffectOrderCreated},
	}, nil
}

func (r *Router) decideBookAppointment(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	serviceID := req.Result.Slot(models.SlotServiceID)
	if serviceID == "" {
		serviceID = req.State.Entity(models.SlotServiceID)
	}
	if serviceID == "" {
		serviceID = r.resolveReference(ctx, req, "services")
	}
	if serviceID == "" {
		delta := &models.StateDelta{
			AwaitingResponse: models.BoolPtr(true),
			CurrentFlow:      models.StringPtr(models.FlowBrowsingServices),
			LastQuestion:     models.StringPtr("service_selection"),
		}
		return textAction(phrase(tag, "which_service"), delta), nil
	}

	service, err := r.catalog.GetService(ctx, req.Tenant.ID, serviceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return textAction(phrase(tag, "service_not_found"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("get service: %w", err)
	}

	scheduledAt, ok := scheduleFromSlots(req.Result, r.now())
	if !ok {
		delta := &models.StateDelta{
			AwaitingResponse: models.BoolPtr(true),
			CurrentFlow:      models.StringPtr(models.FlowBooking),
			LastQuestion:     models.StringPtr("booking_datetime"),
			Entities:         map[string]string{models.SlotServiceID: service.ID},
		}
		return textAction(phrase(tag, "ask_datetime"), delta), nil
	}

	appt := models.Appointment{
		ID:          uuid.NewString(),
		TenantID:    req.Tenant.ID,
		CustomerID:  req.Customer.ID,
		ServiceID:   service.ID,
		ScheduledAt: scheduledAt,
		Status:      models.AppointmentStatusPending,
		CreatedAt:   r.now().UTC(),
	}
	if err := commerce.ValidateAppointment(appt); err != nil {
		slog.Warn("appointment rejected by validation", "tenant_id", req.Tenant.ID, "customer_id", req.Customer.ID, "error", err)
		return textAction(phrase(tag, "appt_failed"), resetDelta()), nil
	}
	if err := r.catalog.CreateAppointment(ctx, appt); err != nil {
		if errors.Is(err, models.ErrValidation) {
			return textAction(phrase(tag, "appt_failed"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("create appointment: %w", err)
	}

	delta := resetDelta()
	delta.Entities = map[string]string{
		models.SlotAppointmentID: appt.ID,
		models.SlotServiceID:     "",
	}
	return models.Action{
		Type:        models.ActionTypeText,
		Text:        phrase(tag, "appt_confirmed", service.Name, scheduledAt.Format("Mon 02 Jan 15:04")),
		StateDelta:  delta,
		SideEffects: []string{models.SideEffectAppointmentCreated},
	}, nil
}

func (r *Router) decideCheckOrderStatus(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	orderID := req.Result.Slot(models.SlotOrderID)
	if orderID == "" {
		orderID = req.State.Entity(models.SlotOrderID)
	}
	if orderID == "" {
		// Try the customer's most recent order before asking.
		orders, err := r.catalog.ListOrdersByCustomer(ctx, req.Tenant.ID, req.Customer.ID, 1)
		if err == nil && len(orders) > 0 {
			orderID = orders[0].ID
		}
	}
	if orderID == "" {
		delta := &models.StateDelta{
			AwaitingResponse: models.BoolPtr(true),
			CurrentFlow:      models.StringPtr(models.FlowAwaitingOrderID),
			LastQuestion:     models.StringPtr("order_id"),
		}
		return textAction(phrase(tag, "ask_order_id"), delta), nil
	}

	order, err := r.catalog.GetOrder(ctx, req.Tenant.ID, orderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return textAction(phrase(tag, "order_not_found"), resetDelta()), nil
		}
		return models.Action{}, fmt.Errorf("get order: %w", err)
	}
	return textAction(phrase(tag, "order_status", shortID(order.ID), string(order.Status)), resetDelta()), nil
}

func (r *Router) decideCheckAppointmentStatus(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	apptID := req.Result.Slot(models.SlotAppointmentID)
	if apptID == "" {
		apptID = req.State.Entity(models.SlotAppointmentID)
	}

	var appt *models.Appointment
	if apptID != "" {
		found, err := r.catalog.GetAppointment(ctx, req.Tenant.ID, apptID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return models.Action{}, fmt.Errorf("get appointment: %w", err)
		}
		appt = found
	} else {
		appts, err := r.catalog.ListAppointmentsByCustomer(ctx, req.Tenant.ID, req.Customer.ID, 1)
		if err != nil {
			return models.Action{}, fmt.Errorf("list appointments: %w", err)
		}
		if len(appts) > 0 {
			appt = &appts[0]
		}
	}
	if appt == nil {
		return textAction(phrase(tag, "appt_not_found"), resetDelta()), nil
	}
	return textAction(phrase(tag, "appt_status", appt.ScheduledAt.Format("Mon 02 Jan 15:04"), string(appt.Status)), resetDelta()), nil
}

func (r *Router) decideAskDeliveryFees(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	text := req.Tenant.DeliveryFeeText
	if text == "" {
		text = phrase(tag, "delivery_default")
	}
	return textAction(text, resetDelta()), nil
}

func (r *Router) decideAskReturnPolicy(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	text := req.Tenant.ReturnPolicyText
	if text == "" {
		text = phrase(tag, "returns_default")
	}
	return textAction(text, resetDelta()), nil
}

func (r *Router) decidePaymentHelp(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	text := req.Tenant.PaymentHelpText
	if text == "" {
		text = phrase(tag, "payment_default")
	}
	return textAction(text, resetDelta()), nil
}

func (r *Router) decideRequestHuman(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	text := phrase(tag, "handoff")
	if req.Tenant.HandoffNumber != "" {
		text = phrase(tag, "handoff_number", req.Tenant.HandoffNumber)
	}
	return models.Action{
		Type: models.ActionTypeHandoff,
		Text: text,
		StateDelta: &models.StateDelta{
			AwaitingResponse:      models.BoolPtr(false),
			CurrentFlow:           models.StringPtr(models.FlowAwaitingHandoff),
			ClarificationAttempts: models.IntPtr(0),
		},
		SideEffects: []string{models.SideEffectHandoffTriggered},
	}, nil
}

func (r *Router) decideGeneralFAQ(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	text := req.Tenant.FAQText
	if text == "" {
		text = phrase(tag, "faq_default")
	}
	return textAction(text, resetDelta()), nil
}

// farewellWords closes the exchange with a goodbye instead of the generic
// small-talk prompt.
var farewellWords = []string{
	"bye", "goodbye", "thanks", "thank you", "merci", "au revoir",
	"choukran", "chokran", "شكرا", "بسلامة", "bslama",
}

func (r *Router) decideSmallTalk(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	lower := strings.ToLower(req.Message)
	for _, w := range farewellWords {
		if strings.Contains(lower, w) {
			return textAction(phrase(tag, "goodbye"), resetDelta()), nil
		}
	}
	return textAction(phrase(tag, "small_talk"), resetDelta()), nil
}

// decideUnknown asks for clarification until the attempt budget is spent,
// then hands the conversation to a human.
func (r *Router) decideUnknown(ctx context.Context, req Request) (models.Action, error) {
	tag := replyLanguage(req.Result, req.Tenant, req.Customer)
	if req.State.ClarificationAttempts >= models.MaxClarificationAttempts {
		text := phrase(tag, "handoff")
		if req.Tenant.HandoffNumber != "" {
			text = phrase(tag, "handoff_number", req.Tenant.HandoffNumber)
		}
		return models.Action{
			Type: models.ActionTypeHandoff,
			Text: text,
			StateDelta: &models.StateDelta{
				AwaitingResponse:      models.BoolPtr(false),
				CurrentFlow:           models.StringPtr(models.FlowAwaitingHandoff),
				ClarificationAttempts: models.IntPtr(0),
			},
			SideEffects: []string{models.SideEffectHandoffTriggered},
		}, nil
	}

	delta := &models.StateDelta{
		AwaitingResponse:      models.BoolPtr(true),
		ClarificationAttempts: models.IntPtr(req.State.ClarificationAttempts + 1),
	}
	return textAction(phrase(tag, "clarify"), delta), nil
}

// resolveReference matches the raw message against the conversation's active
// reference context and returns the matched item's id, or "" when nothing
// resolves. Ambiguous matches keep the first item in list order; match errors
// only cost the follow-up reference, so they are logged and swallowed.
func (r *Router) resolveReference(ctx context.Context, req Request, wantListType string) string {
	if r.refs == nil || req.Message == "" || req.State.ConversationID == "" {
		return ""
	}
	match, err := r.refs.Resolve(ctx, req.State.ConversationID, req.Message)
	if err != nil {
		slog.Warn("reference resolution failed", "conversation_id", req.State.ConversationID, "error", err)
		return ""
	}
	if match == nil || match.ListType != wantListType {
		return ""
	}
	if match.Ambiguous {
		slog.Debug("ambiguous reference, keeping first match",
			"conversation_id", req.State.ConversationID,
			"match_count", match.MatchCount,
			"item_id", match.Item.ID)
	}
	return match.Item.ID
}

// rememberList records a displayed list as the conversation's reference
// context. Failures only cost descriptive follow-up references, so they are
// logged and swallowed.
func (r *Router) rememberList(ctx context.Context, conversationID, listType string, items []models.ReferenceItem) {
	if r.refs == nil || conversationID == "" {
		return
	}
	if _, err := r.refs.Store(ctx, conversationID, listType, items); err != nil {
		slog.Warn("failed to store reference context", "conversation_id", conversationID, "list_type", listType, "error", err)
	}
}

func textAction(text string, delta *models.StateDelta) models.Action {
	return models.Action{Type: models.ActionTypeText, Text: text, StateDelta: delta}
}

// resetDelta marks a successful resolution: the question is answered, no flow
// is pending, and the clarification counter restarts.
func resetDelta() *models.StateDelta {
	return &models.StateDelta{
		AwaitingResponse:      models.BoolPtr(false),
		CurrentFlow:           models.StringPtr(""),
		LastQuestion:          models.StringPtr(""),
		ClarificationAttempts: models.IntPtr(0),
	}
}

// shortID renders a storable id in customer-facing copy.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 && i >= 8 {
		return strings.ToUpper(id[:i])
	}
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// scheduleFromSlots combines the extracted date and time slots into a
// concrete timestamp. Returns false when no date was extracted; a missing
// time defaults to 10:00.
func scheduleFromSlots(result models.IntentResult, now time.Time) (time.Time, bool) {
	dateSlot := result.Slot(models.SlotDate)
	if dateSlot == "" {
		return time.Time{}, false
	}

	var day time.Time
	switch dateSlot {
	case "today":
		day = now
	case "tomorrow":
		day = now.AddDate(0, 0, 1)
	default:
		parsed, ok := parseExplicitDate(dateSlot, now)
		if !ok {
			return time.Time{}, false
		}
		day = parsed
	}

	hour, minute := 10, 0
	if t := result.Slot(models.SlotTime); t != "" {
		if h, m, ok := parseClock(t); ok {
			hour, minute = h, m
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), true
}

func parseExplicitDate(s string, now time.Time) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02/01/06", "02-01-2006", "02-01-06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Day/month without a year: assume the current year.
	for _, layout := range []string{"02/01", "2/1", "02-01", "2-1"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), true
		}
	}
	return time.Time{}, false
}

func parseClock(s string) (int, int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	pm := strings.HasSuffix(s, "pm")
	am := strings.HasSuffix(s, "am")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "pm"), "am"))

	var hh, mm int
	switch {
	case strings.ContainsAny(s, ":h"):
		sep := ":"
		if strings.Contains(s, "h") {
			sep = "h"
		}
		parts := strings.SplitN(s, sep, 2)
		h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, 0, false
		}
		hh = h
		if len(parts) == 2 && parts[1] != "" {
			m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return 0, 0, false
			}
			mm = m
		}
	default:
		h, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		hh = h
	}
	if pm && hh < 12 {
		hh += 12
	}
	if am && hh == 12 {
		hh = 0
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}
