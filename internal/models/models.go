// Package models defines the core data structures for TajerBot.
//
// It includes tenant and customer contexts, commerce entities, and the shared
// error values used across modules.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum accepted length for an inbound message body
	MaxMessageLength = 4096
	// MaxMenuItems defines the maximum number of items a displayed menu may carry
	MaxMenuItems = 10
	// MenuTTL defines how long a displayed menu stays eligible for positional reference
	MenuTTL = 5 * time.Minute
	// MaxClarificationAttempts defines how many clarifying questions are asked
	// before the conversation is handed to a human
	MaxClarificationAttempts = 2
)

// Error variables for better error handling and testability
var (
	ErrEmptyConversationID = errors.New("conversation id cannot be empty")
	ErrEmptyTenantID       = errors.New("tenant id cannot be empty")
	ErrEmptyMessage        = errors.New("message body cannot be empty")
	ErrMessageTooLong      = errors.New("message body exceeds maximum length")
	ErrNotFound            = errors.New("record not found")
	ErrValidation          = errors.New("validation failed")
	ErrBudgetExceeded      = errors.New("classifier budget exceeded")
)

// TenantContext carries the per-tenant configuration a decision function may read.
type TenantContext struct {
	ID                   string   `json:"id"`
	BusinessName         string   `json:"business_name"`
	Currency             string   `json:"currency"`
	Languages            []string `json:"languages"`                // supported language tags, first entry is the default
	ClassifierDailyLimit int      `json:"classifier_daily_limit"`   // max external classifier calls per day, 0 disables the gateway
	DeliveryFeeText      string   `json:"delivery_fee_text"`        // canned answer for delivery fee questions
	ReturnPolicyText     string   `json:"return_policy_text"`       // canned answer for return policy questions
	PaymentHelpText      string   `json:"payment_help_text"`        // canned answer for payment questions
	FAQText              string   `json:"faq_text,omitempty"`       // general FAQ fallback text
	HandoffNumber        string   `json:"handoff_number,omitempty"` // human agent contact shown on handoff
}

// CustomerContext identifies the customer on the other side of the conversation.
type CustomerContext struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name,omitempty"`
	Language    string `json:"language,omitempty"` // preferred language tag, if known
}

// Product is a catalog product owned by a tenant.
type Product struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       int64     `json:"price"` // minor currency units
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service is a bookable service offered by a tenant.
type Service struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       int64     `json:"price"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a customer order for a product.
type Order struct {
	ID         string      `json:"id"`
	TenantID   string      `json:"tenant_id"`
	CustomerID string      `json:"customer_id"`
	ProductID  string      `json:"product_id"`
	Quantity   int         `json:"quantity"`
	Total      int64       `json:"total"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AppointmentStatus enumerates the lifecycle states of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booked service slot for a customer.
type Appointment struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	CustomerID string            `json:"customer_id"`
	ServiceID  string            `json:"service_id"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Status     AppointmentStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// InboundMessage is one raw customer message handed to the dialog core.
type InboundMessage struct {
	TenantID       string `json:"tenant_id"`
	ConversationID string `json:"conversation_id"`
	CustomerID     string `json:"customer_id"`
	Body           string `json:"body"`
	// PayloadID carries the identifier of an explicit structured selection
	// (button or list tap), empty for free text.
	PayloadID string `json:"payload_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Validate performs basic validation on an inbound message.
func (m *InboundMessage) Validate() error {
	if m.ConversationID == "" {
		return ErrEmptyConversationID
	}
	if m.TenantID == "" {
		return ErrEmptyTenantID
	}
	if m.Body == "" && m.PayloadID == "" {
		return ErrEmptyMessage
	}
	if len(m.Body) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// API status values used in response envelopes.
const (
	APIStatusOK    = "ok"
	APIStatusError = "error"
)

// APIResponse is the envelope of every JSON response served by the API.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and
// optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
