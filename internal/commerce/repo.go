// Package commerce provides the tenant-scoped commerce persistence collaborator
// consumed by the dialog router's decision functions.
//
// Reads are synchronous lookups by tenant-scoped id; writes cover order and
// appointment creation. A missing record is reported as models.ErrNotFound and
// a bad write as models.ErrValidation; decision functions turn both into plain
// text actions, never into failures that reach the router.
package commerce

import (
	"context"
	"fmt"

	"github.com/tajerhq/tajerbot/internal/models"
)

// ListLimit caps catalog listings shown in a single menu.
const ListLimit = models.MaxMenuItems

// Repo is the commerce persistence contract.
type Repo interface {
	GetProduct(ctx context.Context, tenantID, productID string) (*models.Product, error)
	ListProducts(ctx context.Context, tenantID, category string, limit int) ([]models.Product, error)

	GetService(ctx context.Context, tenantID, serviceID string) (*models.Service, error)
	ListServices(ctx context.Context, tenantID string, limit int) ([]models.Service, error)

	GetOrder(ctx context.Context, tenantID, orderID string) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]models.Order, error)
	CreateOrder(ctx context.Context, order models.Order) error

	GetAppointment(ctx context.Context, tenantID, appointmentID string) (*models.Appointment, error)
	ListAppointmentsByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, appt models.Appointment) error
}

// ValidateOrder checks an order before insertion.
func ValidateOrder(order models.Order) error {
	if order.TenantID == "" || order.CustomerID == "" || order.ProductID == "" {
		return fmt.Errorf("%w: order requires tenant, customer and product ids", models.ErrValidation)
	}
	if order.Quantity < 1 {
		return fmt.Errorf("%w: order quantity must be at least 1", models.ErrValidation)
	}
	return nil
}

// ValidateAppointment checks an appointment before insertion.
func ValidateAppointment(appt models.Appointment) error {
	if appt.TenantID == "" || appt.CustomerID == "" || appt.ServiceID == "" {
		return fmt.Errorf("%w: appointment requires tenant, customer and service ids", models.ErrValidation)
	}
	if appt.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: appointment requires a scheduled time", models.ErrValidation)
	}
	return nil
}
