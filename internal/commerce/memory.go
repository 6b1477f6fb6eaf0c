// Package commerce provides persistence backends for commerce entities.
//
// This file implements an in-memory repo used in tests and demos.
package commerce

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tajerhq/tajerbot/internal/models"
)

// InMemoryRepo is a concurrency-safe in-memory Repo implementation.
type InMemoryRepo struct {
	mu           sync.RWMutex
	products     map[string]models.Product
	services     map[string]models.Service
	orders       map[string]models.Order
	appointments map[string]models.Appointment
}

// NewInMemoryRepo creates an empty in-memory commerce repo.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		products:     make(map[string]models.Product),
		services:     make(map[string]models.Service),
		orders:       make(map[string]models.Order),
		appointments: make(map[string]models.Appointment),
	}
}

// AddProduct seeds a product (test/demo helper).
func (r *InMemoryRepo) AddProduct(p models.Product) {
	r.mu.Lock()
	r.products[p.TenantID+"|"+p.ID] = p
	r.mu.Unlock()
}

// AddService seeds a service (test/demo helper).
func (r *InMemoryRepo) AddService(s models.Service) {
	r.mu.Lock()
	r.services[s.TenantID+"|"+s.ID] = s
	r.mu.Unlock()
}

// AddOrder seeds an order (test/demo helper).
func (r *InMemoryRepo) AddOrder(o models.Order) {
	r.mu.Lock()
	r.orders[o.TenantID+"|"+o.ID] = o
	r.mu.Unlock()
}

// AddAppointment seeds an appointment (test/demo helper).
func (r *InMemoryRepo) AddAppointment(a models.Appointment) {
	r.mu.Lock()
	r.appointments[a.TenantID+"|"+a.ID] = a
	r.mu.Unlock()
}

func (r *InMemoryRepo) GetProduct(ctx context.Context, tenantID, productID string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[tenantID+"|"+productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, models.ErrNotFound)
	}
	out := p
	return &out, nil
}

func (r *InMemoryRepo) ListProducts(ctx context.Context, tenantID, category string, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Product
	for _, p := range r.products {
		if p.TenantID != tenantID {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepo) GetService(ctx context.Context, tenantID, serviceID string) (*models.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[tenantID+"|"+serviceID]
	if !ok {
		return nil, fmt.Errorf("service %s: %w", serviceID, models.ErrNotFound)
	}
	out := s
	return &out, nil
}

func (r *InMemoryRepo) ListServices(ctx context.Context, tenantID string, limit int) ([]models.Service, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Service
	for _, s := range r.services {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepo) GetOrder(ctx context.Context, tenantID, orderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[tenantID+"|"+orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}
	out := o
	return &out, nil
}

func (r *InMemoryRepo) ListOrdersByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.TenantID == tenantID && o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepo) CreateOrder(ctx context.Context, order models.Order) error {
	if err := ValidateOrder(order); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.TenantID+"|"+order.ID] = order
	return nil
}

func (r *InMemoryRepo) GetAppointment(ctx context.Context, tenantID, appointmentID string) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[tenantID+"|"+appointmentID]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}
	out := a
	return &out, nil
}

func (r *InMemoryRepo) ListAppointmentsByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]models.Appointment, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Appointment
	for _, a := range r.appointments {
		if a.TenantID == tenantID && a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepo) CreateAppointment(ctx context.Context, appt models.Appointment) error {
	if err := ValidateAppointment(appt); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[appt.TenantID+"|"+appt.ID] = appt
	return nil
}
