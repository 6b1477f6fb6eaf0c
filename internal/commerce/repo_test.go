package commerce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tajerhq/tajerbot/internal/models"
)

func TestInMemoryRepoIsTenantScoped(t *testing.T) {
	r := NewInMemoryRepo()
	r.AddProduct(models.Product{ID: "p1", TenantID: "t1", Name: "Argan Oil", Price: 12000, Stock: 3})
	r.AddProduct(models.Product{ID: "p1", TenantID: "t2", Name: "Other Shop Oil", Price: 9000, Stock: 1})

	p, err := r.GetProduct(context.Background(), "t1", "p1")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if p.Name != "Argan Oil" {
		t.Errorf("got %q, want the t1 product", p.Name)
	}

	list, err := r.ListProducts(context.Background(), "t1", "", 0)
	if err != nil || len(list) != 1 {
		t.Errorf("ListProducts(t1) = %d items, err %v; want 1", len(list), err)
	}

	if _, err := r.GetProduct(context.Background(), "t3", "p1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown tenant lookup error = %v, want ErrNotFound", err)
	}
}

func TestListProductsCategoryFilterAndLimit(t *testing.T) {
	r := NewInMemoryRepo()
	for _, p := range []models.Product{
		{ID: "p1", TenantID: "t1", Name: "Argan Oil", Category: "cosmetics"},
		{ID: "p2", TenantID: "t1", Name: "Rose Water", Category: "cosmetics"},
		{ID: "p3", TenantID: "t1", Name: "Leather Bag", Category: "accessories"},
	} {
		r.AddProduct(p)
	}

	cosmetics, err := r.ListProducts(context.Background(), "t1", "cosmetics", 0)
	if err != nil || len(cosmetics) != 2 {
		t.Fatalf("cosmetics = %d items, err %v; want 2", len(cosmetics), err)
	}
	// Alphabetical ordering keeps menus stable across turns.
	if cosmetics[0].Name != "Argan Oil" {
		t.Errorf("first item = %q, want Argan Oil", cosmetics[0].Name)
	}

	limited, err := r.ListProducts(context.Background(), "t1", "", 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("limited list = %d items, err %v; want 2", len(limited), err)
	}
}

func TestCreateOrderValidates(t *testing.T) {
	r := NewInMemoryRepo()

	err := r.CreateOrder(context.Background(), models.Order{ID: "o1", TenantID: "t1"})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("incomplete order error = %v, want ErrValidation", err)
	}

	order := models.Order{
		ID: "o1", TenantID: "t1", CustomerID: "c1", ProductID: "p1",
		Quantity: 2, Total: 24000, Status: models.OrderStatusPending,
		CreatedAt: time.Now(),
	}
	if err := r.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	got, err := r.GetOrder(context.Background(), "t1", "o1")
	if err != nil || got.Total != 24000 {
		t.Errorf("GetOrder = %+v, err %v", got, err)
	}
}

func TestListOrdersByCustomerMostRecentFirst(t *testing.T) {
	r := NewInMemoryRepo()
	base := time.Now()
	r.AddOrder(models.Order{ID: "old", TenantID: "t1", CustomerID: "c1", ProductID: "p1", Quantity: 1, CreatedAt: base.Add(-time.Hour)})
	r.AddOrder(models.Order{ID: "new", TenantID: "t1", CustomerID: "c1", ProductID: "p1", Quantity: 1, CreatedAt: base})
	r.AddOrder(models.Order{ID: "other", TenantID: "t1", CustomerID: "c2", ProductID: "p1", Quantity: 1, CreatedAt: base})

	orders, err := r.ListOrdersByCustomer(context.Background(), "t1", "c1", 0)
	if err != nil {
		t.Fatalf("ListOrdersByCustomer failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "new" {
		t.Errorf("orders = %+v, want [new old]", orders)
	}
}

func TestValidateAppointment(t *testing.T) {
	appt := models.Appointment{
		ID: "a1", TenantID: "t1", CustomerID: "c1", ServiceID: "s1",
		ScheduledAt: time.Now().Add(24 * time.Hour),
	}
	if err := ValidateAppointment(appt); err != nil {
		t.Errorf("valid appointment rejected: %v", err)
	}

	appt.ScheduledAt = time.Time{}
	if err := ValidateAppointment(appt); !errors.Is(err, models.ErrValidation) {
		t.Errorf("zero schedule error = %v, want ErrValidation", err)
	}
}
