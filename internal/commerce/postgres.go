// Package commerce provides persistence backends for commerce entities.
//
// This file implements the PostgreSQL-backed repo.
package commerce

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/tajerhq/tajerbot/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresRepo is the PostgreSQL-backed commerce repo.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo connects to Postgres with the given DSN and runs migrations.
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("commerce database DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open commerce Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		return nil, fmt.Errorf("failed to run commerce migrations: %w", err)
	}
	slog.Debug("Commerce Postgres store ready")
	return &PostgresRepo{db: db}, nil
}

// Close closes the underlying database connection.
func (r *PostgresRepo) Close() error { return r.db.Close() }

func (r *PostgresRepo) GetProduct(ctx context.Context, tenantID, productID string) (*models.Product, error) {
	var p models.Product
	err := r.db.QueryRowContext(ctx, `SELECT id, tenant_id, name, description, category, price, stock, created_at
		FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, productID).
		Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", productID, models.ErrNotFound)
	}
	if err != nil {
		slog.Error("PostgresRepo GetProduct failed", "error", err, "tenantID", tenantID, "productID", productID)
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	return &p, nil
}

func (r *PostgresRepo) ListProducts(ctx context.Context, tenantID, category string, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	query := `SELECT id, tenant_id, name, description, category, price, stock, created_at
		FROM products WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if category != "" {
		query += ` AND category = $2 ORDER BY name LIMIT $3`
		args = append(args, category, limit)
	} else {
		query += ` ORDER BY name LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresRepo ListProducts query failed", "error", err, "tenantID", tenantID)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepo) GetService(ctx context.Context, tenantID, serviceID string) (*models.Service, error) {
	var s models.Service
	err := r.db.QueryRowContext(ctx, `SELECT id, tenant_id, name, description, category, price, duration_min, created_at
		FROM services WHERE tenant_id = $1 AND id = $2`, tenantID, serviceID).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.Category, &s.Price, &s.DurationMin, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("service %s: %w", serviceID, models.ErrNotFound)
	}
	if err != nil {
		slog.Error("PostgresRepo GetService failed", "error", err, "tenantID", tenantID, "serviceID", serviceID)
		return nil, fmt.Errorf("failed to get service %s: %w", serviceID, err)
	}
	return &s, nil
}

func (r *PostgresRepo) ListServices(ctx context.Context, tenantID string, limit int) ([]models.Service, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, tenant_id, name, description, category, price, duration_min, created_at
		FROM services WHERE tenant_id = $1 ORDER BY name LIMIT $2`, tenantID, limit)
	if err != nil {
		slog.Error("PostgresRepo ListServices query failed", "error", err, "tenantID", tenantID)
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.Category, &s.Price, &s.DurationMin, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *PostgresRepo) GetOrder(ctx context.Context, tenantID, orderID string) (*models.Order, error) {
	var o models.Order
	err := r.db.QueryRowContext(ctx, `SELECT id, tenant_id, customer_id, product_id, quantity, total, status, created_at, updated_at
		FROM orders WHERE tenant_id = $1 AND id = $2`, tenantID, orderID).
		Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.ProductID, &o.Quantity, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}
	if err != nil {
		slog.Error("PostgresRepo GetOrder failed", "error", err, "tenantID", tenantID, "orderID", orderID)
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return &o, nil
}

func (r *PostgresRepo) ListOrdersByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, tenant_id, customer_id, product_id, quantity, total, status, created_at, updated_at
		FROM orders WHERE tenant_id = $1 AND customer_id = $2 ORDER BY created_at DESC LIMIT $3`, tenantID, customerID, limit)
	if err != nil {
		slog.Error("PostgresRepo ListOrdersByCustomer query failed", "error", err, "tenantID", tenantID, "customerID", customerID)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.ProductID, &o.Quantity, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *PostgresRepo) CreateOrder(ctx context.Context, order models.Order) error {
	if err := ValidateOrder(order); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders (id, tenant_id, customer_id, product_id, quantity, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, order.TenantID, order.CustomerID, order.ProductID, order.Quantity, order.Total, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		slog.Error("PostgresRepo CreateOrder failed", "error", err, "orderID", order.ID)
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *PostgresRepo) GetAppointment(ctx context.Context, tenantID, appointmentID string) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.QueryRowContext(ctx, `SELECT id, tenant_id, customer_id, service_id, scheduled_at, status, created_at
		FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, appointmentID).
		Scan(&a.ID, &a.TenantID, &a.CustomerID, &a.ServiceID, &a.ScheduledAt, &a.Status, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}
	if err != nil {
		slog.Error("PostgresRepo GetAppointment failed", "error", err, "tenantID", tenantID, "appointmentID", appointmentID)
		return nil, fmt.Errorf("failed to get appointment %s: %w", appointmentID, err)
	}
	return &a, nil
}

func (r *PostgresRepo) ListAppointmentsByCustomer(ctx context.Context, tenantID, customerID string, limit int) ([]models.Appointment, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, tenant_id, customer_id, service_id, scheduled_at, status, created_at
		FROM appointments WHERE tenant_id = $1 AND customer_id = $2 ORDER BY scheduled_at DESC LIMIT $3`, tenantID, customerID, limit)
	if err != nil {
		slog.Error("PostgresRepo ListAppointmentsByCustomer query failed", "error", err, "tenantID", tenantID, "customerID", customerID)
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.TenantID, &a.CustomerID, &a.ServiceID, &a.ScheduledAt, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan appointment row: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *PostgresRepo) CreateAppointment(ctx context.Context, appt models.Appointment) error {
	if err := ValidateAppointment(appt); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO appointments (id, tenant_id, customer_id, service_id, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		appt.ID, appt.TenantID, appt.CustomerID, appt.ServiceID, appt.ScheduledAt, appt.Status, appt.CreatedAt)
	if err != nil {
		slog.Error("PostgresRepo CreateAppointment failed", "error", err, "appointmentID", appt.ID)
		return fmt.Errorf("failed to create appointment %s: %w", appt.ID, err)
	}
	return nil
}
