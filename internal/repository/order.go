package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/wardrobe-api/internal/model"
)

// StockConflictError reports a reservation that lost to the live stock count.
// The conditional decrement either applies in full or not at all, so observing
// this error means the ledger entry was left untouched.
type StockConflictError struct {
	ProductID uuid.UUID
	Size      string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %s", e.ProductID, e.Size)
}

type OrderRepository interface {
	// PlaceOrder reserves stock for every item and commits the order as one
	// transaction. A *StockConflictError aborts the whole call with no
	// decrement left applied.
	PlaceOrder(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) PlaceOrder(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Reserve stock line by line. The decrement is conditional on the live
	// quantity, so two concurrent orders for the last unit cannot both pass.
	for i := range order.Items {
		item := &order.Items[i]
		ct, err := tx.Exec(ctx,
			`UPDATE product_sizes SET quantity = quantity - $3
			 WHERE product_id = $1 AND size = $2 AND quantity >= $3`,
			item.ProductID, item.Size, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return &StockConflictError{ProductID: item.ProductID, Size: item.Size}
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, total_amount,
							 street, city, postal_code,
							 payment_method, payment_ref, payment_status,
							 created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.Status, order.TotalAmount,
		order.Shipping.Street, order.Shipping.City, order.Shipping.PostalCode,
		order.Payment.Method, order.Payment.TransactionRef, order.Payment.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, size, quantity, price, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			order.Items[i].ID, order.ID, order.Items[i].ProductID,
			order.Items[i].Size, order.Items[i].Quantity, order.Items[i].Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, status, total_amount, street, city, postal_code,
				payment_method, payment_ref, payment_status, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
		&order.Shipping.Street, &order.Shipping.City, &order.Shipping.PostalCode,
		&order.Payment.Method, &order.Payment.TransactionRef, &order.Payment.Status,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, status, total_amount, street, city, postal_code,
				payment_method, payment_ref, payment_status, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		o.UserID = userID
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalAmount,
			&o.Shipping.Street, &o.Shipping.City, &o.Shipping.PostalCode,
			&o.Payment.Method, &o.Payment.TransactionRef, &o.Payment.Status,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) loadItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, size, quantity, price FROM order_items
		 WHERE order_id = $1 ORDER BY created_at`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Size, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = orderID
		items = append(items, item)
	}
	return items, nil
}
