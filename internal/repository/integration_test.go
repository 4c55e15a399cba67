package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/wardrobe-api/internal/model"
)

func createTestUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name: "Test User", Email: email, Password: "hashed",
		Role: model.RoleClient, Active: true,
	}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), user))
	return user
}

func createTestProduct(t *testing.T, name string, price float64, sizes ...model.SizeStock) *model.Product {
	t.Helper()
	product := &model.Product{
		Name: name, Description: "test product", Category: "shirts",
		Price: decimal.NewFromFloat(price), Sizes: sizes,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), product))
	return product
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "test@example.com")
	assert.NotEqual(t, uuid.Nil, user.ID)

	// Lookup is case-insensitive.
	found, err := repo.GetByEmail(ctx, "TEST@Example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.True(t, found.Active)
}

func TestUserRepo_SetActive(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "toggle@example.com")
	require.NoError(t, repo.SetActive(ctx, user.ID, false))

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products")

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	product := createTestProduct(t, "Tee", 29.99,
		model.SizeStock{Size: "S", Quantity: 5},
		model.SizeStock{Size: "M", Quantity: 10},
	)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tee", found.Name)
	require.Len(t, found.Sizes, 2)
	assert.Equal(t, model.SizeStock{Size: "S", Quantity: 5}, found.Sizes[0])
	assert.Equal(t, model.SizeStock{Size: "M", Quantity: 10}, found.Sizes[1])

	found.Name = "Updated Tee"
	found.Sizes = []model.SizeStock{{Size: "L", Quantity: 3}}
	require.NoError(t, repo.Update(ctx, found))

	found, _ = repo.GetByID(ctx, product.ID)
	assert.Equal(t, "Updated Tee", found.Name)
	require.Len(t, found.Sizes, 1)
	assert.Equal(t, "L", found.Sizes[0].Size)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, err = repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func placeTestOrder(userID uuid.UUID, items ...model.OrderItem) *model.Order {
	var total decimal.Decimal
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &model.Order{
		UserID: userID, Items: items, TotalAmount: total,
		Status:   model.OrderStatusPending,
		Shipping: model.ShippingAddress{Street: "1 Main St", City: "Springfield", PostalCode: "12345"},
		Payment:  model.PaymentRecord{Method: "card", TransactionRef: "txn_test", Status: model.PaymentStatusCompleted},
	}
}

func TestOrderRepo_PlaceOrder(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	orderRepo := NewOrderRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "order@example.com")
	product := createTestProduct(t, "Tee", 25, model.SizeStock{Size: "M", Quantity: 3})

	order := placeTestOrder(user.ID, model.OrderItem{
		ProductID: product.ID, Size: "M", Quantity: 3, Price: product.Price,
	})
	require.NoError(t, orderRepo.PlaceOrder(ctx, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.OrderStatusPending, found.Status)
	assert.Equal(t, "txn_test", found.Payment.TransactionRef)
	require.Len(t, found.Items, 1)
	assert.True(t, found.Items[0].Price.Equal(product.Price))

	after, _ := productRepo.GetByID(ctx, product.ID)
	qty, ok := after.SizeQuantity("M")
	require.True(t, ok)
	assert.Equal(t, 0, qty)
}

func TestOrderRepo_PlaceOrder_InsufficientStock(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	orderRepo := NewOrderRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "short@example.com")
	product := createTestProduct(t, "Tee", 25, model.SizeStock{Size: "M", Quantity: 2})

	order := placeTestOrder(user.ID, model.OrderItem{
		ProductID: product.ID, Size: "M", Quantity: 5, Price: product.Price,
	})
	err := orderRepo.PlaceOrder(ctx, order)

	var conflict *StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, product.ID, conflict.ProductID)
	assert.Equal(t, "M", conflict.Size)

	after, _ := productRepo.GetByID(ctx, product.ID)
	qty, _ := after.SizeQuantity("M")
	assert.Equal(t, 2, qty, "failed reservation must leave stock untouched")
}

func TestOrderRepo_PlaceOrder_MultiLineRollback(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	orderRepo := NewOrderRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "rollback@example.com")
	shirt := createTestProduct(t, "Shirt", 20, model.SizeStock{Size: "S", Quantity: 5})
	jeans := createTestProduct(t, "Jeans", 40, model.SizeStock{Size: "32", Quantity: 1})

	order := placeTestOrder(user.ID,
		model.OrderItem{ProductID: shirt.ID, Size: "S", Quantity: 2, Price: shirt.Price},
		model.OrderItem{ProductID: jeans.ID, Size: "32", Quantity: 3, Price: jeans.Price},
	)
	err := orderRepo.PlaceOrder(ctx, order)

	var conflict *StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, jeans.ID, conflict.ProductID)

	// The shirt decrement from line 1 must have been rolled back with the tx.
	after, _ := productRepo.GetByID(ctx, shirt.ID)
	qty, _ := after.SizeQuantity("S")
	assert.Equal(t, 5, qty)

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, found, "no order record may survive a failed reservation")
}

func TestOrderRepo_PlaceOrder_ConcurrentLastUnits(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	orderRepo := NewOrderRepository(testPool)
	productRepo := NewProductRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "race@example.com")
	product := createTestProduct(t, "Tee", 25, model.SizeStock{Size: "M", Quantity: 1})

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := placeTestOrder(user.ID, model.OrderItem{
				ProductID: product.ID, Size: "M", Quantity: 1, Price: product.Price,
			})
			errs <- orderRepo.PlaceOrder(ctx, order)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		var conflict *StockConflictError
		require.ErrorAs(t, err, &conflict)
		conflicts++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	after, _ := productRepo.GetByID(ctx, product.ID)
	qty, _ := after.SizeQuantity("M")
	assert.Equal(t, 0, qty, "stock never goes negative")
}

func TestOrderRepo_ListByUserID(t *testing.T) {
	cleanupTable(t, "order_items", "orders", "product_sizes", "products", "users")

	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	user := createTestUser(t, "list@example.com")
	other := createTestUser(t, "other@example.com")
	product := createTestProduct(t, "Tee", 25, model.SizeStock{Size: "M", Quantity: 10})

	for _, uid := range []uuid.UUID{user.ID, user.ID, other.ID} {
		order := placeTestOrder(uid, model.OrderItem{
			ProductID: product.ID, Size: "M", Quantity: 1, Price: product.Price,
		})
		require.NoError(t, orderRepo.PlaceOrder(ctx, order))
	}

	orders, err := orderRepo.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
