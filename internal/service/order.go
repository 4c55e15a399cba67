package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/threadline/wardrobe-api/internal/dto"
	"github.com/threadline/wardrobe-api/internal/model"
	"github.com/threadline/wardrobe-api/internal/repository"
)

var (
	ErrEmptyOrder        = errors.New("order has no items")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrSizeNotFound      = errors.New("size not available for product")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

// InsufficientStockError is returned when a line item asks for more units
// than the live ledger entry holds. No decrement from the same order survives.
type InsufficientStockError struct {
	ProductName string
	Size        string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q size %s", e.ProductName, e.Size)
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	amqpCh      *amqp.Channel
	log         *slog.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, amqpCh *amqp.Channel, log *slog.Logger) *OrderService {
	return &OrderService{orderRepo: orderRepo, productRepo: productRepo, amqpCh: amqpCh, log: log}
}

// PlaceOrder validates the requested lines against the catalog, then runs the
// reserve-then-commit sequence: every per-size decrement and the order record
// commit in one transaction, so a failure on any line leaves inventory as it
// was before the call.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req dto.PlaceOrderRequest) (*dto.OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	products := make(map[uuid.UUID]*model.Product)
	var total decimal.Decimal
	items := make([]model.OrderItem, 0, len(req.Items))

	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, ErrInvalidQuantity)
		}

		product, ok := products[line.ProductID]
		if !ok {
			var err error
			product, err = s.productRepo.GetByID(ctx, line.ProductID)
			if err != nil {
				return nil, fmt.Errorf("get product: %w", err)
			}
			if product == nil {
				return nil, fmt.Errorf("product %s: %w", line.ProductID, ErrProductNotFound)
			}
			products[line.ProductID] = product
		}

		if _, ok := product.SizeQuantity(line.Size); !ok {
			return nil, fmt.Errorf("product %q size %s: %w", product.Name, line.Size, ErrSizeNotFound)
		}

		// Price snapshot: the catalog price read now is the price the line
		// keeps forever.
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, model.OrderItem{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			Price:     product.Price,
		})
	}

	order := &model.Order{
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		Status:      model.OrderStatusPending,
		Shipping: model.ShippingAddress{
			Street:     req.Shipping.Street,
			City:       req.Shipping.City,
			PostalCode: req.Shipping.PostalCode,
		},
		// Simulated capture: no gateway is contacted, the payment is recorded
		// as already completed.
		Payment: model.PaymentRecord{
			Method:         paymentMethodOrDefault(req.PaymentMethod),
			TransactionRef: newTransactionRef(),
			Status:         model.PaymentStatusCompleted,
		},
	}

	if err := s.orderRepo.PlaceOrder(ctx, order); err != nil {
		var conflict *repository.StockConflictError
		if errors.As(err, &conflict) {
			if product, ok := products[conflict.ProductID]; ok {
				return nil, &InsufficientStockError{ProductName: product.Name, Size: conflict.Size}
			}
		}
		s.log.Error("place order failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("place order: %w", err)
	}

	// Hand the committed order to the fulfillment pipeline. Best effort: the
	// order stands whether or not the broker is reachable.
	if s.amqpCh != nil {
		msg, _ := json.Marshal(model.OrderMessage{OrderID: order.ID, UserID: userID})
		err := s.amqpCh.PublishWithContext(ctx, "", "orders", false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent,
		})
		if err != nil {
			s.log.Error("publish order message", "order_id", order.ID, "error", err)
		}
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) (*dto.OrderListResponse, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var items []dto.OrderResponse
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return &dto.OrderListResponse{Orders: items, Total: len(items)}, nil
}

func paymentMethodOrDefault(method string) string {
	if method == "" {
		return "card"
	}
	return method
}

func newTransactionRef() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "txn_" + hex.EncodeToString(b)
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	var items []dto.OrderItemResponse
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return dto.OrderResponse{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       items,
		Shipping: dto.ShippingAddressResponse{
			Street:     order.Shipping.Street,
			City:       order.Shipping.City,
			PostalCode: order.Shipping.PostalCode,
		},
		Payment: dto.PaymentResponse{
			Method:         order.Payment.Method,
			TransactionRef: order.Payment.TransactionRef,
			Status:         order.Payment.Status,
		},
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
