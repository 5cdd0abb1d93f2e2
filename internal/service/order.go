package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bistro-admin/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("order must contain at least one item")
	ErrCustomerName      = errors.New("customer name is required")
	ErrTableNumber       = errors.New("table number must be at least 1")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidMenuItemID = errors.New("invalid menu item id")
)

// MenuItemNotFoundError names the missing menu item so the handler can return
// a 404 that identifies the offending line.
type MenuItemNotFoundError struct {
	MenuItemID string
}

func (e *MenuItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %s not found", e.MenuItemID)
}

// ItemUnavailableError names the unavailable item for the 400 response.
type ItemUnavailableError struct {
	Name string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("%s is currently unavailable", e.Name)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderSequence(ctx context.Context, prefix string) (int32, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerName string
	TableNumber  int32
	Items        []CreateOrderLineRequest
}

// CreateOrderLineRequest is a single {menu item, quantity} line.
type CreateOrderLineRequest struct {
	MenuItemID string
	Quantity   int32
}

// CreateOrderResult is the created order with its lines resolved to catalog
// detail for the response. The resolution is read-time convenience, not
// stored state.
type CreateOrderResult struct {
	Order database.Order
	Lines []OrderLineResult
}

// OrderLineResult pairs a persisted line with the catalog detail captured
// while validating it.
type OrderLineResult struct {
	Item     database.OrderItem
	Name     string
	Category string
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// preparedLine holds a validated line before insertion.
type preparedLine struct {
	menuItemID uuid.UUID
	quantity   int32
	price      decimal.Decimal
	name       string
	category   string
}

// CreateOrder validates every line against the catalog, snapshots prices,
// and creates the order atomically. All-or-nothing: any line that fails
// resolution or availability aborts the whole transaction. Retries up to
// maxOrderNumberRetries times on order_number unique violations (two
// concurrent transactions can read the same per-day MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, ErrCustomerName
	}
	if req.TableNumber < 1 {
		return nil, ErrTableNumber
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(line.MenuItemID); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Generate order number: ORD-<YYYYMMDD>-<NNNN>, sequence per UTC day ---
	dateStr := s.now().UTC().Format("20060102")
	seq, err := store.GetNextOrderSequence(ctx, fmt.Sprintf("ORD-%s-%%", dateStr))
	if err != nil {
		return nil, fmt.Errorf("get next order sequence: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD-%s-%04d", dateStr, seq)

	// --- Resolve lines: validate existence + availability, snapshot prices ---
	totalAmount := decimal.Zero
	lines := make([]preparedLine, 0, len(req.Items))

	for _, line := range req.Items {
		menuItemID, err := uuid.Parse(line.MenuItemID)
		if err != nil {
			return nil, ErrInvalidMenuItemID
		}

		item, err := store.GetMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &MenuItemNotFoundError{MenuItemID: line.MenuItemID}
			}
			return nil, fmt.Errorf("get menu item: %w", err)
		}

		if !item.IsAvailable {
			return nil, &ItemUnavailableError{Name: item.Name}
		}

		price := numericToDecimal(item.Price)
		totalAmount = totalAmount.Add(price.Mul(decimal.NewFromInt32(line.Quantity)))

		lines = append(lines, preparedLine{
			menuItemID: menuItemID,
			quantity:   line.Quantity,
			price:      price,
			name:       item.Name,
			category:   item.Category,
		})
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:  orderNumber,
		CustomerName: strings.TrimSpace(req.CustomerName),
		TableNumber:  req.TableNumber,
		TotalAmount:  decimalToNumeric(totalAmount),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert lines ---
	lineResults := make([]OrderLineResult, 0, len(lines))
	for _, pl := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: pl.menuItemID,
			Quantity:   pl.quantity,
			Price:      decimalToNumeric(pl.price),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		lineResults = append(lineResults, OrderLineResult{
			Item:     item,
			Name:     pl.name,
			Category: pl.category,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order: order,
		Lines: lineResults,
	}, nil
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
