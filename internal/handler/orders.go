package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bistro-admin/api/internal/database"
	"github.com/bistro-admin/api/internal/enum"
	"github.com/bistro-admin/api/internal/service"
	"github.com/bistro-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, status pgtype.Text) (int64, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// OrderNotifier pushes order events to connected admin clients.
// Satisfied by *ws.Hub; nil disables notifications.
type OrderNotifier interface {
	Broadcast(event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	notifier OrderNotifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, notifier OrderNotifier) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterRoutes registers the public order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
}

// RegisterProtectedRoutes registers the status transition endpoint. The
// router mounts it behind bearer authentication.
func (h *OrderHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName string                   `json:"customerName"`
	TableNumber  int32                    `json:"tableNumber"`
	Items        []createOrderLineRequest `json:"items"`
}

type createOrderLineRequest struct {
	MenuItem string `json:"menuItem"`
	Quantity int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	OrderNumber  string              `json:"orderNumber"`
	CustomerName string              `json:"customerName"`
	TableNumber  int32               `json:"tableNumber"`
	Status       string              `json:"status"`
	TotalAmount  string              `json:"totalAmount"`
	Items        []orderLineResponse `json:"items"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// orderLineResponse carries the immutable snapshot (quantity, price) plus the
// current catalog detail resolved at read time. MenuItem is null when the
// catalog entry has been deleted.
type orderLineResponse struct {
	MenuItem *menuItemDetail `json:"menuItem"`
	Quantity int32           `json:"quantity"`
	Price    string          `json:"price"`
}

type menuItemDetail struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Price    string    `json:"price"`
}

func toOrderResponse(o database.Order, items []database.ListOrderItemsByOrderRow) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TableNumber:  o.TableNumber,
		Status:       o.Status,
		TotalAmount:  numericToString(o.TotalAmount),
		Items:        make([]orderLineResponse, len(items)),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for i, item := range items {
		line := orderLineResponse{
			Quantity: item.Quantity,
			Price:    numericToString(item.Price),
		}
		if item.Name.Valid {
			line.MenuItem = &menuItemDetail{
				ID:       item.MenuItemID,
				Name:     item.Name.String,
				Category: item.Category.String,
				Price:    numericToString(item.CurrentPrice),
			}
		}
		resp.Items[i] = line
	}
	return resp
}

func createResultToResponse(result *service.CreateOrderResult) orderResponse {
	o := result.Order
	resp := orderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TableNumber:  o.TableNumber,
		Status:       o.Status,
		TotalAmount:  numericToString(o.TotalAmount),
		Items:        make([]orderLineResponse, len(result.Lines)),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for i, line := range result.Lines {
		resp.Items[i] = orderLineResponse{
			MenuItem: &menuItemDetail{
				ID:       line.Item.MenuItemID,
				Name:     line.Name,
				Category: line.Category,
				Price:    numericToString(line.Item.Price),
			},
			Quantity: line.Item.Quantity,
			Price:    numericToString(line.Item.Price),
		}
	}
	return resp
}

// --- Handlers ---

// List handles GET /orders with pagination and an optional status filter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	status := pgtype.Text{}
	if s := r.URL.Query().Get("status"); s != "" {
		status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		respondServerError(w, err)
		return
	}

	total, err := h.store.CountOrders(r.Context(), status)
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		respondServerError(w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			respondServerError(w, err)
			return
		}
		resp[i] = toOrderResponse(o, items)
	}

	count := len(resp)
	pages := int(math.Ceil(float64(total) / float64(limit)))
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Count:   &count,
		Total:   &total,
		Page:    &page,
		Pages:   &pages,
		Data:    resp,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w, "Order not found")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		respondServerError(w, err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		respondServerError(w, err)
		return
	}

	respondData(w, http.StatusOK, toOrderResponse(order, items))
}

// Create handles POST /orders. Validation and pricing run in the service;
// the whole order is created atomically or not at all.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	items := make([]service.CreateOrderLineRequest, len(req.Items))
	for i, line := range req.Items {
		items[i] = service.CreateOrderLineRequest{
			MenuItemID: line.MenuItem,
			Quantity:   line.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		Items:        items,
	})
	if err != nil {
		var notFound *service.MenuItemNotFoundError
		if errors.As(err, &notFound) {
			respondNotFound(w, notFound.Error())
			return
		}
		var unavailable *service.ItemUnavailableError
		if errors.As(err, &unavailable) {
			respondBadRequest(w, unavailable.Error())
			return
		}
		if isOrderValidationError(err) {
			respondBadRequest(w, err.Error())
			return
		}
		log.Printf("ERROR: create order: %v", err)
		respondServerError(w, err)
		return
	}

	resp := createResultToResponse(result)
	h.notify("order.created", resp)
	respondMessage(w, http.StatusCreated, "Order created successfully", resp)
}

// UpdateStatus handles PATCH /orders/{id}/status. Any status in the
// enumeration may be set from any other; only enum membership is enforced.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w, "Order not found")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	if req.Status == "" {
		respondBadRequest(w, "Status is required")
		return
	}

	if !enum.IsValidOrderStatus(req.Status) {
		respondBadRequest(w, fmt.Sprintf("%s is not a valid status", req.Status))
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:     id,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Order not found")
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		respondServerError(w, err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		respondServerError(w, err)
		return
	}

	resp := toOrderResponse(order, items)
	h.notify("order.status_updated", resp)
	respondMessage(w, http.StatusOK, "Order status updated successfully", resp)
}

// --- Helpers ---

func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrCustomerName) ||
		errors.Is(err, service.ErrTableNumber) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID)
}

func (h *OrderHandler) notify(eventType string, resp orderResponse) {
	if h.notifier == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.notifier.Broadcast(ws.Event{Type: eventType, Payload: payload})
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
