package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bistro-admin/api/internal/database"
	"github.com/bistro-admin/api/internal/handler"
	"github.com/bistro-admin/api/internal/service"
	"github.com/bistro-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock service ---

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

// --- Mock store ---

type mockOrderStore struct {
	orders map[uuid.UUID]database.Order
	lines  map[uuid.UUID][]database.ListOrderItemsByOrderRow
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders: make(map[uuid.UUID]database.Order),
		lines:  make(map[uuid.UUID][]database.ListOrderItemsByOrderRow),
	}
}

func (m *mockOrderStore) addOrder(orderNumber, customer, status, total string, table int32, createdAt time.Time) database.Order {
	o := database.Order{
		ID:           uuid.New(),
		OrderNumber:  orderNumber,
		CustomerName: customer,
		TableNumber:  table,
		Status:       status,
		TotalAmount:  testNumeric(total),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	m.orders[o.ID] = o
	return o
}

func (m *mockOrderStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	var all []database.Order
	for _, o := range m.orders {
		if arg.Status.Valid && o.Status != arg.Status.String {
			continue
		}
		all = append(all, o)
	}
	// Newest first, like the real query
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].CreatedAt.After(all[i].CreatedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	start := int(arg.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *mockOrderStore) CountOrders(_ context.Context, status pgtype.Text) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if status.Valid && o.Status != status.String {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockOrderStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
	return m.lines[orderID], nil
}

func (m *mockOrderStore) UpdateOrderStatus(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.UpdatedAt = time.Now()
	m.orders[arg.ID] = o
	return o, nil
}

// --- Mock notifier ---

type mockNotifier struct {
	events []ws.Event
}

func (m *mockNotifier) Broadcast(event ws.Event) {
	m.events = append(m.events, event)
}

// --- Helpers ---

func setupOrderRouter(svc handler.OrderServicer, store handler.OrderStore, notifier handler.OrderNotifier) *chi.Mux {
	h := handler.NewOrderHandler(svc, store, notifier)
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterProtectedRoutes(r)
	})
	return r
}

// --- List tests ---

func TestOrderList_Empty(t *testing.T) {
	store := newMockOrderStore()
	router := setupOrderRouter(nil, store, nil)

	rr := doRequest(t, router, "GET", "/orders", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeEnvelope(t, rr)
	if resp["count"] != float64(0) {
		t.Errorf("count: got %v, want 0", resp["count"])
	}
	if resp["total"] != float64(0) {
		t.Errorf("total: got %v, want 0", resp["total"])
	}
	if resp["pages"] != float64(0) {
		t.Errorf("pages: got %v, want 0", resp["pages"])
	}
}

func TestOrderList_Pagination(t *testing.T) {
	store := newMockOrderStore()
	base := time.Now()
	for i := 0; i < 25; i++ {
		store.addOrder("ORD-20260901-0001", "Customer", "Pending", "100", 1, base.Add(time.Duration(i)*time.Minute))
	}

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "GET", "/orders?page=3&limit=10", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeEnvelope(t, rr)
	if resp["count"] != float64(5) {
		t.Errorf("count: got %v, want 5", resp["count"])
	}
	if resp["total"] != float64(25) {
		t.Errorf("total: got %v, want 25", resp["total"])
	}
	if resp["page"] != float64(3) {
		t.Errorf("page: got %v, want 3", resp["page"])
	}
	if resp["pages"] != float64(3) {
		t.Errorf("pages: got %v, want 3", resp["pages"])
	}
}

func TestOrderList_StatusFilter(t *testing.T) {
	store := newMockOrderStore()
	now := time.Now()
	store.addOrder("ORD-20260901-0001", "A", "Pending", "100", 1, now)
	store.addOrder("ORD-20260901-0002", "B", "Delivered", "200", 2, now)

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "GET", "/orders?status=Delivered", nil)

	data := envelopeList(t, rr)
	if len(data) != 1 {
		t.Fatalf("expected 1 order, got %d", len(data))
	}
	order := data[0].(map[string]interface{})
	if order["status"] != "Delivered" {
		t.Errorf("status: got %v, want 'Delivered'", order["status"])
	}
}

func TestOrderList_UnknownStatusReturnsEmpty(t *testing.T) {
	store := newMockOrderStore()
	store.addOrder("ORD-20260901-0001", "A", "Pending", "100", 1, time.Now())

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "GET", "/orders?status=Refunded", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if len(envelopeList(t, rr)) != 0 {
		t.Error("unknown status should match nothing")
	}
}

// --- Get tests ---

func TestOrderGet_Valid(t *testing.T) {
	store := newMockOrderStore()
	now := time.Now()
	order := store.addOrder("ORD-20260901-0001", "Priya Iyer", "Pending", "770", 3, now)
	itemID := uuid.New()
	store.lines[order.ID] = []database.ListOrderItemsByOrderRow{
		{
			ID:           1,
			OrderID:      order.ID,
			MenuItemID:   itemID,
			Quantity:     2,
			Price:        testNumeric("350"),
			Name:         pgtype.Text{String: "Chicken Biryani", Valid: true},
			Category:     pgtype.Text{String: "Main Course", Valid: true},
			CurrentPrice: testNumeric("380"),
		},
	}

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	data := envelopeData(t, rr)
	if data["orderNumber"] != "ORD-20260901-0001" {
		t.Errorf("orderNumber: got %v", data["orderNumber"])
	}
	if data["customerName"] != "Priya Iyer" {
		t.Errorf("customerName: got %v", data["customerName"])
	}
	if data["totalAmount"] != "770.00" {
		t.Errorf("totalAmount: got %v, want '770.00'", data["totalAmount"])
	}

	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	line := items[0].(map[string]interface{})
	// Snapshot price, not the current catalog price
	if line["price"] != "350.00" {
		t.Errorf("line price: got %v, want '350.00'", line["price"])
	}
	menuItem := line["menuItem"].(map[string]interface{})
	if menuItem["name"] != "Chicken Biryani" {
		t.Errorf("menuItem name: got %v", menuItem["name"])
	}
	if menuItem["price"] != "380.00" {
		t.Errorf("menuItem price: got %v, want current '380.00'", menuItem["price"])
	}
}

func TestOrderGet_DeletedMenuItemIsNull(t *testing.T) {
	store := newMockOrderStore()
	order := store.addOrder("ORD-20260901-0001", "Amit", "Delivered", "120", 2, time.Now())
	store.lines[order.ID] = []database.ListOrderItemsByOrderRow{
		{
			ID:         1,
			OrderID:    order.ID,
			MenuItemID: uuid.New(),
			Quantity:   1,
			Price:      testNumeric("120"),
			// Name/Category invalid: the catalog row is gone
		},
	}

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	data := envelopeData(t, rr)
	items := data["items"].([]interface{})
	line := items[0].(map[string]interface{})
	if line["menuItem"] != nil {
		t.Errorf("menuItem: got %v, want null for deleted item", line["menuItem"])
	}
	if line["price"] != "120.00" {
		t.Errorf("snapshot price must survive deletion; got %v", line["price"])
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	store := newMockOrderStore()
	router := setupOrderRouter(nil, store, nil)

	rr := doRequest(t, router, "GET", "/orders/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Create tests ---

func validCreateResult() *service.CreateOrderResult {
	orderID := uuid.New()
	itemID := uuid.New()
	now := time.Now()
	return &service.CreateOrderResult{
		Order: database.Order{
			ID:           orderID,
			OrderNumber:  "ORD-20260901-0001",
			CustomerName: "Rahul",
			TableNumber:  5,
			Status:       "Pending",
			TotalAmount:  testNumeric("240"),
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		Lines: []service.OrderLineResult{
			{
				Item: database.OrderItem{
					ID:         1,
					OrderID:    orderID,
					MenuItemID: itemID,
					Quantity:   2,
					Price:      testNumeric("120"),
				},
				Name:     "Masala Dosa",
				Category: "Main Course",
			},
		},
	}
}

func TestOrderCreate_Valid(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			if req.CustomerName != "Rahul" {
				t.Errorf("customerName passed to service: got %q", req.CustomerName)
			}
			if len(req.Items) != 1 || req.Items[0].Quantity != 2 {
				t.Errorf("items passed to service: got %+v", req.Items)
			}
			return validCreateResult(), nil
		},
	}
	notifier := &mockNotifier{}
	router := setupOrderRouter(svc, newMockOrderStore(), notifier)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customerName": "Rahul",
		"tableNumber":  5,
		"items": []map[string]interface{}{
			{"menuItem": uuid.New().String(), "quantity": 2},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "Order created successfully" {
		t.Errorf("message: got %v", resp["message"])
	}
	data := resp["data"].(map[string]interface{})
	if data["orderNumber"] != "ORD-20260901-0001" {
		t.Errorf("orderNumber: got %v", data["orderNumber"])
	}
	if data["totalAmount"] != "240.00" {
		t.Errorf("totalAmount: got %v", data["totalAmount"])
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 broadcast event, got %d", len(notifier.events))
	}
	if notifier.events[0].Type != "order.created" {
		t.Errorf("event type: got %q, want 'order.created'", notifier.events[0].Type)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(notifier.events[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal event payload: %v", err)
	}
	if payload["orderNumber"] != "ORD-20260901-0001" {
		t.Errorf("event payload orderNumber: got %v", payload["orderNumber"])
	}
}

func TestOrderCreate_MenuItemNotFound(t *testing.T) {
	missingID := uuid.New()
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, &service.MenuItemNotFoundError{MenuItemID: missingID.String()}
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), nil)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customerName": "Rahul",
		"tableNumber":  5,
		"items":        []map[string]interface{}{{"menuItem": missingID.String(), "quantity": 1}},
	})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "menu item "+missingID.String()+" not found" {
		t.Errorf("message: got %v", resp["message"])
	}
}

func TestOrderCreate_ItemUnavailable(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, &service.ItemUnavailableError{Name: "Lemon Rice"}
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), nil)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customerName": "Rahul",
		"tableNumber":  5,
		"items":        []map[string]interface{}{{"menuItem": uuid.New().String(), "quantity": 1}},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "Lemon Rice is currently unavailable" {
		t.Errorf("message: got %v", resp["message"])
	}
}

func TestOrderCreate_ValidationError(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrEmptyItems
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), nil)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customerName": "Rahul",
		"tableNumber":  5,
		"items":        []map[string]interface{}{},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "order must contain at least one item" {
		t.Errorf("message: got %v", resp["message"])
	}
}

func TestOrderCreate_NoNotifierDoesNotPanic(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return validCreateResult(), nil
		},
	}
	router := setupOrderRouter(svc, newMockOrderStore(), nil)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customerName": "Rahul",
		"tableNumber":  5,
		"items":        []map[string]interface{}{{"menuItem": uuid.New().String(), "quantity": 1}},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusCreated)
	}
}

func TestOrderCreate_InvalidBody(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, newMockOrderStore(), nil)

	rr := doRequest(t, router, "POST", "/orders", "not json")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Update status tests ---

func TestOrderUpdateStatus_Valid(t *testing.T) {
	store := newMockOrderStore()
	order := store.addOrder("ORD-20260901-0001", "Rahul", "Pending", "240", 5, time.Now())
	notifier := &mockNotifier{}

	router := setupOrderRouter(nil, store, notifier)
	rr := doRequest(t, router, "PATCH", "/orders/"+order.ID.String()+"/status", map[string]interface{}{
		"status": "Preparing",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "Order status updated successfully" {
		t.Errorf("message: got %v", resp["message"])
	}
	data := resp["data"].(map[string]interface{})
	if data["status"] != "Preparing" {
		t.Errorf("status: got %v, want 'Preparing'", data["status"])
	}

	if len(notifier.events) != 1 || notifier.events[0].Type != "order.status_updated" {
		t.Errorf("expected order.status_updated broadcast, got %+v", notifier.events)
	}
}

func TestOrderUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	// Delivered back to Pending is allowed; the status set is an enum,
	// not a state machine.
	store := newMockOrderStore()
	order := store.addOrder("ORD-20260901-0001", "Rahul", "Delivered", "240", 5, time.Now())

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "PATCH", "/orders/"+order.ID.String()+"/status", map[string]interface{}{
		"status": "Pending",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestOrderUpdateStatus_MissingStatus(t *testing.T) {
	store := newMockOrderStore()
	order := store.addOrder("ORD-20260901-0001", "Rahul", "Pending", "240", 5, time.Now())

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "PATCH", "/orders/"+order.ID.String()+"/status", map[string]interface{}{})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "Status is required" {
		t.Errorf("message: got %v", resp["message"])
	}
}

func TestOrderUpdateStatus_InvalidStatus(t *testing.T) {
	store := newMockOrderStore()
	order := store.addOrder("ORD-20260901-0001", "Rahul", "Pending", "240", 5, time.Now())

	router := setupOrderRouter(nil, store, nil)
	rr := doRequest(t, router, "PATCH", "/orders/"+order.ID.String()+"/status", map[string]interface{}{
		"status": "Refunded",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	resp := decodeEnvelope(t, rr)
	if resp["message"] != "Refunded is not a valid status" {
		t.Errorf("message: got %v", resp["message"])
	}
}

func TestOrderUpdateStatus_NotFound(t *testing.T) {
	store := newMockOrderStore()
	router := setupOrderRouter(nil, store, nil)

	rr := doRequest(t, router, "PATCH", "/orders/"+uuid.New().String()+"/status", map[string]interface{}{
		"status": "Ready",
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
