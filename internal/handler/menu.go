package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bistro-admin/api/internal/database"
	"github.com/bistro-admin/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	SearchMenuItems(ctx context.Context, query string) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ToggleMenuItemAvailability(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// MenuHandler handles menu catalog endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers the public (read) menu endpoints.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/{id}", h.Get)
}

// RegisterProtectedRoutes registers the mutating menu endpoints. The router
// mounts these behind bearer authentication.
func (h *MenuHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/availability", h.ToggleAvailability)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	Price           json.Number `json:"price"`
	Ingredients     []string    `json:"ingredients"`
	IsAvailable     *bool       `json:"isAvailable"`
	PreparationTime *int32      `json:"preparationTime"`
	ImageURL        string      `json:"imageUrl"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Category        string    `json:"category"`
	Price           string    `json:"price"`
	Ingredients     []string  `json:"ingredients"`
	IsAvailable     bool      `json:"isAvailable"`
	PreparationTime *int32    `json:"preparationTime"`
	ImageURL        *string   `json:"imageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Category:    m.Category,
		Price:       numericToString(m.Price),
		Ingredients: m.Ingredients,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []string{}
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	if m.PreparationTime.Valid {
		pt := m.PreparationTime.Int32
		resp.PreparationTime = &pt
	}
	if m.ImageUrl.Valid {
		resp.ImageURL = &m.ImageUrl.String
	}
	return resp
}

func toMenuItemResponses(items []database.MenuItem) []menuItemResponse {
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	return resp
}

// --- Helpers ---

// validateMenuItemRequest returns one message per violated field, parsing the
// price on the way. Mirrors the per-field errors the admin form renders.
func validateMenuItemRequest(req menuItemRequest) (pgtype.Numeric, []string) {
	var errs []string
	var price pgtype.Numeric

	if req.Name == "" {
		errs = append(errs, "name is required")
	}
	if req.Category == "" {
		errs = append(errs, "category is required")
	} else if !enum.IsValidCategory(req.Category) {
		errs = append(errs, "category must be one of Appetizer, Main Course, Dessert, Beverage")
	}
	if req.Price == "" {
		errs = append(errs, "price is required")
	} else {
		d, err := decimal.NewFromString(req.Price.String())
		switch {
		case err != nil:
			errs = append(errs, "price must be a number")
		case d.IsNegative():
			errs = append(errs, "price cannot be negative")
		default:
			_ = price.Scan(d.StringFixed(2))
		}
	}
	if req.PreparationTime != nil && *req.PreparationTime < 0 {
		errs = append(errs, "preparationTime cannot be negative")
	}

	return price, errs
}

func menuItemParams(req menuItemRequest, price pgtype.Numeric) database.CreateMenuItemParams {
	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	imageURL := pgtype.Text{}
	if req.ImageURL != "" {
		imageURL = pgtype.Text{String: req.ImageURL, Valid: true}
	}

	prepTime := pgtype.Int4{}
	if req.PreparationTime != nil {
		prepTime = pgtype.Int4{Int32: *req.PreparationTime, Valid: true}
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	ingredients := req.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}

	return database.CreateMenuItemParams{
		Name:            req.Name,
		Description:     desc,
		Category:        req.Category,
		Price:           price,
		Ingredients:     ingredients,
		IsAvailable:     isAvailable,
		PreparationTime: prepTime,
		ImageUrl:        imageURL,
	}
}

// --- Handlers ---

// List handles GET /menu with optional category/availability/price filters.
// Malformed numeric filters are treated as absent, not rejected.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListMenuItemsParams{}

	if s := r.URL.Query().Get("category"); s != "" {
		params.Category = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("availability"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			params.IsAvailable = pgtype.Bool{Bool: v, Valid: true}
		}
	}
	if s := r.URL.Query().Get("minPrice"); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			_ = params.MinPrice.Scan(d.String())
		}
	}
	if s := r.URL.Query().Get("maxPrice"); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			_ = params.MaxPrice.Scan(d.String())
		}
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		respondServerError(w, err)
		return
	}

	respondList(w, len(items), toMenuItemResponses(items))
}

// Search handles GET /menu/search?q=. An empty or whitespace-only query
// returns an empty result set rather than the full catalog.
func (h *MenuHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondList(w, 0, []menuItemResponse{})
		return
	}

	items, err := h.store.SearchMenuItems(r.Context(), q)
	if err != nil {
		log.Printf("ERROR: search menu items: %v", err)
		respondServerError(w, err)
		return
	}

	respondList(w, len(items), toMenuItemResponses(items))
}

// Get handles GET /menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w, "Menu item not found")
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Menu item not found")
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		respondServerError(w, err)
		return
	}

	respondData(w, http.StatusOK, toMenuItemResponse(item))
}

// Create handles POST /menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	price, errs := validateMenuItemRequest(req)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), menuItemParams(req, price))
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		respondServerError(w, err)
		return
	}

	respondMessage(w, http.StatusCreated, "Menu item created successfully", toMenuItemResponse(item))
}

// Update handles PUT /menu/{id} as a full replace.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w, "Menu item not found")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	price, errs := validateMenuItemRequest(req)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	p := menuItemParams(req, price)
	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:              id,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Price:           p.Price,
		Ingredients:     p.Ingredients,
		IsAvailable:     p.IsAvailable,
		PreparationTime: p.PreparationTime,
		ImageUrl:        p.ImageUrl,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Menu item not found")
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		respondServerError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Menu item updated successfully", toMenuItemResponse(item))
}

// Delete handles DELETE /menu/{id}. Historical orders are untouched; they
// carry their own price snapshots.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w, "Menu item not found")
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Menu item not found")
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		respondServerError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Menu item deleted successfully", struct{}{})
}

// ToggleAvailability handles PATCH /menu/{id}/availability with a single
// atomic flip, not a read-modify-write.
func (h *MenuHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w, "Menu item not found")
		return
	}

	item, err := h.store.ToggleMenuItemAvailability(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Menu item not found")
			return
		}
		log.Printf("ERROR: toggle menu item availability: %v", err)
		respondServerError(w, err)
		return
	}

	message := "Menu item disabled successfully"
	if item.IsAvailable {
		message = "Menu item enabled successfully"
	}
	respondMessage(w, http.StatusOK, message, toMenuItemResponse(item))
}
