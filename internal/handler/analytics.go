package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/bistro-admin/api/internal/database"
	"github.com/google/uuid"
)

const topSellersLimit = 5

// AnalyticsStore defines the database methods needed by analytics handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AnalyticsStore interface {
	GetTopSellers(ctx context.Context, limit int32) ([]database.GetTopSellersRow, error)
}

// AnalyticsHandler handles sales analytics endpoints.
type AnalyticsHandler struct {
	store AnalyticsStore
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(store AnalyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

type topSellerResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Price         string    `json:"price"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	TotalQuantity int64     `json:"totalQuantity"`
	TotalRevenue  string    `json:"totalRevenue"`
}

// TopSellers handles GET /orders/analytics/top-sellers. Only Delivered
// orders count toward the ranking; items no longer in the catalog are
// excluded.
func (h *AnalyticsHandler) TopSellers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.GetTopSellers(r.Context(), topSellersLimit)
	if err != nil {
		log.Printf("ERROR: get top sellers: %v", err)
		respondServerError(w, err)
		return
	}

	resp := make([]topSellerResponse, len(rows))
	for i, row := range rows {
		resp[i] = topSellerResponse{
			ID:            row.MenuItemID,
			Name:          row.Name,
			Category:      row.Category,
			Price:         numericToString(row.Price),
			ImageURL:      row.ImageUrl.String,
			TotalQuantity: row.TotalQuantity,
			TotalRevenue:  numericToString(row.TotalRevenue),
		}
	}

	respondList(w, len(resp), resp)
}
