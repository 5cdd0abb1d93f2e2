package enum

// ── Order lifecycle (CHECK constrained in DB) ──
//
// The admin UI renders these labels verbatim, so they are stored and
// transported in display casing.

const (
	OrderStatusPending   = "Pending"
	OrderStatusPreparing = "Preparing"
	OrderStatusReady     = "Ready"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

// ── Menu categories (CHECK constrained in DB) ──

const (
	CategoryAppetizer  = "Appetizer"
	CategoryMainCourse = "Main Course"
	CategoryDessert    = "Dessert"
	CategoryBeverage   = "Beverage"
)

// IsValidOrderStatus reports whether s is one of the five order states.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidCategory reports whether s is one of the four menu categories.
func IsValidCategory(s string) bool {
	switch s {
	case CategoryAppetizer, CategoryMainCourse, CategoryDessert, CategoryBeverage:
		return true
	}
	return false
}
