package domain

// ScreenID tags one of the item list screens. Each screen owns an independent
// cached collection in the item store.
type ScreenID string

const (
	ScreenHome      ScreenID = "home"
	ScreenFavorites ScreenID = "favorites"
	ScreenMyItems   ScreenID = "myItems"
	ScreenReported  ScreenID = "reported"
)

// Screens lists every screen in Latest-lookup priority order (reported last,
// it never wins a lookup).
var Screens = []ScreenID{ScreenHome, ScreenFavorites, ScreenMyItems, ScreenReported}

// Item is a marketplace listing as the backend serializes it. IsFavorited and
// IsReported are per-viewer flags; they must stay identical across every
// screen's cached copy of the same item.
type Item struct {
	ID                   int      `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Price                float64  `json:"price"`
	Image                string   `json:"image"`
	AdditionalImages     []string `json:"additional_images"`
	IsSold               bool     `json:"is_sold"`
	CreatedAt            string   `json:"created_at"`
	Category             int      `json:"category"`
	CategoryName         string   `json:"category_name"`
	Seller               int      `json:"seller"`
	IsFavorited          bool     `json:"is_favorited"`
	IsReported           bool     `json:"is_reported"`
	PurchaseRequestCount int      `json:"purchase_request_count"`
}

// Category is a listing category as returned by the backend.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
