package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"stumart/internal/domain"
)

// ItemQuery selects one page of one screen's listing collection.
type ItemQuery struct {
	Screen   domain.ScreenID
	Page     int
	Category *int
	Search   string
}

// ItemPage is a decoded DRF page. HasMore mirrors the "next" link being
// present.
type ItemPage struct {
	Items   []domain.Item
	Count   int
	HasMore bool
}

// Each screen reads from its own backend collection; search goes through the
// matching search action. The reported screen has no search endpoint.
func itemsPath(screen domain.ScreenID, searching bool) (string, error) {
	switch screen {
	case domain.ScreenHome:
		if searching {
			return "/api/items/search_items/", nil
		}
		return "/api/items/", nil
	case domain.ScreenFavorites:
		if searching {
			return "/api/items/search_favorites/", nil
		}
		return "/api/items/favorites/", nil
	case domain.ScreenMyItems:
		if searching {
			return "/api/items/search_my_items/", nil
		}
		return "/api/items/my_items/", nil
	case domain.ScreenReported:
		return "/api/report/reported_items/", nil
	default:
		return "", fmt.Errorf("unknown screen %q", screen)
	}
}

// ListItems fetches one page for a screen, honoring its category filter and
// search query.
func (c *Client) ListItems(ctx context.Context, q ItemQuery) (ItemPage, error) {
	searching := q.Search != ""
	path, err := itemsPath(q.Screen, searching)
	if err != nil {
		return ItemPage{}, err
	}

	query := url.Values{}
	if q.Page > 1 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Category != nil {
		query.Set("category", strconv.Itoa(*q.Category))
	}
	if searching {
		query.Set("q", q.Search)
	}

	var resp struct {
		Count    int           `json:"count"`
		Next     *string       `json:"next"`
		Previous *string       `json:"previous"`
		Results  []domain.Item `json:"results"`
	}
	if err := c.get(ctx, path, query, &resp); err != nil {
		return ItemPage{}, fmt.Errorf("listing %s items: %w", q.Screen, err)
	}
	return ItemPage{
		Items:   resp.Results,
		Count:   resp.Count,
		HasMore: resp.Next != nil,
	}, nil
}

// ToggleFavorite flips the current user's favorite flag on an item and
// returns the new state.
func (c *Client) ToggleFavorite(ctx context.Context, itemID int) (bool, error) {
	var resp struct {
		IsFavorited bool `json:"is_favorited"`
	}
	path := fmt.Sprintf("/api/items/%d/toggle_favorite/", itemID)
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return false, fmt.Errorf("toggling favorite on item %d: %w", itemID, err)
	}
	return resp.IsFavorited, nil
}

// ToggleReport reports or unreports an item. The reason is required only
// when reporting; the backend ignores it on unreport.
func (c *Client) ToggleReport(ctx context.Context, itemID int, reason string) (bool, error) {
	var body any
	if reason != "" {
		body = map[string]string{"reason": reason}
	}
	var resp struct {
		IsReported bool `json:"is_reported"`
	}
	path := fmt.Sprintf("/api/report/%d/toggle_report/", itemID)
	if err := c.post(ctx, path, body, &resp); err != nil {
		return false, fmt.Errorf("toggling report on item %d: %w", itemID, err)
	}
	return resp.IsReported, nil
}
