package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Categories store — list, seed, batch lookup
// ============================================================

// categoryRow maps the categories table columns.
type categoryRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *categoryRow) toDomain() domain.Category {
	return domain.Category{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Icon:        r.Icon,
		Color:       r.Color,
		Description: r.Description,
		IsDefault:   r.IsDefault,
		CreatedAt:   r.CreatedAt,
	}
}

// ListCategories returns the user's categories, the seeded defaults
// first, then by name.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("categories?user_id=eq.%s&order=is_default.desc,name.asc", userID)

	var categories []domain.Category
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			categories = []domain.Category{}
			return nil
		}
		var rows []categoryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode categories: %w", err)
		}
		categories = make([]domain.Category, 0, len(rows))
		for i := range rows {
			categories = append(categories, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/categories", Err: err}
	}
	return categories, nil
}

// CreateCategories bulk-inserts category rows (signup seeding).
func (c *Client) CreateCategories(ctx context.Context, categories []domain.Category) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCategories")
	defer span.End()

	rows := make([]map[string]any, 0, len(categories))
	for i := range categories {
		rows = append(rows, map[string]any{
			"id":          categories[i].ID,
			"user_id":     categories[i].UserID,
			"name":        categories[i].Name,
			"icon":        categories[i].Icon,
			"color":       categories[i].Color,
			"description": categories[i].Description,
			"is_default":  categories[i].IsDefault,
		})
	}

	err := c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "categories", rows)
		return err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/categories", Err: err}
	}
	return nil
}

// GetCategoriesByIDs fetches categories in bulk, keyed by id.
func (c *Client) GetCategoriesByIDs(ctx context.Context, ids []string) (map[string]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCategoriesByIDs")
	defer span.End()

	result := make(map[string]domain.Category, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	path := "categories?id=" + inList(ids)
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []categoryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode categories: %w", err)
		}
		for i := range rows {
			result[rows[i].ID] = rows[i].toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/categories", Err: err}
	}
	return result, nil
}
