package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/storage"
)

func (s *Store) GetCategories(ctx context.Context, sess models.Session) ([]models.Category, error) {
	query := `
		SELECT id, name, color
		FROM categories
		WHERE user_id = $1
		ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) GetCategoriesByIDs(ctx context.Context, sess models.Session, ids []string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, name, color
		FROM categories
		WHERE id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories by ids: %w", err)
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, sess models.Session, in storage.CategoryInput) (*models.Category, error) {
	query := `
		INSERT INTO categories (user_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING id`

	c := models.Category{Name: in.Name, Color: in.Color}
	if err := s.db.QueryRowContext(ctx, query, sess.UserID, in.Name, in.Color).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, sess models.Session, id string, patch storage.CategoryPatch) (*models.Category, error) {
	query := `
		UPDATE categories
		SET name = COALESCE($3, name), color = COALESCE($4, color)
		WHERE id = $1 AND user_id = $2
		RETURNING id, name, color`

	var c models.Category
	err := s.db.QueryRowContext(ctx, query, id, sess.UserID, patch.Name, patch.Color).
		Scan(&c.ID, &c.Name, &c.Color)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, sess models.Session, id string) error {
	// items.category_id is ON DELETE SET NULL; items survive uncategorised.
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, sess.UserID); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (s *Store) GetItems(ctx context.Context, sess models.Session) ([]models.Item, error) {
	query := `
		SELECT id, name, COALESCE(category_id::text, ''), COALESCE(price, 0), COALESCE(default_unit, ''), COALESCE(default_qty, 0)
		FROM items
		WHERE user_id = $1
		ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *Store) GetItemsByIDs(ctx context.Context, sess models.Session, ids []string) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, name, COALESCE(category_id::text, ''), COALESCE(price, 0), COALESCE(default_unit, ''), COALESCE(default_qty, 0)
		FROM items
		WHERE id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query items by ids: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	var items []models.Item
	for rows.Next() {
		var it models.Item
		var unit string
		if err := rows.Scan(&it.ID, &it.Name, &it.CategoryID, &it.Price, &unit, &it.DefaultQty); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.DefaultUnit = models.Unit(unit)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) CreateItem(ctx context.Context, sess models.Session, in storage.ItemInput) (*models.Item, error) {
	unit := in.DefaultUnit
	if unit == "" {
		unit = models.UnitPiece
	}
	qty := in.DefaultQty
	if qty == 0 {
		qty = 1
	}
	query := `
		INSERT INTO items (user_id, name, category_id, price, default_unit, default_qty)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6)
		RETURNING id`

	it := models.Item{
		Name:        in.Name,
		CategoryID:  in.CategoryID,
		Price:       in.Price,
		DefaultUnit: unit,
		DefaultQty:  qty,
	}
	if err := it.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalid, err)
	}
	err := s.db.QueryRowContext(ctx, query,
		sess.UserID, in.Name, in.CategoryID, in.Price, string(unit), qty).Scan(&it.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &it, nil
}

func (s *Store) UpdateItem(ctx context.Context, sess models.Session, id string, patch storage.ItemPatch) (*models.Item, error) {
	// Read-merge-write so the merged row can be validated before it lands.
	query := `
		SELECT id, name, COALESCE(category_id::text, ''), COALESCE(price, 0), COALESCE(default_unit, ''), COALESCE(default_qty, 0)
		FROM items
		WHERE id = $1 AND user_id = $2`

	var it models.Item
	var u string
	err := s.db.QueryRowContext(ctx, query, id, sess.UserID).
		Scan(&it.ID, &it.Name, &it.CategoryID, &it.Price, &u, &it.DefaultQty)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	it.DefaultUnit = models.Unit(u)

	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.CategoryID != nil {
		it.CategoryID = *patch.CategoryID
	}
	if patch.Price != nil {
		it.Price = *patch.Price
	}
	if patch.DefaultUnit != nil {
		it.DefaultUnit = *patch.DefaultUnit
	}
	if patch.DefaultQty != nil {
		it.DefaultQty = *patch.DefaultQty
	}
	if err := it.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalid, err)
	}

	update := `
		UPDATE items
		SET name = $3, category_id = NULLIF($4, '')::uuid, price = $5, default_unit = $6, default_qty = $7
		WHERE id = $1 AND user_id = $2`
	if _, err := s.db.ExecContext(ctx, update,
		id, sess.UserID, it.Name, it.CategoryID, it.Price, string(it.DefaultUnit), it.DefaultQty); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return &it, nil
}

func (s *Store) DeleteItem(ctx context.Context, sess models.Session, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = $1 AND user_id = $2`, id, sess.UserID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}
