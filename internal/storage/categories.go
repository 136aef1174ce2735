package storage

import (
	"context"
	"fmt"

	"kasa/internal/core"
)

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.Type, &c.IsSystem, &c.CreatedAt)
	return c, err
}

// CreateCategory always inserts a user category; system rows are seeded by
// the migrations and never created through the API.
func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (name, parent_category_id, category_type, is_system)
		 VALUES (?, ?, ?, 0)`, c.Name, c.ParentID, c.Type)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category id: %w", err)
	}
	return q.GetCategory(ctx, id)
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, parent_category_id, category_type, is_system, created_at
		 FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound("get category", err)
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, parent_category_id, category_type, is_system, created_at
		 FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategory rewrites a user category. System categories are frozen and
// edits to them return core.ErrInvalidInput.
func (q *Queries) UpdateCategory(ctx context.Context, id int64, c core.Category) (core.Category, error) {
	existing, err := q.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if existing.IsSystem {
		return core.Category{}, fmt.Errorf("%w: system categories cannot be modified", core.ErrInvalidInput)
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, parent_category_id = ?, category_type = ?
		 WHERE id = ?`, c.Name, c.ParentID, c.Type, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return q.GetCategory(ctx, id)
}

// DeleteCategory removes a user category; children cascade via the schema.
// System categories cannot be deleted.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	existing, err := q.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return fmt.Errorf("%w: system categories cannot be deleted", core.ErrInvalidInput)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
