package storage

import (
	"context"
	"fmt"

	"kasa/internal/core"
)

func (q *Queries) CreateFlowGroup(ctx context.Context, g core.FlowGroup) (core.FlowGroup, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO flow_groups (name, description) VALUES (?, ?)`,
		g.Name, g.Description)
	if err != nil {
		return core.FlowGroup{}, fmt.Errorf("create flow group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return core.FlowGroup{}, fmt.Errorf("create flow group: %w", err)
	}
	return g, nil
}

func (q *Queries) ListFlowGroups(ctx context.Context) ([]core.FlowGroup, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, description FROM flow_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list flow groups: %w", err)
	}
	defer rows.Close()

	var out []core.FlowGroup
	for rows.Next() {
		var g core.FlowGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, fmt.Errorf("scan flow group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteFlowGroup(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM flow_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete flow group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete flow group: %w", core.ErrNotFound)
	}
	return nil
}
