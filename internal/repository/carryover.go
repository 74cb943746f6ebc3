package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
)

// CarryoverRepository 结转条目仓储
// 导出结转随排班记录写入，这里提供读取与手工修正
type CarryoverRepository struct {
	db DB
}

// NewCarryoverRepository 创建结转仓储
func NewCarryoverRepository(db DB) *CarryoverRepository {
	return &CarryoverRepository{db: db}
}

// ListByRoster 列出某次排班导出的结转
func (r *CarryoverRepository) ListByRoster(ctx context.Context, rosterID uuid.UUID) ([]model.CarryoverEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, role, delta FROM carryover_entries WHERE roster_id = $1 ORDER BY name, role`,
		rosterID)
	if err != nil {
		return nil, fmt.Errorf("查询结转条目失败: %w", err)
	}
	defer rows.Close()

	var entries []model.CarryoverEntry
	for rows.Next() {
		var e model.CarryoverEntry
		var role string
		if err := rows.Scan(&e.Name, &role, &e.Delta); err != nil {
			return nil, fmt.Errorf("扫描结转条目失败: %w", err)
		}
		e.Role = model.Role(role)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Replace 整体替换某次排班的结转条目（手工修正后回写）
func (r *CarryoverRepository) Replace(ctx context.Context, rosterID uuid.UUID, entries []model.CarryoverEntry) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM carryover_entries WHERE roster_id = $1", rosterID); err != nil {
		return fmt.Errorf("清空结转条目失败: %w", err)
	}
	for _, e := range entries {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO carryover_entries (id, roster_id, name, role, delta) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), rosterID, e.Name, string(e.Role), e.Delta,
		); err != nil {
			return fmt.Errorf("写入结转条目失败: %w", err)
		}
	}
	return nil
}
