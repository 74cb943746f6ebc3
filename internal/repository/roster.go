package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
)

// Roster 排班结果持久化记录
// Payload 为完整 Result 的 JSON 快照
type Roster struct {
	ID        uuid.UUID     `json:"id"`
	RunID     uuid.UUID     `json:"run_id"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Stage     int           `json:"stage"`
	Attempts  int           `json:"attempts"`
	Score     float64       `json:"score"`
	Payload   *model.Result `json:"payload,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// RosterRepository 排班结果仓储
type RosterRepository struct {
	db DB
}

// NewRosterRepository 创建排班结果仓储
func NewRosterRepository(db DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Create 保存排班结果及其导出结转
func (r *RosterRepository) Create(ctx context.Context, roster *Roster) error {
	if roster.ID == uuid.Nil {
		roster.ID = uuid.New()
	}
	roster.CreatedAt = time.Now()

	payload, err := json.Marshal(roster.Payload)
	if err != nil {
		return fmt.Errorf("序列化排班结果失败: %w", err)
	}

	query := `
		INSERT INTO rosters (id, run_id, start_date, end_date, stage, attempts, score, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.ExecContext(ctx, query,
		roster.ID, roster.RunID, roster.StartDate, roster.EndDate,
		roster.Stage, roster.Attempts, roster.Score, payload, roster.CreatedAt,
	); err != nil {
		return fmt.Errorf("创建排班记录失败: %w", err)
	}

	for _, e := range roster.Payload.CarryoverOut {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO carryover_entries (id, roster_id, name, role, delta) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), roster.ID, e.Name, string(e.Role), e.Delta,
		); err != nil {
			return fmt.Errorf("保存结转条目失败: %w", err)
		}
	}
	return nil
}

// GetByID 按 ID 取排班记录
func (r *RosterRepository) GetByID(ctx context.Context, id uuid.UUID) (*Roster, error) {
	query := `
		SELECT id, run_id, start_date, end_date, stage, attempts, score, payload, created_at
		FROM rosters WHERE id = $1
	`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// List 列出排班记录（Payload 不展开）
func (r *RosterRepository) List(ctx context.Context, filter ListFilter) ([]*Roster, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", argNum))
		args = append(args, filter.StartDate)
		argNum++
	}
	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", argNum))
		args = append(args, filter.EndDate)
		argNum++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rosters %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计排班数量失败: %w", err)
	}

	dir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		dir = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT id, run_id, start_date, end_date, stage, attempts, score, NULL, created_at
		FROM rosters %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, whereClause, dir, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询排班列表失败: %w", err)
	}
	defer rows.Close()

	var rosters []*Roster
	for rows.Next() {
		roster, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		rosters = append(rosters, roster)
	}
	return rosters, total, rows.Err()
}

// Delete 删除排班记录（结转条目级联删除）
func (r *RosterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM rosters WHERE id = $1", id); err != nil {
		return fmt.Errorf("删除排班记录失败: %w", err)
	}
	return nil
}

// Latest 取最近一次排班
func (r *RosterRepository) Latest(ctx context.Context) (*Roster, error) {
	query := `
		SELECT id, run_id, start_date, end_date, stage, attempts, score, payload, created_at
		FROM rosters ORDER BY created_at DESC LIMIT 1
	`
	return r.scan(r.db.QueryRowContext(ctx, query))
}

func (r *RosterRepository) scan(row Scanner) (*Roster, error) {
	roster := &Roster{}
	var payload []byte
	err := row.Scan(
		&roster.ID, &roster.RunID, &roster.StartDate, &roster.EndDate,
		&roster.Stage, &roster.Attempts, &roster.Score, &payload, &roster.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班记录失败: %w", err)
	}
	if len(payload) > 0 {
		roster.Payload = &model.Result{}
		if err := json.Unmarshal(payload, roster.Payload); err != nil {
			return nil, fmt.Errorf("反序列化排班结果失败: %w", err)
		}
	}
	return roster, nil
}
