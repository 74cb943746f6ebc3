package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/internal/repository"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/export"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
	"github.com/zhiban/zhiban/pkg/validator"
)

// Generate 生成当值排班
// POST /api/v1/roster/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, h.validationError(err))
		return
	}

	start := time.Now()
	result, err := h.engine.Generate(r.Context(), &req)
	if err != nil {
		metrics.RecordGeneration(0, false, 0, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.RecordGeneration(result.Stage, true, result.Score, time.Since(start))
	metrics.RecordStitchReverts(result.Reverts)

	if h.rosters != nil {
		roster := &repository.Roster{
			RunID:     uuid.MustParse(result.RunID),
			StartDate: result.StartDate,
			EndDate:   result.EndDate,
			Stage:     result.Stage,
			Attempts:  result.Attempts,
			Score:     result.Score,
			Payload:   result,
		}
		if err := h.rosters.Create(r.Context(), roster); err != nil {
			// 排班已生成，持久化失败降级为警告
			result.Warnings = append(result.Warnings, fmt.Sprintf("排班结果持久化失败: %v", err))
		} else {
			w.Header().Set("X-Roster-ID", roster.ID.String())
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// ValidateRequest 校验请求：对给定人员指派重查结构不变量
type ValidateRequest struct {
	Request model.Request `json:"request" validate:"required"`
	// Assignments[date] = {ward, response} 姓名
	Assignments map[string]struct {
		Ward     string `json:"ward,omitempty"`
		Response string `json:"response,omitempty"`
	} `json:"assignments" validate:"required"`
}

// ValidateResponse 校验响应
type ValidateResponse struct {
	Valid      bool                  `json:"valid"`
	Violations []validator.Violation `json:"violations,omitempty"`
}

// Validate 校验既有排班
// POST /api/v1/roster/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, h.validationError(err))
		return
	}

	rc, err := rostering.Build(&req.Request)
	if err != nil {
		respondError(w, err)
		return
	}

	sched := &model.Schedule{ID: uuid.New(), Days: make([]model.DaySchedule, len(rc.Days))}
	for di, day := range rc.Days {
		ds := model.DaySchedule{Day: day}
		for si := 0; si < model.SlotCount; si++ {
			ds.Slots[si] = model.Unfilled()
		}
		if a, ok := req.Assignments[day.Key]; ok {
			names := [model.SlotCount]string{a.Ward, a.Response}
			for si := 0; si < model.SlotCount; si++ {
				if names[si] == "" {
					continue
				}
				p := rc.PersonByName(names[si])
				if p == nil {
					respondError(w, errors.InvalidInput("assignments",
						fmt.Sprintf("%s 的 %q 不在人员名单内", day.Key, names[si])))
					return
				}
				ds.Slots[si] = model.Filled(p.ID)
			}
		}
		sched.Days[di] = ds
	}

	violations := validator.CheckSchedule(rc, sched)
	violations = append(violations, validator.CheckCaps(rc, sched)...)
	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// GetRoster 查询排班记录
// GET /api/v1/roster/{id}
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, errors.InvalidInput("id", "无效的 UUID"))
		return
	}
	roster, err := h.rosters.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班失败"))
		return
	}
	if roster == nil {
		respondError(w, errors.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, roster)
}

// ListRosters 列出排班记录
// GET /api/v1/roster?start_date=&end_date=&limit=&offset=
func (h *Handler) ListRosters(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	filter := repository.DefaultListFilter()
	q := r.URL.Query()
	filter.StartDate = q.Get("start_date")
	filter.EndDate = q.Get("end_date")
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Limit)
	}
	if v := q.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &filter.Offset)
	}

	rosters, total, err := h.rosters.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班列表失败"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"rosters": rosters,
	})
}

// ExportRoster 导出排班
// GET /api/v1/roster/{id}/export?format=sheet|ics|bundle&person=姓名
func (h *Handler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, errors.InvalidInput("id", "无效的 UUID"))
		return
	}
	roster, err := h.rosters.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班失败"))
		return
	}
	if roster == nil || roster.Payload == nil {
		respondError(w, errors.ErrNotFound)
		return
	}
	res := roster.Payload

	switch r.URL.Query().Get("format") {
	case "ics":
		name := r.URL.Query().Get("person")
		var pid uuid.UUID
		for _, p := range res.People {
			if p.Name == name {
				pid = p.ID
				break
			}
		}
		if pid == uuid.Nil {
			respondError(w, errors.InvalidInput("person", "不在人员名单内"))
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, name))
		w.Write(export.PersonICS(res, pid))
	case "bundle":
		data, err := export.Bundle(res)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInternal, "打包导出失败"))
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="roster_%s.zip"`, res.StartDate))
		w.Write(data)
	default:
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="roster_%s.xml"`, res.StartDate))
		w.Write(export.Spreadsheet(res))
	}
}

// GetCarryover 查询某次排班的导出结转
// GET /api/v1/roster/{id}/carryover
func (h *Handler) GetCarryover(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, errors.InvalidInput("id", "无效的 UUID"))
		return
	}
	entries, err := h.carryovers.ListByRoster(r.Context(), id)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询结转失败"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// PutCarryover 整体替换某次排班的结转条目
// PUT /api/v1/roster/{id}/carryover
func (h *Handler) PutCarryover(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, errors.InvalidInput("id", "无效的 UUID"))
		return
	}
	var body struct {
		Entries []model.CarryoverEntry `json:"entries" validate:"required,dive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := h.carryovers.Replace(r.Context(), id, body.Entries); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "替换结转失败"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"replaced": len(body.Entries)})
}
