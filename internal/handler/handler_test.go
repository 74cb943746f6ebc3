package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/engine"
)

func testHandler() *Handler {
	return New(engine.New(engine.Config{Attempts: 2, TimeBudget: time.Minute, Workers: 2}), nil, nil)
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// 工作日 {R1,R2}、周末 {R2,R3}，2026-03-02 为周一
func generateRequest() *model.Request {
	wd := make(map[time.Weekday][2]model.Tier)
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		wd[d] = [2]model.Tier{model.TierR1, model.TierR2}
	}
	seed := uint64(7)
	return &model.Request{
		StartDate: "2026-03-02",
		Weeks:     1,
		Template:  &model.RoleTemplate{Workday: wd, Offday: [2]model.Tier{model.TierR2, model.TierR3}},
		Seed:      &seed,
		Staff: []model.StaffInput{
			{Name: "甲", Tier: model.TierR1},
			{Name: "乙", Tier: model.TierR1},
			{Name: "丙", Tier: model.TierR1},
			{Name: "丁", Tier: model.TierR2},
			{Name: "戊", Tier: model.TierR2},
			{Name: "己", Tier: model.TierR2},
			{Name: "庚", Tier: model.TierR3},
			{Name: "辛", Tier: model.TierR3},
		},
	}
}

func TestGenerateEndpoint(t *testing.T) {
	h := testHandler()
	rec := postJSON(t, h.Generate, "/api/v1/roster/generate", generateRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res model.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Response should decode into Result: %v", err)
	}
	if len(res.Schedule) != 7 || res.Stage != 1 {
		t.Errorf("Unexpected result: %d days, stage %d", len(res.Schedule), res.Stage)
	}
	for di, ds := range res.Schedule {
		for si := 0; si < model.SlotCount; si++ {
			if !ds.Slots[si].IsFilled() {
				t.Errorf("Day %d slot %d unfilled in response", di, si)
			}
		}
	}
}

func TestGenerateEndpointBadJSON(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/roster/generate", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestGenerateEndpointValidation(t *testing.T) {
	h := testHandler()
	req := generateRequest()
	req.Staff = req.Staff[:1] // 少于 2 名人员
	rec := postJSON(t, h.Generate, "/api/v1/roster/generate", req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid staff, got %d: %s", rec.Code, rec.Body.String())
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !body.Error {
		t.Errorf("Expected structured error body, got %s", rec.Body.String())
	}
}

func TestGenerateEndpointInfeasible(t *testing.T) {
	h := testHandler()
	wd := make(map[time.Weekday][2]model.Tier)
	for d := time.Sunday; d <= time.Saturday; d++ {
		wd[d] = [2]model.Tier{model.TierR1, model.TierR1}
	}
	req := &model.Request{
		StartDate: "2026-03-02",
		Weeks:     1,
		Template:  &model.RoleTemplate{Workday: wd, Offday: [2]model.Tier{model.TierR1, model.TierR1}},
		Staff: []model.StaffInput{
			{Name: "甲", Tier: model.TierR1},
			{Name: "乙", Tier: model.TierR1},
		},
	}
	rec := postJSON(t, h.Generate, "/api/v1/roster/generate", req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for infeasible request, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestValidateEndpoint(t *testing.T) {
	h := testHandler()
	// 大层级人数让配额下限为 0，只校验结构不变量
	staff := []model.StaffInput{
		{Name: "甲", Tier: model.TierR1}, {Name: "乙", Tier: model.TierR1},
		{Name: "丙", Tier: model.TierR1}, {Name: "丁", Tier: model.TierR1},
		{Name: "戊", Tier: model.TierR1}, {Name: "己", Tier: model.TierR1},
		{Name: "庚", Tier: model.TierR2}, {Name: "辛", Tier: model.TierR2},
		{Name: "壬", Tier: model.TierR2},
		{Name: "子", Tier: model.TierR3}, {Name: "丑", Tier: model.TierR3},
		{Name: "寅", Tier: model.TierR3},
	}
	base := model.Request{StartDate: "2026-03-02", Weeks: 1, Staff: staff}

	// 周一 {R1, R2} 合法指派
	rec := postJSON(t, h.Validate, "/api/v1/roster/validate", ValidateRequest{
		Request: base,
		Assignments: map[string]struct {
			Ward     string `json:"ward,omitempty"`
			Response string `json:"response,omitempty"`
		}{
			"2026-03-02": {Ward: "甲", Response: "庚"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !resp.Valid {
		t.Errorf("Assignment should be valid, got violations %v", resp.Violations)
	}

	// 相邻日连值应报违规
	rec = postJSON(t, h.Validate, "/api/v1/roster/validate", ValidateRequest{
		Request: base,
		Assignments: map[string]struct {
			Ward     string `json:"ward,omitempty"`
			Response string `json:"response,omitempty"`
		}{
			"2026-03-02": {Ward: "甲"},
			"2026-03-03": {Ward: "甲"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.Valid || len(resp.Violations) == 0 {
		t.Error("Adjacent duty should be flagged")
	}
}

func TestValidateEndpointUnknownName(t *testing.T) {
	h := testHandler()
	rec := postJSON(t, h.Validate, "/api/v1/roster/validate", ValidateRequest{
		Request: model.Request{
			StartDate: "2026-03-02",
			Weeks:     1,
			Staff: []model.StaffInput{
				{Name: "甲", Tier: model.TierR1},
				{Name: "乙", Tier: model.TierR1},
			},
		},
		Assignments: map[string]struct {
			Ward     string `json:"ward,omitempty"`
			Response string `json:"response,omitempty"`
		}{
			"2026-03-02": {Ward: "路人"},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown name, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStoreEndpointsWithoutDatabase(t *testing.T) {
	h := testHandler()
	for name, fn := range map[string]http.HandlerFunc{
		"get":    h.GetRoster,
		"list":   h.ListRosters,
		"export": h.ExportRoster,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/roster", nil)
		rec := httptest.NewRecorder()
		fn(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503 without database, got %d", name, rec.Code)
		}
	}
}
