package stats

import (
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/decode"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
)

func TestFairBase(t *testing.T) {
	// 严格多数优先
	if got := FairBase([]int{2, 2, 2, 5}); got != 2 {
		t.Errorf("Majority base expected 2, got %d", got)
	}
	// 无多数时取中位数
	if got := FairBase([]int{1, 3, 5}); got != 3 {
		t.Errorf("Median base expected 3, got %d", got)
	}
	// 偶数个取下中位
	if got := FairBase([]int{1, 2, 3, 4}); got != 2 {
		t.Errorf("Lower median expected 2, got %d", got)
	}
	if got := FairBase(nil); got != 0 {
		t.Errorf("Empty counts expected 0, got %d", got)
	}
}

// 2026-03-02 为周一
func buildContext(t *testing.T, mutate func(*model.Request)) *rostering.Context {
	t.Helper()
	req := &model.Request{
		StartDate: "2026-03-02",
		Weeks:     1,
		Staff: []model.StaffInput{
			{Name: "甲", Tier: model.TierR1},
			{Name: "乙", Tier: model.TierR1},
			{Name: "丙", Tier: model.TierR1},
			{Name: "丁", Tier: model.TierR2},
		},
	}
	if mutate != nil {
		mutate(req)
	}
	rc, err := rostering.Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return rc
}

func scheduleWithWardDuties(rc *rostering.Context, dutyDays map[string][]int) *model.Schedule {
	s := &model.Schedule{Days: make([]model.DaySchedule, len(rc.Days))}
	for i, d := range rc.Days {
		ds := model.DaySchedule{Day: d}
		for si := 0; si < model.SlotCount; si++ {
			ds.Slots[si] = model.Unfilled()
		}
		s.Days[i] = ds
	}
	for name, days := range dutyDays {
		pid := rc.PersonByName(name).ID
		for _, di := range days {
			s.Days[di].Slots[model.SlotWard] = model.Filled(pid)
		}
	}
	return s
}

func TestCarryoverDeltas(t *testing.T) {
	rc := buildContext(t, nil)
	// 甲病房 2 次，乙丙各 1 次，基准为多数值 1
	s := scheduleWithWardDuties(rc, map[string][]int{
		"甲": {0, 3},
		"乙": {1},
		"丙": {5},
	})
	l, _, err := decode.BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}

	entries := CarryoverDeltas(rc, l)
	var ward []model.CarryoverEntry
	for _, e := range entries {
		if e.Role == model.RoleWard {
			ward = append(ward, e)
		}
	}
	if len(ward) != 1 || ward[0].Name != "甲" || ward[0].Delta != 1 {
		t.Errorf("Expected single ward delta 甲=+1, got %v", ward)
	}
}

func TestCarryoverDeltasImported(t *testing.T) {
	// 导入结转叠加在实际计数上
	rc := buildContext(t, func(req *model.Request) {
		req.Carryover = []model.CarryoverEntry{{Name: "乙", Role: model.RoleWard, Delta: 1}}
	})
	s := scheduleWithWardDuties(rc, map[string][]int{
		"甲": {0},
		"乙": {1},
		"丙": {5},
	})
	l, _, err := decode.BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}

	entries := CarryoverDeltas(rc, l)
	found := false
	for _, e := range entries {
		if e.Role == model.RoleWard && e.Name == "乙" {
			found = true
			if e.Delta != 1 {
				t.Errorf("Expected 乙 ward delta +1, got %d", e.Delta)
			}
		}
	}
	if !found {
		t.Error("Imported carryover should push 乙 above the fair base")
	}
}

func TestComputeDeltas(t *testing.T) {
	rc := buildContext(t, nil)
	s := scheduleWithWardDuties(rc, map[string][]int{"甲": {5}})
	l, _, err := decode.BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}

	stats := Compute(rc, l)
	if len(stats) != len(rc.People) {
		t.Fatalf("Expected stats for all %d people, got %d", len(rc.People), len(stats))
	}
	var sum float64
	for _, ps := range stats {
		sum += ps.DutyHoursDelta
	}
	// 参与者偏差相对均值，总和应为零
	if sum < -1e-9 || sum > 1e-9 {
		t.Errorf("Duty-hour deltas should sum to zero, got %v", sum)
	}
	for _, ps := range stats {
		if ps.Name == "甲" && ps.DutyHours != model.HoursOffdayDuty {
			t.Errorf("Expected 21 duty hours for 甲, got %v", ps.DutyHours)
		}
	}
}
