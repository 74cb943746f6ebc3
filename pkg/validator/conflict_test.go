package validator

import (
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
)

// 2026-03-02 为周一
func buildContext(t *testing.T, mutate func(*model.Request)) *rostering.Context {
	t.Helper()
	req := &model.Request{
		StartDate: "2026-03-02",
		Weeks:     1,
		Staff: []model.StaffInput{
			{Name: "甲", Tier: model.TierR1},
			{Name: "乙", Tier: model.TierR1},
			{Name: "丁", Tier: model.TierR2},
			{Name: "庚", Tier: model.TierR3},
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

func emptySchedule(rc *rostering.Context) *model.Schedule {
	s := &model.Schedule{Days: make([]model.DaySchedule, len(rc.Days))}
	for i, d := range rc.Days {
		ds := model.DaySchedule{Day: d}
		for si := 0; si < model.SlotCount; si++ {
			ds.Slots[si] = model.Unfilled()
		}
		s.Days[i] = ds
	}
	return s
}

func countType(vs []Violation, vt ViolationType) int {
	n := 0
	for _, v := range vs {
		if v.Type == vt {
			n++
		}
	}
	return n
}

func TestCheckScheduleClean(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	// 周一 {R1, R2}
	s.Days[0].Slots[model.SlotWard] = model.Filled(rc.PersonByName("甲").ID)
	s.Days[0].Slots[model.SlotResponse] = model.Filled(rc.PersonByName("丁").ID)

	if vs := CheckSchedule(rc, s); len(vs) != 0 {
		t.Errorf("Clean schedule should pass, got %v", vs)
	}
}

func TestCheckDoubleBooking(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("甲").ID
	s.Days[0].Slots[model.SlotWard] = model.Filled(pid)
	s.Days[0].Slots[model.SlotResponse] = model.Filled(pid)

	vs := CheckSchedule(rc, s)
	if countType(vs, ViolationDoubleBooking) != 1 {
		t.Errorf("Expected one double-booking violation, got %v", vs)
	}
	// 甲占用 R2 槽位也应报层级不符
	if countType(vs, ViolationTierMismatch) != 1 {
		t.Errorf("Expected one tier mismatch, got %v", vs)
	}
}

func TestCheckAdjacentDuty(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("乙").ID
	s.Days[0].Slots[model.SlotWard] = model.Filled(pid)
	s.Days[1].Slots[model.SlotWard] = model.Filled(pid)

	vs := CheckSchedule(rc, s)
	if countType(vs, ViolationAdjacentDuty) != 1 {
		t.Errorf("Expected one adjacent-duty violation, got %v", vs)
	}
}

func TestCheckBlockedDay(t *testing.T) {
	rc := buildContext(t, func(req *model.Request) {
		req.VacationsByName = map[string][]string{"甲": {"2026-03-02"}}
	})
	s := emptySchedule(rc)
	s.Days[0].Slots[model.SlotWard] = model.Filled(rc.PersonByName("甲").ID)

	vs := CheckSchedule(rc, s)
	if countType(vs, ViolationBlockedDay) != 1 {
		t.Errorf("Expected one blocked-day violation, got %v", vs)
	}
}

func TestCheckCaps(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	// 把所有 R1 病房槽位都压给甲，必然越出配额区间
	for di, day := range rc.Days {
		if day.Required[model.SlotWard] == model.TierR1 {
			s.Days[di].Slots[model.SlotWard] = model.Filled(rc.PersonByName("甲").ID)
		}
	}

	vs := CheckCaps(rc, s)
	found := false
	for _, v := range vs {
		if v.Type == ViolationCapExceeded && v.PersonID == rc.PersonByName("甲").ID {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected cap violation for 甲, got %v", vs)
	}
}
