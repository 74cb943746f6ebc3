package decode

import (
	"testing"

	"github.com/zhiban/zhiban/pkg/errors"
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

func TestLedgerWorkdayDuty(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("甲").ID
	// 周一病房当值，次日工作日应自授 Day-off
	s.Days[0].Slots[model.SlotWard] = model.Filled(pid)

	l, warns, err := BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("No soft-cap warnings expected, got %v", warns)
	}
	if !l.DayOffDays[pid]["2026-03-03"] {
		t.Error("Tuesday should be a day off after Monday duty")
	}
	// 5 个工作日 ×8h − 周二休 8h + 当值 13.5h
	wk := rc.Days[0].WeekKey
	if got := l.Weekly[pid][wk]; got != 45.5 {
		t.Errorf("Expected 45.5h, got %v", got)
	}
	if l.Ward[pid] != 1 || l.WorkdayDuties[pid] != 1 || l.DayOff[pid] != 1 {
		t.Error("Counter mismatch for workday duty")
	}
	// 未当值者维持常规 40h
	other := rc.PersonByName("乙").ID
	if got := l.Weekly[other][wk]; got != 40 {
		t.Errorf("Expected 40h for idle person, got %v", got)
	}
}

func TestLedgerOffdayDuty(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("乙").ID
	// 周六当值计 21h，次日非工作日不授 Day-off
	s.Days[5].Slots[model.SlotWard] = model.Filled(pid)

	l, _, err := BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	wk := rc.Days[5].WeekKey
	if got := l.Weekly[pid][wk]; got != 61 {
		t.Errorf("Expected 40+21=61h, got %v", got)
	}
	if l.DayOff[pid] != 0 || l.OffdayDuties[pid] != 1 {
		t.Error("Offday duty should not grant a day off")
	}
}

func TestLedgerPriorDutySeed(t *testing.T) {
	rc := buildContext(t, func(req *model.Request) {
		req.PriorDuty = model.PriorDuty{Ward: "甲"}
	})
	s := emptySchedule(rc)

	l, _, err := BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	pid := rc.PersonByName("甲").ID
	if !l.DayOffDays[pid]["2026-03-02"] {
		t.Error("Prior-duty person should rest on day 0")
	}
	if got := l.Weekly[pid][rc.Days[0].WeekKey]; got != 32 {
		t.Errorf("Expected 32h after day-0 rest, got %v", got)
	}
}

func TestLedgerVacationSkipsDayOff(t *testing.T) {
	rc := buildContext(t, func(req *model.Request) {
		req.VacationsByName = map[string][]string{"丁": {"2026-03-03"}}
	})
	s := emptySchedule(rc)
	pid := rc.PersonByName("丁").ID
	// 周一当值但次日休假，Day-off 不授予
	s.Days[0].Slots[model.SlotResponse] = model.Filled(pid)

	l, _, err := BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	if l.DayOff[pid] != 0 {
		t.Error("Vacation day must not double as day off")
	}
	// 4 个工作日 ×8h（周二休假）+ 当值 13.5h
	if got := l.Weekly[pid][rc.Days[0].WeekKey]; got != 45.5 {
		t.Errorf("Expected 45.5h, got %v", got)
	}
}

func TestLedgerHardCapDefect(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("甲").ID
	// 连续七天当值远超硬上限，重算必须报缺陷
	for di := range s.Days {
		s.Days[di].Slots[model.SlotWard] = model.Filled(pid)
	}

	_, _, err := BuildLedger(rc, s, model.HourCapRelaxed)
	if !errors.Is(err, errors.CodeLedgerDefect) {
		t.Fatalf("Expected LEDGER_DEFECT, got %v", err)
	}
}

func TestLedgerRebuildIdempotent(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("庚").ID
	s.Days[1].Slots[model.SlotResponse] = model.Filled(pid)

	l1, _, err := BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	l2, _, err := BuildLedger(rc, s, model.HourCapStrict)
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	for _, p := range rc.People {
		if l1.Totals[p.ID] != l2.Totals[p.ID] {
			t.Fatalf("Rebuild should be idempotent for %s", p.Name)
		}
	}
}

func TestDutyDays(t *testing.T) {
	rc := buildContext(t, nil)
	s := emptySchedule(rc)
	pid := rc.PersonByName("乙").ID
	s.Days[0].Slots[model.SlotWard] = model.Filled(pid)
	s.Days[3].Slots[model.SlotWard] = model.Filled(pid)

	days := DutyDays(s, pid)
	if len(days) != 2 || days[0] != 0 || days[1] != 3 {
		t.Errorf("Expected duty days [0 3], got %v", days)
	}
}
