// Package decode 把求解结果译回排班表，并从零重建工时台账
package decode

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/compile"
	"github.com/zhiban/zhiban/pkg/scheduler/ilp"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
)

// Schedule 从可行解还原排班表
// 无候选槽位保持未充员并携带原因码；应急后备逐日落位
func Schedule(rc *rostering.Context, cp *compile.Compiled, sol *ilp.Solution) *model.Schedule {
	s := &model.Schedule{ID: uuid.New(), Days: make([]model.DaySchedule, len(rc.Days))}
	for di, day := range rc.Days {
		ds := model.DaySchedule{Day: day}
		for si := 0; si < model.SlotCount; si++ {
			ds.Slots[si] = model.Unfilled(rc.UnfillReasons[di][si]...)
		}
		if rc.Backup != nil {
			ds.Backup = rc.Backup.ID
		}
		s.Days[di] = ds
	}
	for vi, on := range sol.Values {
		if !on {
			continue
		}
		ref := cp.Refs[vi]
		s.Days[ref.Day].Slots[ref.Slot] = model.Filled(ref.Person)
	}
	return s
}

// Ledger 工时台账，始终从排班表整体重建
type Ledger struct {
	Weekly        map[uuid.UUID]map[string]float64
	Totals        map[uuid.UUID]float64
	DutyHours     map[uuid.UUID]float64
	Ward          map[uuid.UUID]int
	Response      map[uuid.UUID]int
	DayOff        map[uuid.UUID]int
	DayOffDays    map[uuid.UUID]map[string]bool
	WorkdayDuties map[uuid.UUID]int
	OffdayDuties  map[uuid.UUID]int
}

func newLedger() *Ledger {
	return &Ledger{
		Weekly:        make(map[uuid.UUID]map[string]float64),
		Totals:        make(map[uuid.UUID]float64),
		DutyHours:     make(map[uuid.UUID]float64),
		Ward:          make(map[uuid.UUID]int),
		Response:      make(map[uuid.UUID]int),
		DayOff:        make(map[uuid.UUID]int),
		DayOffDays:    make(map[uuid.UUID]map[string]bool),
		WorkdayDuties: make(map[uuid.UUID]int),
		OffdayDuties:  make(map[uuid.UUID]int),
	}
}

// BuildLedger 两遍重建台账
// 第一遍判定自授 Day-off（工作日当值 → 次一窗口内工作日休），
// 首日由窗口前一日当值输入接续；第二遍按日计提工时。
// 周工时超过软上限产生警告，越过硬上限视为台账缺陷并报错。
func BuildLedger(rc *rostering.Context, s *model.Schedule, capMode model.HourCapMode) (*Ledger, []string, error) {
	l := newLedger()
	for _, p := range rc.People {
		l.Weekly[p.ID] = make(map[string]float64, len(rc.WeekKeys))
		l.DayOffDays[p.ID] = make(map[string]bool)
	}

	// 第一遍：Day-off 判定
	if len(s.Days) > 0 && s.Days[0].Day.Workday {
		for _, pid := range rc.PriorDutyIDs {
			if !rc.Person(pid).Vacations[s.Days[0].Day.Key] {
				l.DayOffDays[pid][s.Days[0].Day.Key] = true
			}
		}
	}
	for di, ds := range s.Days {
		if !ds.Day.Workday || di+1 >= len(s.Days) || !s.Days[di+1].Day.Workday {
			continue
		}
		nextKey := s.Days[di+1].Day.Key
		for si := 0; si < model.SlotCount; si++ {
			if !ds.Slots[si].IsFilled() {
				continue
			}
			pid := ds.Slots[si].PersonID()
			if rc.Person(pid).Vacations[nextKey] {
				continue
			}
			l.DayOffDays[pid][nextKey] = true
		}
	}
	for pid, days := range l.DayOffDays {
		l.DayOff[pid] = len(days)
	}

	// 第二遍：逐日计提
	for _, ds := range s.Days {
		day := ds.Day
		for _, p := range rc.People {
			if day.Workday && !p.Vacations[day.Key] && !l.DayOffDays[p.ID][day.Key] {
				l.Weekly[p.ID][day.WeekKey] += model.HoursRegular
			}
		}
		for si := 0; si < model.SlotCount; si++ {
			if !ds.Slots[si].IsFilled() {
				continue
			}
			pid := ds.Slots[si].PersonID()
			duty := model.HoursOffdayDuty
			if day.Workday {
				duty = model.HoursWeekdayDuty
				l.WorkdayDuties[pid]++
			} else {
				l.OffdayDuties[pid]++
			}
			l.Weekly[pid][day.WeekKey] += duty
			l.DutyHours[pid] += duty
			if model.SlotIndex(si) == model.SlotWard {
				l.Ward[pid]++
			} else {
				l.Response[pid]++
			}
		}
	}

	var warnings []string
	hardcap := capMode.HardCap()
	for _, p := range rc.People {
		for _, wk := range rc.WeekKeys {
			h := l.Weekly[p.ID][wk]
			l.Totals[p.ID] += h
			if h > hardcap {
				return nil, nil, errors.LedgerDefect(p.Name, wk, h)
			}
			if h > model.WeekSoftCap {
				warnings = append(warnings,
					fmt.Sprintf("%s 在 %s 周的工时 %.1fh 超过软上限 %.0fh", p.Name, wk, h, model.WeekSoftCap))
			}
		}
	}
	return l, warnings, nil
}

// DutyDays 某人的当值日下标（升序）
func DutyDays(s *model.Schedule, pid uuid.UUID) []int {
	var days []int
	for di := range s.Days {
		if s.Days[di].OnDuty(pid) {
			days = append(days, di)
		}
	}
	return days
}
