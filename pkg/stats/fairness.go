// Package stats 计算公平基准、结转偏差与人员统计
package stats

import (
	"sort"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/decode"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
)

// FairBase 层级公平基准
// 存在严格多数值时取多数值，否则取中位数（偶数取下中位）
func FairBase(counts []int) int {
	if len(counts) == 0 {
		return 0
	}
	freq := make(map[int]int)
	for _, c := range counts {
		freq[c]++
	}
	for v, n := range freq {
		if n*2 > len(counts) {
			return v
		}
	}
	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)
	return sorted[(len(sorted)-1)/2]
}

// CarryoverDeltas 计算导出结转
// 逐层级逐角色：实际计数加上导入结转后与公平基准的差值
func CarryoverDeltas(rc *rostering.Context, l *decode.Ledger) []model.CarryoverEntry {
	var out []model.CarryoverEntry

	for _, tier := range []model.Tier{model.TierR1, model.TierR2, model.TierR3} {
		people := rc.TierPeople(tier)
		if len(people) == 0 {
			continue
		}
		type axis struct {
			role  model.Role
			count func(*model.Person) int
		}
		axes := []axis{
			{model.RoleWard, func(p *model.Person) int { return l.Ward[p.ID] + p.Carryover.Ward }},
			{model.RoleResponse, func(p *model.Person) int { return l.Response[p.ID] + p.Carryover.Response }},
			{model.RoleDayOff, func(p *model.Person) int { return l.DayOff[p.ID] + p.Carryover.DayOff }},
		}
		for _, ax := range axes {
			counts := make([]int, len(people))
			for i, p := range people {
				counts[i] = ax.count(p)
			}
			base := FairBase(counts)
			for i, p := range people {
				if d := counts[i] - base; d != 0 {
					out = append(out, model.CarryoverEntry{Name: p.Name, Role: ax.role, Delta: d})
				}
			}
		}
	}
	return out
}

// Compute 汇总人员统计，偏差以参与排班人员均值为基准
func Compute(rc *rostering.Context, l *decode.Ledger) []model.PersonStats {
	var sumTotal, sumDuty float64
	var n int
	for _, p := range rc.People {
		if !p.Tier.IsCapped() || p.Emergency {
			continue
		}
		sumTotal += l.Totals[p.ID]
		sumDuty += l.DutyHours[p.ID]
		n++
	}
	var avgTotal, avgDuty float64
	if n > 0 {
		avgTotal = sumTotal / float64(n)
		avgDuty = sumDuty / float64(n)
	}

	out := make([]model.PersonStats, 0, len(rc.People))
	for _, p := range rc.People {
		ps := model.PersonStats{
			PersonID:      p.ID,
			Name:          p.Name,
			Tier:          p.Tier,
			WeeklyHours:   l.Weekly[p.ID],
			TotalHours:    l.Totals[p.ID],
			DutyHours:     l.DutyHours[p.ID],
			WardCount:     l.Ward[p.ID],
			ResponseCount: l.Response[p.ID],
			DayOffCount:   l.DayOff[p.ID],
			WorkdayDuties: l.WorkdayDuties[p.ID],
			OffdayDuties:  l.OffdayDuties[p.ID],
		}
		if p.Tier.IsCapped() && !p.Emergency {
			ps.TotalHoursDelta = l.Totals[p.ID] - avgTotal
			ps.DutyHoursDelta = l.DutyHours[p.ID] - avgDuty
		}
		out = append(out, ps)
	}
	return out
}
