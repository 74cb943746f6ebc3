// Package compile 把排班上下文编译为 0/1 整数线性规划模型
package compile

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/ilp"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
)

// Options 单次编译的约束开关
// 放宽阶段逐级关闭周当值上限、调高工时上限
type Options struct {
	EnforceR1WeeklyCap bool
	EnforceR3WeeklyCap bool
	HourCap            model.HourCapMode
	Seed               uint64
}

// VarRef 变量回溯引用：(天, 槽位, 人员)
type VarRef struct {
	Day    int
	Slot   model.SlotIndex
	Person uuid.UUID
}

// Compiled 编译产物
type Compiled struct {
	Model *ilp.Model
	Refs  []VarRef
	Opts  Options
}

// VarAt 某槽位某人的变量下标，不存在返回 -1
func (c *Compiled) VarAt(day int, slot model.SlotIndex, person uuid.UUID) int {
	for vi, ref := range c.Refs {
		if ref.Day == day && ref.Slot == slot && ref.Person == person {
			return vi
		}
	}
	return -1
}

// Build 编译模型
// 目标系数为种子化微随机数，仅用于同分破缺，保证同种子可复现
func Build(rc *rostering.Context, opts Options) *Compiled {
	rng := rand.New(rand.NewSource(int64(opts.Seed)))
	m := ilp.NewModel()
	cp := &Compiled{Model: m, Opts: opts}

	// 变量与互斥取一组
	byPersonDay := make(map[uuid.UUID][][]int)   // 人员 → 天 → 变量
	byPersonRole := make(map[uuid.UUID]map[model.Role][]int)
	for _, p := range rc.People {
		byPersonDay[p.ID] = make([][]int, len(rc.Days))
		byPersonRole[p.ID] = make(map[model.Role][]int)
	}

	for di, day := range rc.Days {
		for si := 0; si < model.SlotCount; si++ {
			cands := rc.Eligible[di][si]
			if len(cands) == 0 {
				continue // 无候选槽位留空，不建组
			}
			group := make([]int, 0, len(cands))
			for _, pid := range cands {
				name := fmt.Sprintf("x[%s/%d/%s]", day.Key, si, rc.Person(pid).Name)
				vi := m.AddVar(name, rng.Float64()*0.001)
				cp.Refs = append(cp.Refs, VarRef{Day: di, Slot: model.SlotIndex(si), Person: pid})
				group = append(group, vi)
				byPersonDay[pid][di] = append(byPersonDay[pid][di], vi)
				byPersonRole[pid][model.SlotIndex(si).Role()] = append(byPersonRole[pid][model.SlotIndex(si).Role()], vi)
			}
			m.AddGroup(fmt.Sprintf("slot[%s/%d]", day.Key, si), group)
		}
	}

	emitDaily(rc, m, byPersonDay)
	emitForced(rc, m, byPersonDay)
	emitRoleCaps(rc, m, byPersonRole)
	emitDayOff(rc, m, byPersonDay)
	emitWeeklyDutyCaps(rc, m, byPersonDay, opts)
	emitWeeklyHours(rc, m, byPersonDay, opts)

	return cp
}

// emitDaily 单日单岗与相邻日禁连值
func emitDaily(rc *rostering.Context, m *ilp.Model, byPersonDay map[uuid.UUID][][]int) {
	for _, p := range rc.People {
		days := byPersonDay[p.ID]
		for di := range rc.Days {
			if len(days[di]) > 1 {
				m.AddAtMost(fmt.Sprintf("one-a-day[%s/%s]", rc.Days[di].Key, p.Name), days[di], 1)
			}
			if di+1 < len(rc.Days) {
				pair := append(append([]int(nil), days[di]...), days[di+1]...)
				if len(pair) > 1 {
					m.AddAtMost(fmt.Sprintf("no-adjacent[%s/%s]", rc.Days[di].Key, p.Name), pair, 1)
				}
			}
		}
	}
}

// emitForced 希望休息日推导出的前一日强制当值
func emitForced(rc *rostering.Context, m *ilp.Model, byPersonDay map[uuid.UUID][][]int) {
	for di, pids := range rc.ForcedDuty {
		for _, pid := range pids {
			vars := byPersonDay[pid][di]
			if len(vars) == 0 {
				continue
			}
			m.AddRange(fmt.Sprintf("forced[%s/%s]", rc.Days[di].Key, rc.Person(pid).Name), vars, 1, 1)
		}
	}
}

// emitRoleCaps 角色配额区间；R3 恰好两名非小儿且无休假时追加成对联动
func emitRoleCaps(rc *rostering.Context, m *ilp.Model, byPersonRole map[uuid.UUID]map[model.Role][]int) {
	r3 := rc.TierPeople(model.TierR3)
	pairwise := len(r3) == 2 && !r3[0].Pediatric && !r3[1].Pediatric &&
		!rc.TierHasVacation(model.TierR3)

	for _, p := range rc.People {
		caps, ok := rc.Caps[p.ID]
		if !ok {
			continue
		}
		if b := caps.Ward; b != nil {
			vars := byPersonRole[p.ID][model.RoleWard]
			if len(vars) > 0 {
				m.AddRange(fmt.Sprintf("cap-ward[%s]", p.Name), vars, float64(b.Floor), float64(b.Cap))
			}
		}
		if b := caps.Response; b != nil {
			vars := byPersonRole[p.ID][model.RoleResponse]
			if len(vars) > 0 {
				m.AddRange(fmt.Sprintf("cap-response[%s]", p.Name), vars, float64(b.Floor), float64(b.Cap))
			}
		}
		if b := caps.Combined; b != nil {
			vars := append(append([]int(nil), byPersonRole[p.ID][model.RoleWard]...),
				byPersonRole[p.ID][model.RoleResponse]...)
			if len(vars) > 0 {
				m.AddRange(fmt.Sprintf("cap-combined[%s]", p.Name), vars, float64(b.Floor), float64(b.Cap))
			}
		}
	}

	if pairwise {
		a, b := r3[0], r3[1]
		for _, role := range []model.Role{model.RoleWard, model.RoleResponse} {
			var terms []ilp.Term
			for _, v := range byPersonRole[a.ID][role] {
				terms = append(terms, ilp.Term{Var: v, Coef: 1})
			}
			for _, v := range byPersonRole[b.ID][role] {
				terms = append(terms, ilp.Term{Var: v, Coef: -1})
			}
			if len(terms) == 0 {
				continue
			}
			// 含结转的差值限制在 ±1
			base := float64(a.Carryover.ByRole(role) - b.Carryover.ByRole(role))
			m.AddLinear(fmt.Sprintf("pair-%s[%s/%s]", role, a.Name, b.Name), terms, -1-base, 1-base)
		}
	}
}

// emitDayOff Day-off 均衡区间
// 事件变量 = 工作日当值且次日亦为窗口内工作日
func emitDayOff(rc *rostering.Context, m *ilp.Model, byPersonDay map[uuid.UUID][][]int) {
	r3 := rc.TierPeople(model.TierR3)
	pairwise := len(r3) == 2 && !r3[0].Pediatric && !r3[1].Pediatric &&
		!rc.TierHasVacation(model.TierR3)

	eventVars := func(pid uuid.UUID) []int {
		var vars []int
		for di := range rc.Days {
			if !rc.Days[di].Workday || di+1 >= len(rc.Days) || !rc.Days[di+1].Workday {
				continue
			}
			if rc.Person(pid).Vacations[rc.Days[di+1].Key] {
				continue // 次日休假不产生 Day-off
			}
			vars = append(vars, byPersonDay[pid][di]...)
		}
		return vars
	}

	for _, p := range rc.People {
		band, ok := rc.DayOffBands[p.ID]
		if !ok {
			continue
		}
		if pairwise && p.Tier == model.TierR3 {
			continue
		}
		vars := eventVars(p.ID)
		if len(vars) == 0 {
			continue
		}
		lo := band.Lo
		if lo > len(vars) {
			lo = len(vars)
		}
		m.AddRange(fmt.Sprintf("dayoff[%s]", p.Name), vars, float64(lo), float64(band.Hi))
	}

	if pairwise {
		a, b := r3[0], r3[1]
		var terms []ilp.Term
		for _, v := range eventVars(a.ID) {
			terms = append(terms, ilp.Term{Var: v, Coef: 1})
		}
		for _, v := range eventVars(b.ID) {
			terms = append(terms, ilp.Term{Var: v, Coef: -1})
		}
		if len(terms) > 0 {
			base := float64(a.Carryover.DayOff - b.Carryover.DayOff)
			m.AddLinear(fmt.Sprintf("pair-dayoff[%s/%s]", a.Name, b.Name), terms, -1-base, 1-base)
		}
	}
}

// emitWeeklyDutyCaps 周当值次数上限：R3 每周 ≤1，R1 每周 ≤ 当周许可
func emitWeeklyDutyCaps(rc *rostering.Context, m *ilp.Model, byPersonDay map[uuid.UUID][][]int, opts Options) {
	weekVars := func(pid uuid.UUID, wk string) []int {
		var vars []int
		for di := range rc.Days {
			if rc.Days[di].WeekKey == wk {
				vars = append(vars, byPersonDay[pid][di]...)
			}
		}
		return vars
	}

	for _, wk := range rc.WeekKeys {
		if opts.EnforceR3WeeklyCap {
			for _, p := range rc.TierPeople(model.TierR3) {
				if vars := weekVars(p.ID, wk); len(vars) > 1 {
					m.AddAtMost(fmt.Sprintf("weekly-r3[%s/%s]", wk, p.Name), vars, 1)
				}
			}
		}
		if opts.EnforceR1WeeklyCap {
			allow := rc.R1WeeklyAllowance[wk]
			for _, p := range rc.TierPeople(model.TierR1) {
				if vars := weekVars(p.ID, wk); len(vars) > allow {
					m.AddAtMost(fmt.Sprintf("weekly-r1[%s/%s]", wk, p.Name), vars, float64(allow))
				}
			}
		}
	}
}

// emitWeeklyHours 周工时硬上限
// 每个变量向当值周贡献追加工时，向次日所在周贡献 -8（自授 Day-off）
func emitWeeklyHours(rc *rostering.Context, m *ilp.Model, byPersonDay map[uuid.UUID][][]int, opts Options) {
	hardcap := opts.HourCap.HardCap()

	for _, p := range rc.People {
		if p.Emergency {
			continue
		}
		weekTerms := make(map[string][]ilp.Term)
		for di, day := range rc.Days {
			for _, vi := range byPersonDay[p.ID][di] {
				duty := model.HoursOffdayDuty
				if day.Workday {
					duty = model.HoursWeekdayDuty
				}
				weekTerms[day.WeekKey] = append(weekTerms[day.WeekKey], ilp.Term{Var: vi, Coef: duty})
				if day.Workday && di+1 < len(rc.Days) && rc.Days[di+1].Workday &&
					!p.Vacations[rc.Days[di+1].Key] {
					nk := rc.Days[di+1].WeekKey
					weekTerms[nk] = append(weekTerms[nk], ilp.Term{Var: vi, Coef: -model.HoursRegular})
				}
			}
		}
		for wk, terms := range weekTerms {
			bound := hardcap - rc.BaselineHours[p.ID][wk]
			m.AddLinear(fmt.Sprintf("hours[%s/%s]", wk, p.Name), terms, math.Inf(-1), bound)
		}
	}
}
