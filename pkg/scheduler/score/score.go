// Package score 对可行排班做公平性评分，分值越低越好
package score

import (
	"time"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/decode"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
	"github.com/zhiban/zhiban/pkg/stats"
)

// Breakdown 评分分解
// ByTier 供拼接合成器按层级挑选最优尝试
type Breakdown struct {
	Total       float64                `json:"total"`
	ByTier      map[model.Tier]float64 `json:"by_tier"`
	Hours       float64                `json:"hours"`
	Carryover   float64                `json:"carryover"`
	Recurrence  float64                `json:"recurrence"`
	WeekendPair float64                `json:"weekend_pair"`
}

func (b *Breakdown) add(t model.Tier, axis *float64, v float64) {
	if v == 0 {
		return
	}
	b.Total += v
	b.ByTier[t] += v
	*axis += v
}

// Evaluate 四轴评分：周工时越界、结转偏差、复发节奏、周末聚集
func Evaluate(rc *rostering.Context, s *model.Schedule, l *decode.Ledger, cfg *model.ScoreConfig) *Breakdown {
	b := &Breakdown{ByTier: make(map[model.Tier]float64)}

	scoreHours(rc, l, cfg, b)
	scoreCarryover(rc, l, cfg, b)
	scoreRecurrence(rc, s, cfg, b)
	scoreWeekendPair(rc, s, cfg, b)

	return b
}

// scoreHours 周工时越界与低利用
// 该周含休假者不计低利用罚分
func scoreHours(rc *rostering.Context, l *decode.Ledger, cfg *model.ScoreConfig, b *Breakdown) {
	weekKeys := make(map[string][]string) // 周 → 该周日期
	for _, d := range rc.Days {
		weekKeys[d.WeekKey] = append(weekKeys[d.WeekKey], d.Key)
	}

	for _, p := range rc.People {
		if !p.Tier.IsCapped() || p.Emergency {
			continue
		}
		w := cfg.For(p.Tier)
		for _, wk := range rc.WeekKeys {
			h := l.Weekly[p.ID][wk]
			switch {
			case h >= model.WeekHardCapStrict:
				b.add(p.Tier, &b.Hours, w.HardExceed)
			case h > model.WeekSoftCap:
				b.add(p.Tier, &b.Hours, w.SoftExceed)
			}
			if h < cfg.Floor && !anyVacation(p, weekKeys[wk]) {
				b.add(p.Tier, &b.Hours, w.UnderFloor)
			}
		}
	}
}

func anyVacation(p *model.Person, keys []string) bool {
	for _, k := range keys {
		if p.Vacations[k] {
			return true
		}
	}
	return false
}

// scoreCarryover 与公平基准的偏差
// R1/R2 按角色独立，R3 用合并计数
func scoreCarryover(rc *rostering.Context, l *decode.Ledger, cfg *model.ScoreConfig, b *Breakdown) {
	penalty := func(w model.Weights, delta int) float64 {
		if delta < 0 {
			delta = -delta
		}
		if delta == 0 {
			return 0
		}
		return w.CarryFlat + w.CarryStep*float64(delta-1)
	}

	axes := func(tier model.Tier) []func(*model.Person) int {
		if tier == model.TierR3 {
			return []func(*model.Person) int{
				func(p *model.Person) int {
					return l.Ward[p.ID] + l.Response[p.ID] + p.Carryover.Ward + p.Carryover.Response
				},
			}
		}
		return []func(*model.Person) int{
			func(p *model.Person) int { return l.Ward[p.ID] + p.Carryover.Ward },
			func(p *model.Person) int { return l.Response[p.ID] + p.Carryover.Response },
		}
	}

	for _, tier := range []model.Tier{model.TierR1, model.TierR2, model.TierR3} {
		people := rc.TierPeople(tier)
		if len(people) < 2 {
			continue
		}
		w := cfg.For(tier)
		for _, count := range axes(tier) {
			counts := make([]int, len(people))
			for i, p := range people {
				counts[i] = count(p)
			}
			base := stats.FairBase(counts)
			for i := range people {
				b.add(tier, &b.Carryover, penalty(w, counts[i]-base))
			}
		}
	}
}

// scoreRecurrence 当值-休一日-当值节奏
// 窗口前一日当值记作下标 -1 参与判定
func scoreRecurrence(rc *rostering.Context, s *model.Schedule, cfg *model.ScoreConfig, b *Breakdown) {
	for _, p := range rc.People {
		if p.Emergency {
			continue
		}
		days := decode.DutyDays(s, p.ID)
		if rc.IsPriorDuty(p.ID) {
			days = append([]int{-1}, days...)
		}
		w := cfg.For(p.Tier)
		for i := 1; i < len(days); i++ {
			if days[i]-days[i-1] == 2 {
				b.add(p.Tier, &b.Recurrence, w.Recurrence)
			}
		}
	}
}

// scoreWeekendPair 同一周末周五与周日双当值
func scoreWeekendPair(rc *rostering.Context, s *model.Schedule, cfg *model.ScoreConfig, b *Breakdown) {
	for di := range s.Days {
		if s.Days[di].Day.Date.Weekday() != time.Friday || di+2 >= len(s.Days) {
			continue
		}
		for _, p := range rc.People {
			if p.Emergency {
				continue
			}
			if s.Days[di].OnDuty(p.ID) && s.Days[di+2].OnDuty(p.ID) {
				b.add(p.Tier, &b.WeekendPair, cfg.For(p.Tier).WeekendPair)
			}
		}
	}
}
