// Package stitch 把多次可行尝试按层级拼接为合成排班
package stitch

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/decode"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
	"github.com/zhiban/zhiban/pkg/scheduler/score"
	"github.com/zhiban/zhiban/pkg/validator"
)

// Attempt 一次可行的求解尝试
type Attempt struct {
	ID       uuid.UUID
	Seed     uint64
	Schedule *model.Schedule
	Ledger   *decode.Ledger
	Score    *score.Breakdown
}

// Composite 拼接产物
type Composite struct {
	Schedule *model.Schedule
	Ledger   *decode.Ledger
	Score    *score.Breakdown
	Warnings []string
	Reverts  int      // 回退到基线的天数
	Reverted []string // 回退日期
}

// Compose 合成排班
// 以全局最优尝试为基线，各层级槽位改取该层级分量最优的尝试；
// 拼接后重查结构不变量，违规按整天回退基线；台账始终整体重建，
// 重建触及工时硬上限时放弃拼接、整体退回基线。
func Compose(rc *rostering.Context, attempts []*Attempt, capMode model.HourCapMode, cfg *model.ScoreConfig) *Composite {
	baseline := attempts[0]
	for _, a := range attempts[1:] {
		if a.Score.Total < baseline.Score.Total {
			baseline = a
		}
	}
	if len(attempts) == 1 {
		return fromAttempt(baseline)
	}

	bestByTier := make(map[model.Tier]*Attempt)
	for _, day := range rc.Days {
		for si := 0; si < model.SlotCount; si++ {
			t := day.Required[si]
			if _, ok := bestByTier[t]; ok {
				continue
			}
			best := attempts[0]
			for _, a := range attempts[1:] {
				if a.Score.ByTier[t] < best.Score.ByTier[t] {
					best = a
				}
			}
			bestByTier[t] = best
		}
	}

	comp := &model.Schedule{ID: uuid.New(), Days: make([]model.DaySchedule, len(rc.Days))}
	for di := range rc.Days {
		ds := baseline.Schedule.Days[di]
		for si := 0; si < model.SlotCount; si++ {
			if src, ok := bestByTier[rc.Days[di].Required[si]]; ok {
				ds.Slots[si] = src.Schedule.Days[di].Slots[si]
			}
		}
		comp.Days[di] = ds
	}

	c := &Composite{Schedule: comp}

	// 结构不变量重查，违规整天回退基线
	for pass := 0; pass < len(rc.Days); pass++ {
		violations := validator.CheckSchedule(rc, comp)
		if len(violations) == 0 {
			break
		}
		reverted := make(map[int]bool)
		for _, v := range violations {
			for _, di := range v.Days {
				if !reverted[di] {
					comp.Days[di] = baseline.Schedule.Days[di]
					reverted[di] = true
					c.Reverts++
					c.Reverted = append(c.Reverted, rc.Days[di].Key)
				}
			}
		}
		c.Warnings = append(c.Warnings,
			fmt.Sprintf("拼接在第 %d 轮重查发现 %d 处违规，回退 %d 天", pass+1, len(violations), len(reverted)))
	}

	ledger, warns, err := decode.BuildLedger(rc, comp, capMode)
	if err != nil {
		// 拼接破坏了周工时上限，整体退回基线
		out := fromAttempt(baseline)
		out.Warnings = append(c.Warnings, "拼接触及周工时硬上限，整体退回基线排班")
		return out
	}
	c.Ledger = ledger
	c.Warnings = append(c.Warnings, warns...)
	c.Score = score.Evaluate(rc, comp, ledger, cfg)
	return c
}

func fromAttempt(a *Attempt) *Composite {
	return &Composite{Schedule: a.Schedule, Ledger: a.Ledger, Score: a.Score}
}
