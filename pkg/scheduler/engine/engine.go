// Package engine 驱动三阶段放宽瀑布与并发求解尝试
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/compile"
	"github.com/zhiban/zhiban/pkg/scheduler/decode"
	"github.com/zhiban/zhiban/pkg/scheduler/ilp"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
	"github.com/zhiban/zhiban/pkg/scheduler/score"
	"github.com/zhiban/zhiban/pkg/scheduler/stitch"
	"github.com/zhiban/zhiban/pkg/stats"
)

// Config 引擎配置
type Config struct {
	Attempts   int           // 每阶段求解尝试数
	TimeBudget time.Duration // 全程墙钟预算，只限制新尝试的投放
	Workers    int
	NodeLimit  int
}

// DefaultConfig 返回默认引擎配置
func DefaultConfig() Config {
	return Config{
		Attempts:   8,
		TimeBudget: 5 * time.Second,
		Workers:    4,
	}
}

// Engine 当值排班生成引擎
type Engine struct {
	cfg Config
	log *logger.RosterLogger
}

// New 创建引擎
func New(cfg Config) *Engine {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = DefaultConfig().TimeBudget
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	return &Engine{cfg: cfg, log: logger.NewRosterLogger()}
}

// stage 单个放宽阶段
type stage struct {
	opts    compile.Options
	dropped []string
}

// stages 三阶段放宽瀑布
// 层级休假落在窗口内时，该层级的周当值上限自动失效
func (e *Engine) stages(rc *rostering.Context) []stage {
	r1 := !rc.TierHasVacation(model.TierR1)
	r3 := !rc.TierHasVacation(model.TierR3)

	dropped := func(enforceR1 bool, mode model.HourCapMode) []string {
		var d []string
		if !r1 {
			d = append(d, "r1_weekly_cap(vacation)")
		} else if !enforceR1 {
			d = append(d, "r1_weekly_cap")
		}
		if !r3 {
			d = append(d, "r3_weekly_cap(vacation)")
		}
		if mode == model.HourCapRelaxed {
			d = append(d, "hour_cap_strict")
		}
		return d
	}

	return []stage{
		{compile.Options{EnforceR1WeeklyCap: r1, EnforceR3WeeklyCap: r3, HourCap: model.HourCapStrict},
			dropped(true, model.HourCapStrict)},
		{compile.Options{EnforceR1WeeklyCap: false, EnforceR3WeeklyCap: r3, HourCap: model.HourCapStrict},
			dropped(false, model.HourCapStrict)},
		{compile.Options{EnforceR1WeeklyCap: false, EnforceR3WeeklyCap: r3, HourCap: model.HourCapRelaxed},
			dropped(false, model.HourCapRelaxed)},
	}
}

// Generate 生成当值排班
// 逐阶段并发尝试，首个产出可行解的阶段即终局；三阶段全部无解报致命错误
func (e *Engine) Generate(ctx context.Context, req *model.Request) (*model.Result, error) {
	start := time.Now()

	rc, err := rostering.Build(req)
	if err != nil {
		return nil, err
	}
	runID := rc.RunID.String()
	e.log.StartGenerate(runID, len(rc.People), len(rc.Days))

	baseSeed := uint64(time.Now().UnixNano())
	if req.Seed != nil {
		baseSeed = *req.Seed
	}
	attempts := e.cfg.Attempts
	if req.Attempts > 0 {
		attempts = req.Attempts
	}
	budget := e.cfg.TimeBudget
	if req.TimeBudgetMS > 0 {
		budget = time.Duration(req.TimeBudgetMS) * time.Millisecond
	}
	deadline := start.Add(budget)

	var (
		feasible   []*stitch.Attempt
		finalStage int
		finalOpts  compile.Options
		launched   int
	)
	for si, st := range e.stages(rc) {
		e.log.StageStart(runID, si+1, st.dropped)
		results, n, serr := e.runStage(ctx, rc, st.opts, baseSeed, attempts, deadline)
		launched += n
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if serr != nil {
			return nil, serr
		}
		if len(results) > 0 {
			feasible = results
			finalStage = si + 1
			finalOpts = st.opts
			break
		}
		e.log.StageInfeasible(runID, si+1)
	}
	if len(feasible) == 0 {
		return nil, errors.NoFeasibleSolution(
			fmt.Sprintf("三阶段放宽后仍无可行解（共 %d 次尝试）", launched))
	}

	comp := stitch.Compose(rc, feasible, finalOpts.HourCap, rc.Weights)
	for _, date := range comp.Reverted {
		e.log.StitchRevert(runID, date, "结构不变量重查失败")
	}

	elapsed := time.Since(start)
	e.log.GenerateComplete(runID, finalStage, launched, comp.Score.Total, elapsed)

	result := &model.Result{
		RunID:        runID,
		StartDate:    rc.Days[0].Key,
		EndDate:      rc.Days[len(rc.Days)-1].Key,
		Holidays:     req.Holidays,
		People:       rc.People,
		Schedule:     comp.Schedule.Days,
		Stats:        stats.Compute(rc, comp.Ledger),
		CarryoverOut: stats.CarryoverDeltas(rc, comp.Ledger),
		Warnings:     append(append([]string(nil), rc.Warnings...), comp.Warnings...),
		Stage:        finalStage,
		Attempts:     launched,
		Score:        comp.Score.Total,
		Reverts:      comp.Reverts,
		Elapsed:      elapsed.Milliseconds(),
	}
	return result, nil
}

// attemptResult 带序号便于结果排序，保证同种子可复现
type attemptResult struct {
	index int
	att   *stitch.Attempt
}

// runStage 固定规模工作池跑一个阶段
// 墙钟预算只限制新尝试的投放，已投放的尝试跑完为止
func (e *Engine) runStage(ctx context.Context, rc *rostering.Context, opts compile.Options,
	baseSeed uint64, attempts int, deadline time.Time) ([]*stitch.Attempt, int, error) {

	jobs := make(chan int)
	var (
		mu      sync.Mutex
		results []attemptResult
		defect  error
		wg      sync.WaitGroup
	)

	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				att, err := e.runAttempt(ctx, rc, opts, baseSeed, idx)
				mu.Lock()
				if err != nil && defect == nil {
					defect = err
				}
				if att != nil {
					results = append(results, attemptResult{index: idx, att: att})
				}
				mu.Unlock()
			}
		}()
	}

	launched := 0
	for i := 0; i < attempts; i++ {
		if i > 0 && time.Now().After(deadline) {
			break // 至少投放一次尝试
		}
		if ctx.Err() != nil {
			break
		}
		jobs <- i
		launched++
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	out := make([]*stitch.Attempt, 0, len(results))
	for _, r := range results {
		out = append(out, r.att)
	}
	return out, launched, defect
}

// runAttempt 单次求解尝试：编译、求解、译码、重建台账、评分
// 不可行与节点预算耗尽返回 (nil, nil)；台账缺陷属建模缺陷，原样上抛
func (e *Engine) runAttempt(ctx context.Context, rc *rostering.Context, opts compile.Options,
	baseSeed uint64, idx int) (*stitch.Attempt, error) {

	t0 := time.Now()
	runID := rc.RunID.String()
	seed := baseSeed + uint64(idx)
	opts.Seed = seed

	cp := compile.Build(rc, opts)
	solver := &ilp.BranchBound{NodeLimit: e.cfg.NodeLimit}
	sol, err := solver.Solve(ctx, cp.Model)
	if err != nil {
		// 节点预算耗尽与真不可行同样处置
		e.log.AttemptComplete(runID, idx, seed, false, 0, time.Since(t0))
		return nil, nil
	}

	sched := decode.Schedule(rc, cp, sol)
	att, err := assembleAttempt(rc, sched, opts.HourCap, seed)
	if err != nil {
		logger.WithError(err).Str("run_id", runID).Msg("可行解重建台账失败")
		return nil, err
	}
	e.log.AttemptComplete(runID, idx, seed, true, att.Score.Total, time.Since(t0))
	return att, nil
}

// assembleAttempt 对已译码的排班重建台账并评分
func assembleAttempt(rc *rostering.Context, sched *model.Schedule,
	capMode model.HourCapMode, seed uint64) (*stitch.Attempt, error) {

	ledger, _, err := decode.BuildLedger(rc, sched, capMode)
	if err != nil {
		return nil, err
	}
	return &stitch.Attempt{
		ID:       sched.ID,
		Seed:     seed,
		Schedule: sched,
		Ledger:   ledger,
		Score:    score.Evaluate(rc, sched, ledger, rc.Weights),
	}, nil
}
