package ilp

import (
	"context"
	stderrors "errors"
	"sort"
)

var (
	// ErrInfeasible 模型无可行解
	ErrInfeasible = stderrors.New("ilp: model is infeasible")
	// ErrNodeLimit 搜索节点数耗尽
	ErrNodeLimit = stderrors.New("ilp: node limit exhausted")
	// ErrUngroupedVar 存在不属于任何互斥组的变量
	ErrUngroupedVar = stderrors.New("ilp: variable not covered by any group")
)

const eps = 1e-9

// Solver 求解 0/1 整数线性规划
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// BranchBound 分支定界求解器
// 按互斥取一组分支，MRV 选组，目标系数升序展开候选；
// 目标系数仅用于同分破缺，因此返回首个可行解
type BranchBound struct {
	// NodeLimit 搜索节点上限，0 表示默认
	NodeLimit int
}

const defaultNodeLimit = 200000

type searchState struct {
	m        *Model
	varCons  [][]conRef // 变量出现的约束及系数
	assigned []int8     // -1 未定, 0, 1
	cur      []float64  // 已定为 1 的变量系数和
	posRem   []float64  // 未定变量正系数和
	negRem   []float64  // 未定变量负系数和
	grpDone  []bool
	nodes    int
	limit    int
	obj      float64
}

type conRef struct {
	con  int
	coef float64
}

// Solve 求解模型；无解返回 ErrInfeasible
func (s *BranchBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	limit := s.NodeLimit
	if limit <= 0 {
		limit = defaultNodeLimit
	}

	covered := make([]bool, len(m.Vars))
	for _, g := range m.Groups {
		for _, v := range g {
			covered[v] = true
		}
	}
	for _, ok := range covered {
		if !ok {
			return nil, ErrUngroupedVar
		}
	}

	st := &searchState{
		m:        m,
		varCons:  make([][]conRef, len(m.Vars)),
		assigned: make([]int8, len(m.Vars)),
		cur:      make([]float64, len(m.Cons)),
		posRem:   make([]float64, len(m.Cons)),
		negRem:   make([]float64, len(m.Cons)),
		grpDone:  make([]bool, len(m.Groups)),
		limit:    limit,
	}
	for i := range st.assigned {
		st.assigned[i] = -1
	}
	for ci, con := range m.Cons {
		for _, t := range con.Terms {
			st.varCons[t.Var] = append(st.varCons[t.Var], conRef{con: ci, coef: t.Coef})
			if t.Coef > 0 {
				st.posRem[ci] += t.Coef
			} else {
				st.negRem[ci] += t.Coef
			}
		}
	}

	// 空模型的初始可行性
	for ci := range m.Cons {
		if !st.conFeasible(ci) {
			return nil, ErrInfeasible
		}
	}

	found, err := st.search(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		if st.nodes >= st.limit {
			return nil, ErrNodeLimit
		}
		return nil, ErrInfeasible
	}

	sol := &Solution{Values: make([]bool, len(m.Vars)), Objective: st.obj, Nodes: st.nodes}
	for i, a := range st.assigned {
		sol.Values[i] = a == 1
	}
	return sol, nil
}

func (st *searchState) conFeasible(ci int) bool {
	con := &st.m.Cons[ci]
	if st.cur[ci]+st.negRem[ci] > con.Max+eps {
		return false
	}
	if st.cur[ci]+st.posRem[ci] < con.Min-eps {
		return false
	}
	return true
}

// setVar 赋值并做增量传播，返回是否仍可行
func (st *searchState) setVar(v int, val int8) bool {
	st.assigned[v] = val
	ok := true
	for _, r := range st.varCons[v] {
		if r.coef > 0 {
			st.posRem[r.con] -= r.coef
		} else {
			st.negRem[r.con] -= r.coef
		}
		if val == 1 {
			st.cur[r.con] += r.coef
		}
		if ok && !st.conFeasible(r.con) {
			ok = false
		}
	}
	if val == 1 {
		st.obj += st.m.Vars[v].Weight
	}
	return ok
}

func (st *searchState) unsetVar(v int) {
	val := st.assigned[v]
	for _, r := range st.varCons[v] {
		if r.coef > 0 {
			st.posRem[r.con] += r.coef
		} else {
			st.negRem[r.con] += r.coef
		}
		if val == 1 {
			st.cur[r.con] -= r.coef
		}
	}
	if val == 1 {
		st.obj -= st.m.Vars[v].Weight
	}
	st.assigned[v] = -1
}

// viable 单变量快速检查：置 1 后各约束是否仍可行
func (st *searchState) viable(v int) bool {
	for _, r := range st.varCons[v] {
		cur := st.cur[r.con] + r.coef
		pos, neg := st.posRem[r.con], st.negRem[r.con]
		if r.coef > 0 {
			pos -= r.coef
		} else {
			neg -= r.coef
		}
		con := &st.m.Cons[r.con]
		if cur+neg > con.Max+eps || cur+pos < con.Min-eps {
			return false
		}
	}
	return true
}

// pickGroup MRV：候选最少的未完成组优先
func (st *searchState) pickGroup() (int, []int) {
	best, bestCands := -1, []int(nil)
	for gi, g := range st.m.Groups {
		if st.grpDone[gi] {
			continue
		}
		var cands []int
		for _, v := range g {
			if st.assigned[v] == -1 && st.viable(v) {
				cands = append(cands, v)
			}
		}
		if best == -1 || len(cands) < len(bestCands) {
			best, bestCands = gi, cands
			if len(cands) == 0 {
				break
			}
		}
	}
	return best, bestCands
}

func (st *searchState) search(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	st.nodes++
	if st.nodes > st.limit {
		return false, ErrNodeLimit
	}

	gi, cands := st.pickGroup()
	if gi == -1 {
		return true, nil // 所有组已定
	}
	if len(cands) == 0 {
		return false, nil
	}

	sort.Slice(cands, func(i, j int) bool {
		return st.m.Vars[cands[i]].Weight < st.m.Vars[cands[j]].Weight
	})

	group := st.m.Groups[gi]
	st.grpDone[gi] = true
	for _, chosen := range cands {
		ok := st.setVar(chosen, 1)
		var zeroed []int
		if ok {
			for _, v := range group {
				if v == chosen || st.assigned[v] != -1 {
					continue
				}
				zeroed = append(zeroed, v)
				if !st.setVar(v, 0) {
					ok = false
					break
				}
			}
		}
		if ok {
			found, err := st.search(ctx)
			if err != nil {
				return false, err
			}
			if found {
				return true, nil
			}
		}
		for i := len(zeroed) - 1; i >= 0; i-- {
			st.unsetVar(zeroed[i])
		}
		st.unsetVar(chosen)
	}
	st.grpDone[gi] = false
	return false, nil
}
