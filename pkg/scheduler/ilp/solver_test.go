package ilp

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestSolveSimpleAssignment(t *testing.T) {
	// 两个槽位、两人互斥：每人最多占一个槽位
	m := NewModel()
	a1 := m.AddVar("s1/a", 0.1)
	b1 := m.AddVar("s1/b", 0.2)
	a2 := m.AddVar("s2/a", 0.3)
	b2 := m.AddVar("s2/b", 0.4)
	m.AddGroup("s1", []int{a1, b1})
	m.AddGroup("s2", []int{a2, b2})
	m.AddAtMost("one-a", []int{a1, a2}, 1)
	m.AddAtMost("one-b", []int{b1, b2}, 1)

	sol, err := (&BranchBound{}).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if sol.Values[a1] == sol.Values[a2] {
		t.Error("Person a should take exactly one slot")
	}
	// 权重升序展开：s1 选 a，s2 只剩 b
	if !sol.Values[a1] || !sol.Values[b2] {
		t.Errorf("Expected tie-break by weight, got %v", sol.Values)
	}
}

func TestSolveInfeasible(t *testing.T) {
	// 两个槽位都必须由同一人占用，但该人最多一个槽位
	m := NewModel()
	a1 := m.AddVar("s1/a", 0)
	a2 := m.AddVar("s2/a", 0)
	m.AddGroup("s1", []int{a1})
	m.AddGroup("s2", []int{a2})
	m.AddAtMost("one-a", []int{a1, a2}, 1)

	_, err := (&BranchBound{}).Solve(context.Background(), m)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("Expected ErrInfeasible, got %v", err)
	}
}

func TestSolveLinearBounds(t *testing.T) {
	// 带负系数的区间约束：x1 − x2 ∈ [0, 0] 强制同取
	m := NewModel()
	x1 := m.AddVar("x1", 0.5)
	y1 := m.AddVar("y1", 0.1)
	x2 := m.AddVar("x2", 0.5)
	y2 := m.AddVar("y2", 0.1)
	m.AddGroup("g1", []int{x1, y1})
	m.AddGroup("g2", []int{x2, y2})
	m.AddLinear("link", []Term{{Var: x1, Coef: 1}, {Var: x2, Coef: -1}}, 0, 0)
	// 权重本会让 g1 选 y1、g2 选 y2；link 不受影响
	m.AddLinear("force", []Term{{Var: x1, Coef: 1}, {Var: x2, Coef: 1}}, 2, math.Inf(1))

	sol, err := (&BranchBound{}).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Values[x1] || !sol.Values[x2] {
		t.Errorf("Linear bounds should force x1 and x2, got %v", sol.Values)
	}
}

func TestSolveUngroupedVar(t *testing.T) {
	m := NewModel()
	m.AddVar("stray", 0)
	_, err := (&BranchBound{}).Solve(context.Background(), m)
	if !errors.Is(err, ErrUngroupedVar) {
		t.Fatalf("Expected ErrUngroupedVar, got %v", err)
	}
}

func TestSolveNodeLimit(t *testing.T) {
	// 多组互斥构造较深搜索，节点上限 1 必然耗尽
	m := NewModel()
	var groups [][]int
	for g := 0; g < 4; g++ {
		a := m.AddVar("a", 0)
		b := m.AddVar("b", 0)
		m.AddGroup("g", []int{a, b})
		groups = append(groups, []int{a, b})
	}
	_ = groups

	_, err := (&BranchBound{NodeLimit: 1}).Solve(context.Background(), m)
	if !errors.Is(err, ErrNodeLimit) {
		t.Fatalf("Expected ErrNodeLimit, got %v", err)
	}
}

func TestSolveDeterministic(t *testing.T) {
	build := func() *Model {
		m := NewModel()
		for g := 0; g < 5; g++ {
			a := m.AddVar("a", float64(g)*0.1)
			b := m.AddVar("b", float64(g)*0.2)
			m.AddGroup("g", []int{a, b})
		}
		return m
	}
	s1, err := (&BranchBound{}).Solve(context.Background(), build())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	s2, err := (&BranchBound{}).Solve(context.Background(), build())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	for i := range s1.Values {
		if s1.Values[i] != s2.Values[i] {
			t.Fatal("Same model should produce identical solutions")
		}
	}
}
