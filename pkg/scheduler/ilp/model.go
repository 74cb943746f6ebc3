// Package ilp 提供 0/1 整数线性规划模型与求解器
package ilp

import (
	"math"
)

// Term 约束中的一项：系数 × 变量
type Term struct {
	Var  int
	Coef float64
}

// Constraint 线性约束 Min ≤ Σ Coef·x ≤ Max
// 单边约束用 ±Inf 表示开区间
type Constraint struct {
	Name  string
	Terms []Term
	Min   float64
	Max   float64
}

// Variable 0/1 决策变量
// Weight 为目标函数系数，仅用于同分破缺
type Variable struct {
	Name   string
	Weight float64
}

// Model 0/1 整数线性规划模型
// Groups 为互斥取一的变量组：每组恰有一个变量取 1
// 本求解器要求每个变量恰属于一组
type Model struct {
	Vars   []Variable
	Cons   []Constraint
	Groups [][]int
}

// NewModel 构造空模型
func NewModel() *Model {
	return &Model{}
}

// AddVar 增加变量，返回其下标
func (m *Model) AddVar(name string, weight float64) int {
	m.Vars = append(m.Vars, Variable{Name: name, Weight: weight})
	return len(m.Vars) - 1
}

// AddGroup 增加互斥取一组（同时生成对应等式约束）
func (m *Model) AddGroup(name string, vars []int) {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	m.Cons = append(m.Cons, Constraint{Name: name, Terms: terms, Min: 1, Max: 1})
	m.Groups = append(m.Groups, vars)
}

// AddAtMost Σx ≤ max
func (m *Model) AddAtMost(name string, vars []int, max float64) {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	m.Cons = append(m.Cons, Constraint{Name: name, Terms: terms, Min: math.Inf(-1), Max: max})
}

// AddRange min ≤ Σx ≤ max
func (m *Model) AddRange(name string, vars []int, min, max float64) {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	m.Cons = append(m.Cons, Constraint{Name: name, Terms: terms, Min: min, Max: max})
}

// AddLinear 任意系数的线性约束
func (m *Model) AddLinear(name string, terms []Term, min, max float64) {
	m.Cons = append(m.Cons, Constraint{Name: name, Terms: terms, Min: min, Max: max})
}

// Solution 可行解
type Solution struct {
	Values    []bool
	Objective float64
	Nodes     int // 搜索节点数
}
