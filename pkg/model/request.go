// Package model 定义当值排班引擎的核心数据模型
package model

import (
	"github.com/zhiban/zhiban/pkg/calendar"
)

// StaffInput 人员输入
type StaffInput struct {
	Name      string `json:"name" validate:"required"`
	Tier      Tier   `json:"tier" validate:"omitempty,oneof=R1 R2 R3 R4"`
	Pediatric bool   `json:"pediatric"`
	Emergency bool   `json:"emergency"`
}

// PriorDuty 窗口前一日的当值者（用于首日冷却与 Day-off 接续）
type PriorDuty struct {
	Ward     string `json:"ward,omitempty"`
	Response string `json:"response,omitempty"`
}

// Names 返回非空的当值者姓名
func (p PriorDuty) Names() []string {
	var names []string
	if p.Ward != "" {
		names = append(names, p.Ward)
	}
	if p.Response != "" {
		names = append(names, p.Response)
	}
	return names
}

// Request 排班生成请求
type Request struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date,omitempty"`
	Weeks     int    `json:"weeks,omitempty" validate:"omitempty,min=1,max=8"`

	WeekMode calendar.WeekMode `json:"week_mode,omitempty"`

	Staff    []StaffInput `json:"staff" validate:"required,min=2,dive"`
	Holidays []string     `json:"holidays,omitempty"`

	UnavailableByName map[string][]string `json:"unavailable,omitempty"`
	VacationsByName   map[string][]string `json:"vacations,omitempty"`
	WishedOffByName   map[string][]string `json:"wished_off,omitempty"`

	PriorDuty PriorDuty        `json:"prior_duty,omitempty"`
	Carryover []CarryoverEntry `json:"carryover,omitempty"`

	HardcapMode HardcapMode   `json:"hardcap_mode,omitempty"`
	Template    *RoleTemplate `json:"template,omitempty"`
	Weights     *ScoreConfig  `json:"weights,omitempty"`

	Attempts     int     `json:"attempts,omitempty" validate:"omitempty,min=1,max=64"`
	TimeBudgetMS int     `json:"time_budget_ms,omitempty" validate:"omitempty,min=200,max=30000"`
	Seed         *uint64 `json:"seed,omitempty"` // 固定种子可复现
}

// Result 排班生成结果（对外契约）
type Result struct {
	RunID     string   `json:"run_id"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Holidays  []string `json:"holidays"`

	People   []*Person     `json:"people"`
	Schedule []DaySchedule `json:"schedule"`

	Stats        []PersonStats    `json:"stats"`
	CarryoverOut []CarryoverEntry `json:"carryover_out"` // 供下一窗口导入
	Warnings     []string         `json:"warnings"`

	Stage    int     `json:"stage"`    // 最终成功的放宽阶段 (1-3)
	Attempts int     `json:"attempts"` // 实际求解尝试数
	Score    float64 `json:"score"`    // 合成排班评分，越低越好
	Reverts  int     `json:"reverts"`  // 拼接整天回退数
	Elapsed  int64   `json:"elapsed_ms"`
}
