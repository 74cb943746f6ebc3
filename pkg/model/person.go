// Package model 定义当值排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Tier 年资层级（有序），R4 为免排层级
type Tier string

const (
	TierR1   Tier = "R1"
	TierR2   Tier = "R2"
	TierR3   Tier = "R3"
	TierR4   Tier = "R4"
	TierNone Tier = "" // 未分层
)

// Tiers 层级遍历顺序
var Tiers = []Tier{TierR1, TierR2, TierR3, TierR4}

// Rank 返回层级序号（R1=1 ... R4=4，未分层=0）
func (t Tier) Rank() int {
	switch t {
	case TierR1:
		return 1
	case TierR2:
		return 2
	case TierR3:
		return 3
	case TierR4:
		return 4
	default:
		return 0
	}
}

// IsCapped 该层级是否参与角色配额约束
// R4 为免排层级，不进模板也不设配额
func (t Tier) IsCapped() bool {
	return t == TierR1 || t == TierR2 || t == TierR3
}

// Role 统计角色
type Role string

const (
	RoleWard     Role = "ward"     // 病房当值（Slot A）
	RoleResponse Role = "response" // 应接当值（Slot B）
	RoleDayOff   Role = "day_off"  // 当值次日休
)

// Carryover 上期结转的带符号保正值
type Carryover struct {
	Ward     int `json:"ward"`
	Response int `json:"response"`
	DayOff   int `json:"day_off"`
}

// ByRole 按角色取结转值
func (c Carryover) ByRole(r Role) int {
	switch r {
	case RoleWard:
		return c.Ward
	case RoleResponse:
		return c.Response
	case RoleDayOff:
		return c.DayOff
	default:
		return 0
	}
}

// CarryoverEntry 上期统计输入条目（调用方预聚合，引擎只读）
type CarryoverEntry struct {
	Name  string `json:"name" db:"name"`
	Role  Role   `json:"role" db:"role"`
	Delta int    `json:"delta" db:"delta"`
}

// Person 排班人员（单次运行内不可变）
type Person struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Tier      Tier      `json:"tier"`
	Pediatric bool      `json:"pediatric"` // 小儿专科标记
	Emergency bool      `json:"emergency"` // 应急后备标记

	Unavailable map[string]bool `json:"-"` // 当值不可日 (YYYY-MM-DD)
	Vacations   map[string]bool `json:"-"` // 休假日
	WishedOff   map[string]bool `json:"-"` // 希望休息日

	Carryover Carryover `json:"carryover"`
}

// IsBlocked 该日是否因休假/不可日/希望休而不可当值
func (p *Person) IsBlocked(dateKey string) bool {
	return p.Vacations[dateKey] || p.Unavailable[dateKey] || p.WishedOff[dateKey]
}

// OnVacationAny 是否有休假日落在给定日期键集合内
func (p *Person) OnVacationAny(dateKeys []string) bool {
	for _, k := range dateKeys {
		if p.Vacations[k] {
			return true
		}
	}
	return false
}
