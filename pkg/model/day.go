// Package model 定义当值排班引擎的核心数据模型
package model

import (
	"time"
)

// SlotIndex 槽位下标
type SlotIndex int

const (
	SlotWard     SlotIndex = 0 // 病房当值
	SlotResponse SlotIndex = 1 // 应接当值
	SlotCount              = 2
)

// Role 返回槽位对应的统计角色
func (s SlotIndex) Role() Role {
	if s == SlotWard {
		return RoleWard
	}
	return RoleResponse
}

// RoleTemplate 槽位层级模板
// 工作日按星期几取模板，周末/公休日使用固定模板
type RoleTemplate struct {
	Workday map[time.Weekday][SlotCount]Tier `json:"workday"`
	Offday  [SlotCount]Tier                  `json:"offday"`
}

// DefaultRoleTemplate 返回默认槽位模板
// 周三的应接当值保留给非小儿 R3
func DefaultRoleTemplate() *RoleTemplate {
	return &RoleTemplate{
		Workday: map[time.Weekday][SlotCount]Tier{
			time.Monday:    {TierR1, TierR2},
			time.Tuesday:   {TierR1, TierR3},
			time.Wednesday: {TierR2, TierR3},
			time.Thursday:  {TierR1, TierR2},
			time.Friday:    {TierR1, TierR3},
		},
		Offday: [SlotCount]Tier{TierR1, TierR3},
	}
}

// Required 返回某天各槽位要求的层级
func (rt *RoleTemplate) Required(date time.Time, workday bool) [SlotCount]Tier {
	if !workday {
		return rt.Offday
	}
	if req, ok := rt.Workday[date.Weekday()]; ok {
		return req
	}
	// 平日模板缺失时退回周末模板
	return rt.Offday
}

// Day 排班窗口内的一天
type Day struct {
	Index    int             `json:"index"` // 窗口内下标，0 起
	Date     time.Time       `json:"-"`
	Key      string          `json:"date"`     // YYYY-MM-DD
	WeekKey  string          `json:"week_key"` // 所属周键
	Workday  bool            `json:"workday"`
	Required [SlotCount]Tier `json:"required"` // 各槽位要求层级
}
