// Package model 定义当值排班引擎的核心数据模型
package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// 工时常数（小时）
const (
	HoursRegular     = 8.0  // 工作日常规工时
	HoursWeekdayDuty = 13.5 // 工作日当值追加工时（当日合计 21.5h）
	HoursOffdayDuty  = 21.0 // 周末/公休日当值工时
)

// 周工时上限（小时）
const (
	WeekSoftCap        = 72.0 // 软上限，超过计警告
	WeekHardCapStrict  = 75.0 // 严格模式硬上限
	WeekHardCapRelaxed = 80.0 // 放宽模式硬上限
	WeekFloorDefault   = 32.0 // 低利用下限（仅参与评分）
)

// HourCapMode 周工时上限模式
type HourCapMode string

const (
	HourCapStrict  HourCapMode = "strict"
	HourCapRelaxed HourCapMode = "relaxed"
)

// HardCap 返回该模式下的周工时硬上限
func (m HourCapMode) HardCap() float64 {
	if m == HourCapRelaxed {
		return WeekHardCapRelaxed
	}
	return WeekHardCapStrict
}

// HardcapMode 角色配额容差模式
type HardcapMode string

const (
	HardcapStrict  HardcapMode = "strict"  // 容差 ±1（R3 恒为 ±2）
	HardcapRelaxed HardcapMode = "relaxed" // 容差 ±2
)

// ReasonCode 槽位未充员原因码
type ReasonCode string

const (
	ReasonNoTierStaff ReasonCode = "no_tier_staff" // 该层级无人
	ReasonVacation    ReasonCode = "vacation"
	ReasonUnavailable ReasonCode = "unavailable"
	ReasonWishedOff   ReasonCode = "wished_off"
	ReasonPediatric   ReasonCode = "pediatric_excluded"
	ReasonCooldown    ReasonCode = "cooldown" // 前一日当值
	ReasonEmergency   ReasonCode = "emergency_backup"
)

// SlotState 槽位状态：已充员(人员) 或 未充员(原因码)
type SlotState struct {
	filled   bool
	personID uuid.UUID
	reasons  []ReasonCode
}

// Filled 构造已充员槽位
func Filled(personID uuid.UUID) SlotState {
	return SlotState{filled: true, personID: personID}
}

// Unfilled 构造未充员槽位
func Unfilled(reasons ...ReasonCode) SlotState {
	return SlotState{reasons: reasons}
}

// IsFilled 是否已充员
func (s SlotState) IsFilled() bool { return s.filled }

// PersonID 返回占用人员（未充员时返回 uuid.Nil）
func (s SlotState) PersonID() uuid.UUID {
	if !s.filled {
		return uuid.Nil
	}
	return s.personID
}

// Reasons 返回未充员原因码
func (s SlotState) Reasons() []ReasonCode { return s.reasons }

// slotStateJSON 槽位状态的序列化形式
type slotStateJSON struct {
	Filled   bool         `json:"filled"`
	PersonID string       `json:"person_id,omitempty"`
	Reasons  []ReasonCode `json:"reasons,omitempty"`
}

// MarshalJSON 实现 json.Marshaler
func (s SlotState) MarshalJSON() ([]byte, error) {
	out := slotStateJSON{Filled: s.filled, Reasons: s.reasons}
	if s.filled {
		out.PersonID = s.personID.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (s *SlotState) UnmarshalJSON(data []byte) error {
	var in slotStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = SlotState{filled: in.Filled, reasons: in.Reasons}
	if in.Filled && in.PersonID != "" {
		id, err := uuid.Parse(in.PersonID)
		if err != nil {
			return err
		}
		s.personID = id
	}
	return nil
}

// DaySchedule 某天的排班结果
type DaySchedule struct {
	Day    Day                   `json:"day"`
	Slots  [SlotCount]SlotState  `json:"slots"`
	Backup uuid.UUID             `json:"backup,omitempty"` // 应急后备（不占槽位）
}

// Underfilled 该日是否存在未充员槽位
func (d *DaySchedule) Underfilled() bool {
	for _, s := range d.Slots {
		if !s.IsFilled() {
			return true
		}
	}
	return false
}

// OnDuty 某人该日是否当值
func (d *DaySchedule) OnDuty(personID uuid.UUID) bool {
	for _, s := range d.Slots {
		if s.IsFilled() && s.PersonID() == personID {
			return true
		}
	}
	return false
}

// Schedule 完整排班表
type Schedule struct {
	ID   uuid.UUID     `json:"id"`
	Days []DaySchedule `json:"days"`
}

// Clone 深拷贝排班表（各尝试之间写时复制，禁止共享可变状态）
func (s *Schedule) Clone() *Schedule {
	clone := &Schedule{ID: s.ID, Days: make([]DaySchedule, len(s.Days))}
	copy(clone.Days, s.Days)
	return clone
}

// PersonStats 单人统计
type PersonStats struct {
	PersonID        uuid.UUID          `json:"person_id"`
	Name            string             `json:"name"`
	Tier            Tier               `json:"tier"`
	WeeklyHours     map[string]float64 `json:"weekly_hours"`
	TotalHours      float64            `json:"total_hours"`
	DutyHours       float64            `json:"duty_hours"`
	WardCount       int                `json:"ward_count"`
	ResponseCount   int                `json:"response_count"`
	DayOffCount     int                `json:"day_off_count"`
	WorkdayDuties   int                `json:"workday_duties"`
	OffdayDuties    int                `json:"offday_duties"`
	TotalHoursDelta float64            `json:"total_hours_delta"` // 相对全员均值
	DutyHoursDelta  float64            `json:"duty_hours_delta"`
}

// DutyCount 总当值次数
func (p *PersonStats) DutyCount() int {
	return p.WardCount + p.ResponseCount
}
