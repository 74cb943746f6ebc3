// Package validator 对排班表做结构不变量校验
package validator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/rostering"
)

// ViolationType 违规类型
type ViolationType string

const (
	ViolationDoubleBooking ViolationType = "double_booking" // 单日双岗
	ViolationTierMismatch  ViolationType = "tier_mismatch"  // 层级不符
	ViolationAdjacentDuty  ViolationType = "adjacent_duty"  // 相邻日连值
	ViolationBlockedDay    ViolationType = "blocked_day"    // 占用不可用日
	ViolationCapExceeded   ViolationType = "cap_exceeded"   // 角色配额越界
)

// Violation 一条违规记录
type Violation struct {
	Type     ViolationType `json:"type"`
	Days     []int         `json:"days"` // 涉及的天下标
	PersonID uuid.UUID     `json:"person_id"`
	Message  string        `json:"message"`
}

// CheckSchedule 校验结构不变量：单日单岗、层级匹配、禁连值、阻断日
func CheckSchedule(rc *rostering.Context, s *model.Schedule) []Violation {
	var out []Violation

	for di := range s.Days {
		ds := &s.Days[di]
		day := ds.Day

		seen := make(map[uuid.UUID]bool)
		for si := 0; si < model.SlotCount; si++ {
			slot := ds.Slots[si]
			if !slot.IsFilled() {
				continue
			}
			pid := slot.PersonID()
			p := rc.Person(pid)

			if seen[pid] {
				out = append(out, Violation{
					Type: ViolationDoubleBooking, Days: []int{di}, PersonID: pid,
					Message: fmt.Sprintf("%s 在 %s 同日占用两个槽位", p.Name, day.Key),
				})
			}
			seen[pid] = true

			if p.Tier != day.Required[si] {
				out = append(out, Violation{
					Type: ViolationTierMismatch, Days: []int{di}, PersonID: pid,
					Message: fmt.Sprintf("%s(%s) 占用 %s 槽位 %d 要求 %s", p.Name, p.Tier, day.Key, si, day.Required[si]),
				})
			}
			if p.IsBlocked(day.Key) {
				out = append(out, Violation{
					Type: ViolationBlockedDay, Days: []int{di}, PersonID: pid,
					Message: fmt.Sprintf("%s 在不可用日 %s 被排班", p.Name, day.Key),
				})
			}
		}

		if di+1 < len(s.Days) {
			next := &s.Days[di+1]
			for pid := range seen {
				if next.OnDuty(pid) {
					out = append(out, Violation{
						Type: ViolationAdjacentDuty, Days: []int{di, di + 1}, PersonID: pid,
						Message: fmt.Sprintf("%s 在 %s 与 %s 连续当值", rc.Person(pid).Name, day.Key, next.Day.Key),
					})
				}
			}
		}
	}
	return out
}

// CheckCaps 校验角色配额区间
func CheckCaps(rc *rostering.Context, s *model.Schedule) []Violation {
	ward := make(map[uuid.UUID]int)
	response := make(map[uuid.UUID]int)
	for di := range s.Days {
		for si := 0; si < model.SlotCount; si++ {
			slot := s.Days[di].Slots[si]
			if !slot.IsFilled() {
				continue
			}
			if model.SlotIndex(si) == model.SlotWard {
				ward[slot.PersonID()]++
			} else {
				response[slot.PersonID()]++
			}
		}
	}

	var out []Violation
	check := func(p *model.Person, label string, count int, b *rostering.Band) {
		if b == nil || (count >= b.Floor && count <= b.Cap) {
			return
		}
		out = append(out, Violation{
			Type: ViolationCapExceeded, PersonID: p.ID,
			Message: fmt.Sprintf("%s 的%s当值 %d 越出区间 [%d, %d]", p.Name, label, count, b.Floor, b.Cap),
		})
	}
	for _, p := range rc.People {
		caps, ok := rc.Caps[p.ID]
		if !ok {
			continue
		}
		check(p, "病房", ward[p.ID], caps.Ward)
		check(p, "应接", response[p.ID], caps.Response)
		check(p, "合并", ward[p.ID]+response[p.ID], caps.Combined)
	}
	return out
}
