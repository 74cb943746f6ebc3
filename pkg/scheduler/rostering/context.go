// Package rostering 构建排班上下文：资格集合、槽位层级需求与公平性配额
package rostering

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/calendar"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/model"
)

// Band 配额区间 [Floor, Cap]
type Band struct {
	Floor int `json:"floor"`
	Cap   int `json:"cap"`
}

// RoleCaps 单人角色配额
// R3 使用合并区间，其余层级病房/应接各自独立
type RoleCaps struct {
	Combined *Band `json:"combined,omitempty"`
	Ward     *Band `json:"ward,omitempty"`
	Response *Band `json:"response,omitempty"`
}

// DayOffBand 单人 Day-off 均衡区间（已扣除结转与首日接续）
type DayOffBand struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Context 排班上下文
// 一次构建、全程只读；各求解尝试绝不共享可变状态
type Context struct {
	RunID uuid.UUID

	Start    time.Time
	End      time.Time
	Days     []model.Day
	WeekMode calendar.WeekMode
	WeekKeys []string
	Holidays map[string]bool

	People []*model.Person
	Backup *model.Person // 应急后备，不占槽位

	HardcapMode model.HardcapMode
	Template    *model.RoleTemplate
	Weights     *model.ScoreConfig

	// Eligible[d][s] 为第 d 天槽位 s 的候选人员
	Eligible [][model.SlotCount][]uuid.UUID
	// UnfillReasons[d][s] 为无候选槽位的原因码
	UnfillReasons [][model.SlotCount][]model.ReasonCode

	// ForcedDuty[d] 为第 d 天必须当值的人员（由希望休息日推导）
	ForcedDuty map[int][]uuid.UUID
	// PriorDutyIDs 窗口前一日当值者（首日冷却与 Day-off 接续）
	PriorDutyIDs []uuid.UUID

	Caps        map[uuid.UUID]RoleCaps
	DayOffBands map[uuid.UUID]DayOffBand

	// BaselineHours[p][week] 为常规工时基线（休假与首日接续已扣除）
	BaselineHours map[uuid.UUID]map[string]float64
	// R1WeeklyAllowance[week] 为该周 R1 周当值上限（2，结构性短缺时 3）
	R1WeeklyAllowance map[string]int

	// Warnings 构建期产生的非致命警告（如无法满足的希望休）
	Warnings []string

	byID   map[uuid.UUID]*model.Person
	byName map[string]*model.Person
}

// Person 按 ID 取人员
func (c *Context) Person(id uuid.UUID) *model.Person {
	return c.byID[id]
}

// PersonByName 按姓名取人员
func (c *Context) PersonByName(name string) *model.Person {
	return c.byName[name]
}

// IsEligible 某人是否为指定槽位候选
func (c *Context) IsEligible(day int, slot model.SlotIndex, id uuid.UUID) bool {
	for _, pid := range c.Eligible[day][slot] {
		if pid == id {
			return true
		}
	}
	return false
}

// IsPriorDuty 是否为窗口前一日当值者
func (c *Context) IsPriorDuty(id uuid.UUID) bool {
	for _, pid := range c.PriorDutyIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// TierHasVacation 某层级是否有人休假落在窗口内
func (c *Context) TierHasVacation(t model.Tier) bool {
	for _, p := range c.People {
		if p.Tier != t || p.Emergency {
			continue
		}
		for _, d := range c.Days {
			if p.Vacations[d.Key] {
				return true
			}
		}
	}
	return false
}

// TierPeople 某层级参与排班的人员（剔除应急后备）
func (c *Context) TierPeople(t model.Tier) []*model.Person {
	var out []*model.Person
	for _, p := range c.People {
		if p.Tier == t && !p.Emergency {
			out = append(out, p)
		}
	}
	return out
}

// Build 从请求构建排班上下文
// 输入非法立即失败，不进入求解管线
func Build(req *model.Request) (*Context, error) {
	if len(req.Staff) < 2 {
		return nil, errors.InsufficientStaff(len(req.Staff))
	}

	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return nil, errors.InvalidWindow(fmt.Sprintf("起始日 %q 无法解析", req.StartDate))
	}

	var totalDays int
	if req.EndDate != "" {
		end, err := calendar.ParseDate(req.EndDate)
		if err != nil {
			return nil, errors.InvalidWindow(fmt.Sprintf("结束日 %q 无法解析", req.EndDate))
		}
		if end.Before(start) {
			return nil, errors.InvalidWindow("结束日早于起始日")
		}
		totalDays = int(end.Sub(start).Hours()/24) + 1
	} else {
		weeks := req.Weeks
		if weeks <= 0 {
			weeks = 4
		}
		totalDays = weeks * 7
	}

	mode := req.WeekMode
	if mode == "" {
		mode = calendar.WeekModeCalendar
	}
	tpl := req.Template
	if tpl == nil {
		tpl = model.DefaultRoleTemplate()
	}
	weights := req.Weights
	if weights == nil {
		weights = model.DefaultScoreConfig()
	}
	hardcap := req.HardcapMode
	if hardcap == "" {
		hardcap = model.HardcapStrict
	}

	holidays := make(map[string]bool, len(req.Holidays))
	for _, h := range req.Holidays {
		if _, err := calendar.ParseDate(h); err != nil {
			return nil, errors.InvalidInput("holidays", fmt.Sprintf("%q 无法解析", h))
		}
		holidays[h] = true
	}

	c := &Context{
		RunID:       uuid.New(),
		Start:       start,
		End:         calendar.AddDays(start, totalDays-1),
		WeekMode:    mode,
		Holidays:    holidays,
		HardcapMode: hardcap,
		Template:    tpl,
		Weights:     weights,
		ForcedDuty:  make(map[int][]uuid.UUID),
		byID:        make(map[uuid.UUID]*model.Person),
		byName:      make(map[string]*model.Person),
	}

	if err := c.buildPeople(req); err != nil {
		return nil, err
	}
	c.buildDays(totalDays)
	c.buildEligibility(req)
	c.deriveForcedDuty()
	c.buildCaps()
	c.buildDayOffBands()
	c.buildBaselines()
	c.buildWeeklyAllowance()

	return c, nil
}

// buildPeople 构建人员与各类日期集合
func (c *Context) buildPeople(req *model.Request) error {
	for _, in := range req.Staff {
		if in.Name == "" {
			return errors.InvalidInput("staff", "姓名不能为空")
		}
		if _, dup := c.byName[in.Name]; dup {
			return errors.InvalidInput("staff", fmt.Sprintf("姓名 %q 重复", in.Name))
		}
		p := &model.Person{
			ID:          uuid.New(),
			Name:        in.Name,
			Tier:        in.Tier,
			Pediatric:   in.Pediatric,
			Emergency:   in.Emergency,
			Unavailable: make(map[string]bool),
			Vacations:   make(map[string]bool),
			WishedOff:   make(map[string]bool),
		}
		c.People = append(c.People, p)
		c.byID[p.ID] = p
		c.byName[p.Name] = p
		if p.Emergency && c.Backup == nil {
			c.Backup = p
		}
	}

	fill := func(field string, byName map[string][]string, get func(*model.Person) map[string]bool) error {
		for name, dates := range byName {
			p := c.byName[name]
			if p == nil {
				c.Warnings = append(c.Warnings, fmt.Sprintf("%s 中的姓名 %q 不在人员名单内", field, name))
				continue
			}
			for _, d := range dates {
				if _, err := calendar.ParseDate(d); err != nil {
					return errors.InvalidInput(field, fmt.Sprintf("%q 无法解析", d))
				}
				get(p)[d] = true
			}
		}
		return nil
	}
	if err := fill("unavailable", req.UnavailableByName, func(p *model.Person) map[string]bool { return p.Unavailable }); err != nil {
		return err
	}
	if err := fill("vacations", req.VacationsByName, func(p *model.Person) map[string]bool { return p.Vacations }); err != nil {
		return err
	}
	if err := fill("wished_off", req.WishedOffByName, func(p *model.Person) map[string]bool { return p.WishedOff }); err != nil {
		return err
	}

	for _, e := range req.Carryover {
		p := c.byName[e.Name]
		if p == nil {
			c.Warnings = append(c.Warnings, fmt.Sprintf("结转条目中的姓名 %q 不在人员名单内", e.Name))
			continue
		}
		switch e.Role {
		case model.RoleWard:
			p.Carryover.Ward += e.Delta
		case model.RoleResponse:
			p.Carryover.Response += e.Delta
		case model.RoleDayOff:
			p.Carryover.DayOff += e.Delta
		}
	}

	for _, name := range req.PriorDuty.Names() {
		p := c.byName[name]
		if p == nil {
			c.Warnings = append(c.Warnings, fmt.Sprintf("前一日当值姓名 %q 不在人员名单内", name))
			continue
		}
		c.PriorDutyIDs = append(c.PriorDutyIDs, p.ID)
	}
	return nil
}

// buildDays 构建窗口天序列与模板需求
func (c *Context) buildDays(totalDays int) {
	dates := calendar.Range(c.Start, totalDays)
	c.Days = make([]model.Day, totalDays)
	for i, d := range dates {
		workday := calendar.IsWorkday(d, c.Holidays)
		c.Days[i] = model.Day{
			Index:    i,
			Date:     d,
			Key:      calendar.FormatDate(d),
			WeekKey:  calendar.WeekKey(d, c.WeekMode, c.Start),
			Workday:  workday,
			Required: c.Template.Required(d, workday),
		}
	}
	c.WeekKeys = calendar.WeekKeys(dates, c.WeekMode, c.Start)
}

// buildEligibility 逐天逐槽位收集候选，无候选槽位记录原因码
func (c *Context) buildEligibility(req *model.Request) {
	c.Eligible = make([][model.SlotCount][]uuid.UUID, len(c.Days))
	c.UnfillReasons = make([][model.SlotCount][]model.ReasonCode, len(c.Days))

	for di, day := range c.Days {
		for si := 0; si < model.SlotCount; si++ {
			required := day.Required[si]
			reasons := make(map[model.ReasonCode]bool)
			tierExists := false

			for _, p := range c.People {
				if p.Tier != required {
					continue
				}
				if p.Emergency {
					reasons[model.ReasonEmergency] = true
					continue
				}
				tierExists = true
				switch {
				case p.Vacations[day.Key]:
					reasons[model.ReasonVacation] = true
				case p.Unavailable[day.Key]:
					reasons[model.ReasonUnavailable] = true
				case p.WishedOff[day.Key]:
					reasons[model.ReasonWishedOff] = true
				case p.Pediatric && p.Tier == model.TierR3 && day.Workday && day.Date.Weekday() == time.Wednesday:
					reasons[model.ReasonPediatric] = true
				case di == 0 && c.IsPriorDuty(p.ID):
					reasons[model.ReasonCooldown] = true
				default:
					c.Eligible[di][si] = append(c.Eligible[di][si], p.ID)
				}
			}

			if len(c.Eligible[di][si]) == 0 {
				if !tierExists {
					c.UnfillReasons[di][si] = []model.ReasonCode{model.ReasonNoTierStaff}
					continue
				}
				var codes []model.ReasonCode
				for _, code := range []model.ReasonCode{
					model.ReasonVacation, model.ReasonUnavailable, model.ReasonWishedOff,
					model.ReasonPediatric, model.ReasonCooldown, model.ReasonEmergency,
				} {
					if reasons[code] {
						codes = append(codes, code)
					}
				}
				c.UnfillReasons[di][si] = codes
			}
		}
	}
}

// deriveForcedDuty 把工作日的希望休息日翻译成前一日强制当值
func (c *Context) deriveForcedDuty() {
	dayIdx := make(map[string]int, len(c.Days))
	for i, d := range c.Days {
		dayIdx[d.Key] = i
	}

	for _, p := range c.People {
		if p.Emergency {
			continue
		}
		for wish := range p.WishedOff {
			wi, ok := dayIdx[wish]
			if !ok || !c.Days[wi].Workday {
				continue
			}
			prev := wi - 1
			eligible := prev >= 0 && (c.IsEligible(prev, model.SlotWard, p.ID) || c.IsEligible(prev, model.SlotResponse, p.ID))
			if !eligible {
				c.Warnings = append(c.Warnings,
					fmt.Sprintf("%s 的希望休息日 %s 无法通过前一日强制当值满足", p.Name, wish))
				continue
			}
			c.ForcedDuty[prev] = append(c.ForcedDuty[prev], p.ID)
		}
	}
}

// buildCaps 计算角色配额区间
// 公平目标 = 层级角色总槽数 × (个人资格实例 / 层级资格实例总和)
func (c *Context) buildCaps() {
	c.Caps = make(map[uuid.UUID]RoleCaps)

	// 层级角色总需求
	tierRoleTotal := make(map[model.Tier]map[model.Role]int)
	for _, day := range c.Days {
		for si := 0; si < model.SlotCount; si++ {
			t := day.Required[si]
			if tierRoleTotal[t] == nil {
				tierRoleTotal[t] = make(map[model.Role]int)
			}
			tierRoleTotal[t][model.SlotIndex(si).Role()]++
		}
	}

	// 个人资格实例
	eligibleCount := make(map[uuid.UUID]map[model.Role]int)
	for di := range c.Days {
		for si := 0; si < model.SlotCount; si++ {
			role := model.SlotIndex(si).Role()
			for _, pid := range c.Eligible[di][si] {
				if eligibleCount[pid] == nil {
					eligibleCount[pid] = make(map[model.Role]int)
				}
				eligibleCount[pid][role]++
			}
		}
	}

	tolerance := func(t model.Tier) int {
		if t == model.TierR3 {
			return 2
		}
		if c.HardcapMode == model.HardcapRelaxed {
			return 2
		}
		return 1
	}

	band := func(total, own, tierTotal, tol, carry, maxEligible int) *Band {
		if tierTotal == 0 || own == 0 {
			z := 0
			if own > 0 {
				z = own
			}
			return &Band{Floor: 0, Cap: clampInt(z, 0, maxEligible)}
		}
		target := float64(total) * float64(own) / float64(tierTotal)
		cap := int(math.Ceil(target)) + tol - carry
		floor := int(math.Ceil(target)) - tol - carry
		if cap < 0 {
			cap = 0
		}
		if floor < 0 {
			floor = 0
		}
		if floor > maxEligible {
			floor = maxEligible
		}
		if floor > cap {
			floor = cap
		}
		return &Band{Floor: floor, Cap: cap}
	}

	for t := range tierRoleTotal {
		if !t.IsCapped() {
			continue
		}
		people := c.TierPeople(t)

		for _, role := range []model.Role{model.RoleWard, model.RoleResponse} {
			tierEligible := 0
			for _, p := range people {
				tierEligible += eligibleCount[p.ID][role]
			}
			for _, p := range people {
				caps := c.Caps[p.ID]
				if t == model.TierR3 {
					continue // R3 走合并区间
				}
				b := band(tierRoleTotal[t][role], eligibleCount[p.ID][role], tierEligible,
					tolerance(t), p.Carryover.ByRole(role), eligibleCount[p.ID][role])
				if role == model.RoleWard {
					caps.Ward = b
				} else {
					caps.Response = b
				}
				c.Caps[p.ID] = caps
			}
		}

		if t == model.TierR3 {
			total := tierRoleTotal[t][model.RoleWard] + tierRoleTotal[t][model.RoleResponse]
			tierEligible := 0
			for _, p := range people {
				tierEligible += eligibleCount[p.ID][model.RoleWard] + eligibleCount[p.ID][model.RoleResponse]
			}
			for _, p := range people {
				own := eligibleCount[p.ID][model.RoleWard] + eligibleCount[p.ID][model.RoleResponse]
				caps := c.Caps[p.ID]
				caps.Combined = band(total, own, tierEligible,
					tolerance(t), p.Carryover.Ward+p.Carryover.Response, own)
				c.Caps[p.ID] = caps
			}
		}
	}
}

// buildDayOffBands 计算 Day-off 均衡区间
// 结构性可能事件数 = 工作日且次日亦为窗口内工作日的天数 × 槽位数
func (c *Context) buildDayOffBands() {
	c.DayOffBands = make(map[uuid.UUID]DayOffBand)

	possible := 0
	for i := 0; i+1 < len(c.Days); i++ {
		if c.Days[i].Workday && c.Days[i+1].Workday {
			possible += model.SlotCount
		}
	}

	var pop int
	for _, p := range c.People {
		if p.Tier.IsCapped() && !p.Emergency {
			pop++
		}
	}
	if pop == 0 {
		return
	}
	avg := float64(possible) / float64(pop)

	day0Workday := len(c.Days) > 0 && c.Days[0].Workday
	for _, p := range c.People {
		if !p.Tier.IsCapped() || p.Emergency {
			continue
		}
		seed := 0
		if day0Workday && c.IsPriorDuty(p.ID) {
			seed = 1 // 窗口前一日当值者首日即休
		}
		hi := int(math.Ceil(avg)) + 2 - p.Carryover.DayOff - seed
		lo := int(math.Floor(avg)) - 2 - p.Carryover.DayOff - seed
		if hi < 0 {
			hi = 0
		}
		if lo < 0 {
			lo = 0
		}
		if lo > hi {
			lo = hi
		}
		c.DayOffBands[p.ID] = DayOffBand{Lo: lo, Hi: hi}
	}
}

// buildBaselines 计算常规工时基线（休假与首日接续已扣除）
func (c *Context) buildBaselines() {
	c.BaselineHours = make(map[uuid.UUID]map[string]float64)
	for _, p := range c.People {
		weeks := make(map[string]float64, len(c.WeekKeys))
		for _, day := range c.Days {
			if !day.Workday || p.Vacations[day.Key] {
				continue
			}
			weeks[day.WeekKey] += model.HoursRegular
		}
		// 窗口前一日当值者首日休，常规工时免除
		if len(c.Days) > 0 && c.Days[0].Workday && c.IsPriorDuty(p.ID) && !p.Vacations[c.Days[0].Key] {
			wk := c.Days[0].WeekKey
			weeks[wk] -= model.HoursRegular
			if weeks[wk] < 0 {
				weeks[wk] = 0
			}
		}
		c.BaselineHours[p.ID] = weeks
	}
}

// buildWeeklyAllowance 计算 R1 周当值上限
// 当周 R1 槽位需求超过 2×人数 时，该周放宽到 3
func (c *Context) buildWeeklyAllowance() {
	c.R1WeeklyAllowance = make(map[string]int, len(c.WeekKeys))
	popR1 := len(c.TierPeople(model.TierR1))

	demand := make(map[string]int)
	for _, day := range c.Days {
		for si := 0; si < model.SlotCount; si++ {
			if day.Required[si] == model.TierR1 {
				demand[day.WeekKey]++
			}
		}
	}
	for _, wk := range c.WeekKeys {
		c.R1WeeklyAllowance[wk] = 2
		if popR1 > 0 && demand[wk] > 2*popR1 {
			c.R1WeeklyAllowance[wk] = 3
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
