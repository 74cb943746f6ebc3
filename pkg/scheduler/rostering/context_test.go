package rostering

import (
	"testing"
	"time"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/model"
)

// 2026-03-02 为周一
func baseRequest() *model.Request {
	return &model.Request{
		StartDate: "2026-03-02",
		Weeks:     1,
		Staff: []model.StaffInput{
			{Name: "甲", Tier: model.TierR1},
			{Name: "乙", Tier: model.TierR1},
			{Name: "丙", Tier: model.TierR1},
			{Name: "丁", Tier: model.TierR2},
			{Name: "戊", Tier: model.TierR2},
			{Name: "庚", Tier: model.TierR3},
			{Name: "辛", Tier: model.TierR3},
		},
	}
}

func TestBuildBasics(t *testing.T) {
	c, err := Build(baseRequest())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(c.Days) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(c.Days))
	}
	if c.Days[0].Date.Weekday() != time.Monday || !c.Days[0].Workday {
		t.Error("Day 0 should be a Monday workday")
	}
	if c.Days[5].Workday {
		t.Error("Saturday should not be a workday")
	}
	if len(c.WeekKeys) != 1 {
		t.Errorf("One calendar week expected, got %v", c.WeekKeys)
	}
}

func TestBuildValidation(t *testing.T) {
	req := baseRequest()
	req.Staff = req.Staff[:1]
	if _, err := Build(req); !errors.Is(err, errors.CodeInsufficientStaff) {
		t.Errorf("Expected INSUFFICIENT_STAFF, got %v", err)
	}

	req = baseRequest()
	req.StartDate = "03/02/2026"
	if _, err := Build(req); !errors.Is(err, errors.CodeInvalidWindow) {
		t.Errorf("Expected INVALID_WINDOW, got %v", err)
	}

	req = baseRequest()
	req.EndDate = "2026-03-01"
	if _, err := Build(req); !errors.Is(err, errors.CodeInvalidWindow) {
		t.Errorf("Expected INVALID_WINDOW for reversed range, got %v", err)
	}

	req = baseRequest()
	req.VacationsByName = map[string][]string{"甲": {"bad-date"}}
	if _, err := Build(req); !errors.Is(err, errors.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for bad vacation date, got %v", err)
	}
}

func TestEligibilityBlocking(t *testing.T) {
	req := baseRequest()
	req.VacationsByName = map[string][]string{"甲": {"2026-03-02"}}
	req.UnavailableByName = map[string][]string{"乙": {"2026-03-02"}}
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// 周一病房槽位要求 R1，甲乙被阻断，仅剩丙
	cands := c.Eligible[0][model.SlotWard]
	if len(cands) != 1 || c.Person(cands[0]).Name != "丙" {
		t.Errorf("Expected only 丙 eligible on day 0, got %d candidates", len(cands))
	}
}

func TestUnfillReasons(t *testing.T) {
	req := baseRequest()
	// 去掉所有 R2，周一应接槽位无人可用
	var staff []model.StaffInput
	for _, s := range req.Staff {
		if s.Tier != model.TierR2 {
			staff = append(staff, s)
		}
	}
	req.Staff = staff
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(c.Eligible[0][model.SlotResponse]) != 0 {
		t.Fatal("Response slot should have no candidates without R2 staff")
	}
	reasons := c.UnfillReasons[0][model.SlotResponse]
	if len(reasons) != 1 || reasons[0] != model.ReasonNoTierStaff {
		t.Errorf("Expected no_tier_staff reason, got %v", reasons)
	}
}

func TestForcedDutyFromWish(t *testing.T) {
	req := baseRequest()
	// 周三希望休，应转化为周二强制当值
	req.WishedOffByName = map[string][]string{"庚": {"2026-03-04"}}
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// 周二应接槽位要求 R3，庚具备资格
	forced := c.ForcedDuty[1]
	if len(forced) != 1 || c.Person(forced[0]).Name != "庚" {
		t.Errorf("Expected 庚 forced on Tuesday, got %v", forced)
	}
	// 希望休当日被阻断
	if c.IsEligible(2, model.SlotResponse, c.PersonByName("庚").ID) {
		t.Error("Wished-off day should block eligibility")
	}
}

func TestForcedDutyUnmetWarning(t *testing.T) {
	req := baseRequest()
	// 首日希望休没有前一日可强制，应产生警告
	req.WishedOffByName = map[string][]string{"甲": {"2026-03-02"}}
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(c.ForcedDuty) != 0 {
		t.Errorf("No forced duty expected, got %v", c.ForcedDuty)
	}
	if len(c.Warnings) == 0 {
		t.Error("Unmet wish should produce a warning")
	}
}

func TestCapsCarryoverShrink(t *testing.T) {
	req := baseRequest()
	c1, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	req2 := baseRequest()
	req2.Carryover = []model.CarryoverEntry{{Name: "甲", Role: model.RoleWard, Delta: 3}}
	c2, err := Build(req2)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	before := c1.Caps[c1.PersonByName("甲").ID].Ward
	after := c2.Caps[c2.PersonByName("甲").ID].Ward
	if before == nil || after == nil {
		t.Fatal("Ward caps expected for R1")
	}
	if after.Cap != before.Cap-3 {
		t.Errorf("Carryover +3 should shrink cap by 3: before %d, after %d", before.Cap, after.Cap)
	}
}

func TestR1WeeklyAllowance(t *testing.T) {
	req := baseRequest()
	// 仅两名 R1：默认模板一周 6 个 R1 槽位 > 2×2，许可放宽到 3
	req.Staff = []model.StaffInput{
		{Name: "甲", Tier: model.TierR1},
		{Name: "乙", Tier: model.TierR1},
		{Name: "丁", Tier: model.TierR2},
		{Name: "庚", Tier: model.TierR3},
	}
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, wk := range c.WeekKeys {
		if c.R1WeeklyAllowance[wk] != 3 {
			t.Errorf("Expected allowance 3 for week %s, got %d", wk, c.R1WeeklyAllowance[wk])
		}
	}
}

func TestBackupSelection(t *testing.T) {
	req := baseRequest()
	req.Staff = append(req.Staff, model.StaffInput{Name: "壬", Tier: model.TierR3, Emergency: true})
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Backup == nil || c.Backup.Name != "壬" {
		t.Error("Emergency-flagged person should become backup")
	}
	// 应急后备不参与槽位
	for di := range c.Days {
		for si := 0; si < model.SlotCount; si++ {
			if c.IsEligible(di, model.SlotIndex(si), c.Backup.ID) {
				t.Fatal("Backup must not be slot-eligible")
			}
		}
	}
}

func TestPriorDutyCooldown(t *testing.T) {
	req := baseRequest()
	req.PriorDuty = model.PriorDuty{Ward: "甲"}
	c, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.IsEligible(0, model.SlotWard, c.PersonByName("甲").ID) {
		t.Error("Prior-duty person should be cooled down on day 0")
	}
	if !c.IsEligible(1, model.SlotWard, c.PersonByName("甲").ID) {
		t.Error("Cooldown applies to day 0 only")
	}
	// 首日接续 Day-off 免除常规工时
	wk := c.Days[0].WeekKey
	base := c.BaselineHours[c.PersonByName("甲").ID][wk]
	other := c.BaselineHours[c.PersonByName("乙").ID][wk]
	if base != other-model.HoursRegular {
		t.Errorf("Prior-duty baseline should drop by 8h: %v vs %v", base, other)
	}
}
