package export

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/model"
)

// 星期中文名
var weekdayNames = []string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// Spreadsheet 生成 SpreadsheetML（Excel 2003 XML）排班总表
// 第一张表为逐日排班，第二张表为人员统计
func Spreadsheet(res *model.Result) []byte {
	nameOf := personNames(res)

	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet"` +
		` xmlns:ss="urn:schemas-microsoft-com:office:spreadsheet">` + "\n")

	// 逐日排班表
	b.WriteString(`<Worksheet ss:Name="排班"><Table>` + "\n")
	writeRow(&b, "日期", "星期", "类型", "病房当值", "应接当值", "应急后备")
	for _, ds := range res.Schedule {
		kind := "工作日"
		if !ds.Day.Workday {
			kind = "休息日"
		}
		writeRow(&b,
			ds.Day.Key,
			weekdayNames[int(dayDate(ds.Day).Weekday())],
			kind,
			slotCell(ds.Slots[model.SlotWard], nameOf),
			slotCell(ds.Slots[model.SlotResponse], nameOf),
			nameOf[ds.Backup],
		)
	}
	b.WriteString("</Table></Worksheet>\n")

	// 人员统计表
	b.WriteString(`<Worksheet ss:Name="统计"><Table>` + "\n")
	writeRow(&b, "姓名", "层级", "总工时", "当值工时", "病房", "应接", "Day-off", "工作日当值", "休息日当值")
	for _, ps := range res.Stats {
		writeRow(&b,
			ps.Name, string(ps.Tier),
			fmt.Sprintf("%.1f", ps.TotalHours),
			fmt.Sprintf("%.1f", ps.DutyHours),
			fmt.Sprintf("%d", ps.WardCount),
			fmt.Sprintf("%d", ps.ResponseCount),
			fmt.Sprintf("%d", ps.DayOffCount),
			fmt.Sprintf("%d", ps.WorkdayDuties),
			fmt.Sprintf("%d", ps.OffdayDuties),
		)
	}
	b.WriteString("</Table></Worksheet>\n")

	b.WriteString("</Workbook>\n")
	return b.Bytes()
}

func personNames(res *model.Result) map[uuid.UUID]string {
	m := make(map[uuid.UUID]string, len(res.People))
	for _, p := range res.People {
		m[p.ID] = p.Name
	}
	return m
}

// slotCell 槽位单元格文本；未充员时列出原因码
func slotCell(s model.SlotState, nameOf map[uuid.UUID]string) string {
	if s.IsFilled() {
		return nameOf[s.PersonID()]
	}
	if len(s.Reasons()) == 0 {
		return "（空缺）"
	}
	text := "（空缺:"
	for i, r := range s.Reasons() {
		if i > 0 {
			text += ","
		}
		text += string(r)
	}
	return text + "）"
}

func writeRow(b *bytes.Buffer, cells ...string) {
	b.WriteString("<Row>")
	for _, c := range cells {
		var esc bytes.Buffer
		xml.EscapeText(&esc, []byte(c))
		fmt.Fprintf(b, `<Cell><Data ss:Type="String">%s</Data></Cell>`, esc.String())
	}
	b.WriteString("</Row>\n")
}
