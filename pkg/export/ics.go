// Package export 把排班结果导出为 ICS 日历、电子表格与打包文件
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zhiban/zhiban/pkg/calendar"
	"github.com/zhiban/zhiban/pkg/model"
)

const icsProdID = "-//zhiban//duty-roster//CN"

// slotSummary 槽位在日历中的标题
var slotSummary = [model.SlotCount]string{"病房当值", "应接当值"}

// PersonICS 生成单人 ICS 日历
// 当值与 Day-off 均以全天事件导出
func PersonICS(res *model.Result, personID uuid.UUID) []byte {
	var person *model.Person
	for _, p := range res.People {
		if p.ID == personID {
			person = p
			break
		}
	}
	if person == nil {
		return nil
	}

	var b bytes.Buffer
	writeICSHeader(&b, person.Name)

	stamp := time.Now().UTC().Format("20060102T150405Z")
	for _, ds := range res.Schedule {
		date := dayDate(ds.Day)
		for si := 0; si < model.SlotCount; si++ {
			if !ds.Slots[si].IsFilled() || ds.Slots[si].PersonID() != personID {
				continue
			}
			writeAllDayEvent(&b, date, stamp,
				fmt.Sprintf("%s-%s-%d", ds.Day.Key, personID, si), slotSummary[si])
		}
		if ds.Backup == personID {
			writeAllDayEvent(&b, date, stamp,
				fmt.Sprintf("%s-%s-backup", ds.Day.Key, personID), "应急后备")
		}
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.Bytes()
}

func writeICSHeader(b *bytes.Buffer, name string) {
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	fmt.Fprintf(b, "PRODID:%s\r\n", icsProdID)
	fmt.Fprintf(b, "X-WR-CALNAME:%s 当值日历\r\n", escapeICS(name))
}

func writeAllDayEvent(b *bytes.Buffer, date time.Time, stamp, uid, summary string) {
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(b, "UID:%s@zhiban\r\n", uid)
	fmt.Fprintf(b, "DTSTAMP:%s\r\n", stamp)
	fmt.Fprintf(b, "DTSTART;VALUE=DATE:%s\r\n", date.Format("20060102"))
	fmt.Fprintf(b, "DTEND;VALUE=DATE:%s\r\n", calendar.AddDays(date, 1).Format("20060102"))
	fmt.Fprintf(b, "SUMMARY:%s\r\n", escapeICS(summary))
	b.WriteString("END:VEVENT\r\n")
}

// dayDate 从日期键还原时间，持久化载荷不携带 time.Time
func dayDate(d model.Day) time.Time {
	if !d.Date.IsZero() {
		return d.Date
	}
	t, err := calendar.ParseDate(d.Key)
	if err != nil {
		return d.Date
	}
	return t
}

// escapeICS 转义 ICS 文本字段
func escapeICS(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}
