package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
)

// Bundle 打包导出
// zip 内含排班总表、每人一份 ICS 与完整结果 JSON
func Bundle(res *model.Result) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("创建打包条目 %s 失败: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("写入打包条目 %s 失败: %w", name, err)
		}
		return nil
	}

	if err := add(fmt.Sprintf("roster_%s.xml", res.StartDate), Spreadsheet(res)); err != nil {
		return nil, err
	}
	for _, p := range res.People {
		ics := PersonICS(res, p.ID)
		if len(ics) == 0 {
			continue
		}
		if err := add(fmt.Sprintf("ics/%s.ics", p.Name), ics); err != nil {
			return nil, err
		}
	}
	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化结果失败: %w", err)
	}
	if err := add("result.json", payload); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("关闭打包文件失败: %w", err)
	}
	return buf.Bytes(), nil
}
