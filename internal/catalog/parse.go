package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"lbs-core/internal/model"
	"lbs-core/internal/validate"
)

// rawRow：导入文件中的单条记录（字段大小写与上游表格一致）
type rawRow map[string]any

// parseImport：解析 {"分组标签": [记录...]} 结构，保留文件中的分组与行顺序
// 约束：顶层不是对象、或任一值不是数组时返回 ValidationError；单行错误只计入 rejected。
// 带 CODIGO 的行按 (UBIGEO, CODIGO) 去重，保留首次出现的行
func parseImport(raw []byte) ([]model.PopulationCenter, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, 0, validate.New("", "import is not valid JSON", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, 0, validate.Newf("", "import must be an object of arrays, got %v", tok)
	}
	var out []model.PopulationCenter
	seen := map[string]bool{}
	rejected := 0
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, 0, validate.New("", "malformed object key", err)
		}
		label, _ := kt.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, 0, validate.New(label, "malformed value", err)
		}
		val = bytes.TrimSpace(val)
		if len(val) == 0 || val[0] != '[' {
			return nil, 0, validate.Newf(label, "value must be an array")
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(val, &rows); err != nil {
			return nil, 0, validate.New(label, "malformed array", err)
		}
		for i, rb := range rows {
			pc, ok := parseRow(rb)
			if !ok {
				rejected++
				clog().Debug("catalog_row_rejected", "group", label, "row", i)
				continue
			}
			if pc.Codigo != "" {
				id := pc.Identity()
				if seen[id] {
					rejected++
					clog().Debug("catalog_row_duplicate", "group", label, "row", i, "identity", id)
					continue
				}
				seen[id] = true
			}
			out = append(out, pc)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, 0, validate.New("", "unterminated object", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, 0, validate.Newf("", "trailing data after import object")
	}
	return out, rejected, nil
}

// parseRow：归一化单行；缺少名称或 UBIGEO 时拒绝
func parseRow(b json.RawMessage) (model.PopulationCenter, bool) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var r rawRow
	if err := dec.Decode(&r); err != nil || r == nil {
		return model.PopulationCenter{}, false
	}
	pc := model.PopulationCenter{
		Item:         toInt(r["ITEM"]),
		Ubigeo:       normalizeUbigeo(r["UBIGEO"]),
		Codigo:       getStr(r, "CODIGO"),
		Nombre:       getStr(r, "CCPP"),
		Categoria:    getStr(r, "CATEGORIA"),
		Poblacion:    toInt(r["POBLACION"]),
		Departamento: getStr(r, "DPTO"),
		Provincia:    getStr(r, "PROV"),
		Distrito:     getStr(r, "DIST"),
		Este:         toFloat(r["ESTE"]),
		Norte:        toFloat(r["NORTE"]),
		Altitud:      toFloat(r["ALTITUD"]),
	}
	if pc.Nombre == "" || pc.Ubigeo == "" {
		return model.PopulationCenter{}, false
	}
	return pc, true
}

// normalizeUbigeo：纯数字且不足 6 位的编码补前导零（表格软件常把 010101 存成 10101）
func normalizeUbigeo(v any) string {
	s := toStr(v)
	if s == "" || len(s) >= 6 {
		return s
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return s
		}
	}
	return strings.Repeat("0", 6-len(s)) + s
}

func getStr(m rawRow, k string) string { return toStr(m[k]) }

func toStr(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool, nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// toFloat：数字或数字字符串转 float64
// 约束：无法解析、NaN 或 ±Inf 一律按缺失处理返回 0，JSON 无法编码非有限值
func toFloat(v any) float64 {
	var f float64
	var err error
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// maxExactInt：float64 可精确表示的最大整数，超出视为无效
const maxExactInt = 1 << 53

// toInt：截断为整数；超出范围按缺失处理返回 0
func toInt(v any) int {
	f := toFloat(v)
	if math.Abs(f) > maxExactInt {
		return 0
	}
	return int(f)
}
