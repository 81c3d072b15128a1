package model

import "strings"

// Record holds the raw fields of a single material row.
// All fields are optional; the engine never mutates a Record.
type Record struct {
	Name        string `json:"material_name" yaml:"material_name"` // 物料名称
	Model       string `json:"model" yaml:"model"`                 // 图号/型号
	Brand       string `json:"brand" yaml:"brand"`                 // 分类/品牌
	Supplier    string `json:"supplier" yaml:"supplier"`           // 供应商
	RawMaterial string `json:"raw_material" yaml:"raw_material"`   // 材料
}

// field pairs the prompt label with the record value. Labels stay in
// Chinese because the taxonomy and the worked prompt examples are Chinese.
type field struct {
	Label string
	Value string
}

// fields returns the record's values in prompt order.
func (r Record) fields() []field {
	return []field{
		{"型号", r.Model},
		{"品牌", r.Brand},
		{"供应商", r.Supplier},
		{"物料名称", r.Name},
		{"材料", r.RawMaterial},
	}
}

// Description renders the record as a comma-joined "key=value" string,
// omitting empty fields. This is the exact text sent to the model and the
// cache key source, so the rendering must stay deterministic.
func (r Record) Description() string {
	var parts []string
	for _, f := range r.fields() {
		if f.Value != "" {
			parts = append(parts, f.Label+"="+f.Value)
		}
	}
	return strings.Join(parts, ", ")
}

// IsEmpty reports whether every field is blank.
func (r Record) IsEmpty() bool {
	return r.Name == "" && r.Model == "" && r.Brand == "" && r.Supplier == "" && r.RawMaterial == ""
}
