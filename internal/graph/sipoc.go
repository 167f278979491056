package graph

import (
	"fmt"
	"strings"

	"stratflow-go/internal/model"
)

// SIPOC 字段名，与节点 JSON 中的键一致。
const (
	FieldSource    = "source"
	FieldTarget    = "target"
	FieldInputs    = "inputs"
	FieldOutputs   = "outputs"
	FieldCustomers = "customers"
	FieldStandard  = "standard"
	FieldOwnerRole = "ownerRole"
)

// ParseList 把多行文本拆成去掉首尾空白后的非空行，顺序保持不变。
func ParseList(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// SetSIPOCField 以文本形式编辑单个 SIPOC 字段。
// 列表字段按换行拆分；standard 原样保存；ownerRole 去掉首尾空白。
func (g *Graph) SetSIPOCField(path []string, id, field, text string) (*Graph, model.ProcessNode, error) {
	n, err := g.Node(path, id)
	if err != nil {
		return nil, model.ProcessNode{}, err
	}
	s := n.SIPOC
	switch field {
	case FieldSource:
		s.Source = ParseList(text)
	case FieldTarget:
		s.Target = ParseList(text)
	case FieldInputs:
		s.Inputs = ParseList(text)
	case FieldOutputs:
		s.Outputs = ParseList(text)
	case FieldCustomers:
		s.Customers = ParseList(text)
	case FieldStandard:
		s.Standard = text
	case FieldOwnerRole:
		s.OwnerRole = strings.TrimSpace(text)
	default:
		return nil, model.ProcessNode{}, fmt.Errorf("%w: %s", ErrInvalidField, field)
	}
	return g.UpdateNode(path, id, NodePatch{SIPOC: &s})
}

// normalizeSIPOC 对整体提交的 SIPOC 应用与逐字段编辑相同的规则。
func normalizeSIPOC(s model.SIPOC) model.SIPOC {
	return model.SIPOC{
		Source:    cleanList(s.Source),
		Target:    cleanList(s.Target),
		Inputs:    cleanList(s.Inputs),
		Outputs:   cleanList(s.Outputs),
		Customers: cleanList(s.Customers),
		Standard:  s.Standard,
		OwnerRole: strings.TrimSpace(s.OwnerRole),
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
