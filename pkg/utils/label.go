package utils

import "strings"

// Label 记录一个推荐结果“为什么出现”：来自哪路召回、被哪个节点改写过。
// 输出给调用方之前会被丢弃，主要用于日志与 CEL 过滤表达式。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // cf / content / popular / rerank ...
}

// NewLabel 构造 Label
func NewLabel(value, source string) Label {
	return Label{Value: value, Source: source}
}

// MergeLabel 合并同名 Label：
// Value 以 '|' 累积；Source 以 ',' 累积且不重复。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "", containsPart(existing.Source, incoming.Source):
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

func containsPart(joined, part string) bool {
	for _, p := range strings.Split(joined, ",") {
		if p == part {
			return true
		}
	}
	return false
}
