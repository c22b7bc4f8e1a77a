package core

import "github.com/rushteam/marketrec/pkg/utils"

// Item 是推荐 Pipeline 中流转的候选：商品 ID、当前分数、标签与元信息。
// Score 决定排序；Labels 记录候选来源，便于日志与过滤表达式使用。
type Item struct {
	ID     ID
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label

	// Order 记录候选首次出现的次序，排序分数相同时保持稳定
	Order int
}

func NewItem(id ID) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；同名 key 按 MergeLabel 累积
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// ScoredID 是对外输出的 (id, score) 二元组
type ScoredID struct {
	ID    ID
	Score float64
}
