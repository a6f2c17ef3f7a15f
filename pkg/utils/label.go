package utils

// Label 记录候选商品的来源与加工痕迹，随 Item 在链路中透传。
// Value 与 Source 的语义由各节点决定，例如 {Value: "content", Source: "recall"}。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / fallback
}

// RecallLabel 构造召回阶段的来源标签。
func RecallLabel(source string) Label {
	return Label{Value: source, Source: "recall"}
}

// MergeLabel 合并同名 Label：
//   - Value: 以 '|' 累积，同值不重复
//   - Source: 以 ',' 累积，同值不重复
//
// 一个商品同时被协同和内容召回时，recall_source 会变成 "collaborative|content"。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" || incoming == existing {
		return existing
	}

	merged := existing
	if incoming.Value != existing.Value {
		merged.Value = existing.Value + "|" + incoming.Value
	}
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "" || incoming.Source == existing.Source:
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
