// Package store 提供 core.Store / core.KeyValueStore 的实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
// 在本项目中 Store 承载三类数据：
//   - 模型包整包 JSON（artifact.LoadFromStore）
//   - 离线写入的热门榜有序集合（recall.LoadRanking）
//   - 每个 session 的已浏览商品（session.ViewedStore）
//
// 示例：
//
//	var s core.KeyValueStore = store.NewMemoryStore()
package store
