// Package session 记录会话内浏览过的商品，推荐时作为屏蔽集合和内容召回的种子。
package session

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

const defaultKeyPrefix = "session:viewed"

// ViewedStore 在 core.Store 上保存会话浏览历史。
//
// 存储格式：key 为 {KeyPrefix}:{sessionID}，value 为 JSON 数组
// [{"item_id": "...", "timestamp": 1700000000}, ...]，按首次浏览时间排序。
// 兼容纯 ID 数组 ["P1", "P2"]。
type ViewedStore struct {
	store core.Store

	// KeyPrefix 默认为 session:viewed
	KeyPrefix string

	// MaxItems 每个会话最多保留的商品数，超出时丢弃最早的（0 表示不限制）
	MaxItems int

	// TTL 会话过期时间（秒），0 表示不过期
	TTL int

	// TimeWindow 只返回最近 TimeWindow 秒内浏览的商品（0 表示全部）
	TimeWindow int64

	// 串行化同一进程内的读改写
	mu  sync.Mutex
	now func() time.Time
}

type viewedEntry struct {
	ItemID    string `json:"item_id"`
	Timestamp int64  `json:"timestamp"`
}

// NewViewedStore 创建浏览历史存储。
func NewViewedStore(s core.Store) *ViewedStore {
	return &ViewedStore{store: s, now: time.Now}
}

func (v *ViewedStore) key(sessionID string) string {
	prefix := v.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return prefix + ":" + sessionID
}

func (v *ViewedStore) load(ctx context.Context, sessionID string) ([]viewedEntry, error) {
	data, err := v.store.Get(ctx, v.key(sessionID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []viewedEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}
	// 兼容纯 ID 列表
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	entries = make([]viewedEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, viewedEntry{ItemID: id})
	}
	return entries, nil
}

// Record 记录一次浏览。已浏览过的商品不重复记录，也不改变顺序。
func (v *ViewedStore) Record(ctx context.Context, sessionID, productID string) error {
	if sessionID == "" || productID == "" {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ItemID == productID {
			return nil
		}
	}
	entries = append(entries, viewedEntry{ItemID: productID, Timestamp: v.now().Unix()})
	if v.MaxItems > 0 && len(entries) > v.MaxItems {
		entries = entries[len(entries)-v.MaxItems:]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if v.TTL > 0 {
		return v.store.Set(ctx, v.key(sessionID), data, v.TTL)
	}
	return v.store.Set(ctx, v.key(sessionID), data)
}

// Viewed 返回会话浏览过的商品 ID，按浏览顺序。会话不存在返回空。
func (v *ViewedStore) Viewed(ctx context.Context, sessionID string) ([]string, error) {
	if sessionID == "" {
		return []string{}, nil
	}
	entries, err := v.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cutoff := int64(0)
	if v.TimeWindow > 0 {
		cutoff = v.now().Unix() - v.TimeWindow
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		// 纯 ID 列表没有时间戳，不参与时间窗口过滤
		if cutoff > 0 && e.Timestamp > 0 && e.Timestamp < cutoff {
			continue
		}
		ids = append(ids, e.ItemID)
	}
	return ids, nil
}

// Last 返回最近一次浏览的商品，没有时返回 false。
func (v *ViewedStore) Last(ctx context.Context, sessionID string) (string, bool, error) {
	ids, err := v.Viewed(ctx, sessionID)
	if err != nil || len(ids) == 0 {
		return "", false, err
	}
	return ids[len(ids)-1], true, nil
}

// Clear 删除会话浏览历史。
func (v *ViewedStore) Clear(ctx context.Context, sessionID string) error {
	return v.store.Delete(ctx, v.key(sessionID))
}
