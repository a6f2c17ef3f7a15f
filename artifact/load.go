package artifact

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// LoadError 表示模型包整体不可用（文件缺失、不可读、无法解码、结构不完整）。
// 它同时匹配 core.ErrArtifactUnavailable，调用方应进入降级模式而不是退出。
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("artifact %s: %s", e.Source, e.Reason)
}

// Unwrap 把 ErrArtifactUnavailable 放在首位，core.GetDomainError 总是先取到它。
func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{core.ErrArtifactUnavailable, e.Err}
	}
	return []error{core.ErrArtifactUnavailable}
}

// Load 从 JSON 文件加载模型包。
func Load(path string, required ...Key) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Reason: "read file", Err: err}
	}
	return Decode(path, data, required...)
}

// LoadFromStore 从 core.Store 的单个 key 加载模型包（多实例共享同一份产物时使用）。
func LoadFromStore(ctx context.Context, s core.Store, key string, required ...Key) (*Bundle, error) {
	source := s.Name() + ":" + key
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, &LoadError{Source: source, Reason: "store get", Err: err}
	}
	return Decode(source, data, required...)
}

// Decode 解码 JSON 模型包。
func Decode(source string, data []byte, required ...Key) (*Bundle, error) {
	if len(data) == 0 {
		return nil, &LoadError{Source: source, Reason: "empty file"}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Source: source, Reason: "decode json", Err: err}
	}
	return FromDocument(source, &doc, required...)
}

// Encode 把文档编码为 JSON，离线工具和测试用来写模型包。
func Encode(doc *Document) ([]byte, error) {
	return json.Marshal(doc)
}
