package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 只有 ARTIFACT 模块的 UNAVAILABLE 会作为能力标记暴露给调用方；
// 冷启动、目录缺失、空结果都在内部被吸收，只体现为更短或非个性化的结果。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "artifact", "catalog"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 按 Module + Code 比较，使 errors.Is 对同类错误生效。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 模型/服务不可用
	ErrorCodeColdStart     = "COLD_START"     // 编码器中没有该 ID
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleArtifact = "artifact" // 离线模型产物
	ModuleCatalog  = "catalog"  // 商品目录
	ModuleRecall   = "recall"   // 召回模块
)

var (
	// ErrArtifactUnavailable 表示整个模型包缺失或损坏，进程进入降级模式（只用热门兜底）
	ErrArtifactUnavailable = NewDomainError(ModuleArtifact, ErrorCodeUnavailable, "artifact: bundle unavailable")

	// ErrColdStart 表示用户或商品没有编码器索引
	ErrColdStart = NewDomainError(ModuleRecall, ErrorCodeColdStart, "recall: id unseen at training time")

	// ErrCatalogMiss 表示候选商品在当前目录中找不到展示记录
	ErrCatalogMiss = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: product not found")
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsArtifactUnavailable 检查错误是否为模型包不可用
func IsArtifactUnavailable(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleArtifact && domainErr.Code == ErrorCodeUnavailable
}

// IsColdStart 检查错误是否为冷启动
func IsColdStart(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Code == ErrorCodeColdStart
}
