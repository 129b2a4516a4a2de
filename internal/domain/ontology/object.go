// Package ontology 定义本体同步引擎的领域模型
// 包括对象、变更日志、关系以及各存储端口接口
package ontology

import (
	"strings"
	"time"
)

// TypeKind 对象类型大类
type TypeKind string

const (
	// KindCode 源代码
	KindCode TypeKind = "Code"
	// KindDocument 文档
	KindDocument TypeKind = "Document"
	// KindConfig 配置文件
	KindConfig TypeKind = "Config"
	// KindUnknown 无法识别的类型
	KindUnknown TypeKind = "Unknown"
)

// ObjectType 带标签的对象类型，例如 Code:go、Document:Markdown、Config:JSON
type ObjectType struct {
	Kind    TypeKind
	Subtype string
}

// UnknownType 未识别类型
var UnknownType = ObjectType{Kind: KindUnknown}

// CodeType 创建代码类型
func CodeType(language string) ObjectType {
	return ObjectType{Kind: KindCode, Subtype: language}
}

// DocumentType 创建文档类型
func DocumentType(format string) ObjectType {
	return ObjectType{Kind: KindDocument, Subtype: format}
}

// ConfigType 创建配置类型
func ConfigType(format string) ObjectType {
	return ObjectType{Kind: KindConfig, Subtype: format}
}

// String 返回 Kind:Subtype 形式
func (t ObjectType) String() string {
	if t.Kind == "" {
		return string(KindUnknown)
	}
	if t.Subtype == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + ":" + t.Subtype
}

// IsUnknown 是否为未识别类型
func (t ObjectType) IsUnknown() bool {
	return t.Kind == "" || t.Kind == KindUnknown
}

// ParseObjectType 解析 Kind:Subtype 字符串
func ParseObjectType(s string) ObjectType {
	kind, subtype, _ := strings.Cut(s, ":")
	switch TypeKind(kind) {
	case KindCode, KindDocument, KindConfig:
		return ObjectType{Kind: TypeKind(kind), Subtype: subtype}
	default:
		return UnknownType
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (t ObjectType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (t *ObjectType) UnmarshalText(data []byte) error {
	*t = ParseObjectType(string(data))
	return nil
}

// Object 本体中的一个文件对象
// 以 Path 为唯一键，change 事件整体替换，remove 事件删除
type Object struct {
	Path           string         `json:"path"`
	Type           ObjectType     `json:"type"`
	ContentExcerpt string         `json:"content_excerpt"`
	Embedding      []float32      `json:"-"`
	Metadata       ObjectMetadata `json:"metadata"`
	Size           int64          `json:"size"`
	LineCount      int            `json:"line_count"`
	TokenCount     int            `json:"token_count"`
	ContentHash    string         `json:"content_hash"`
	Version        int64          `json:"version"`
	LastModified   time.Time      `json:"last_modified"`
	// Placeholder 为尚未摄取的导入目标创建的占位节点
	Placeholder bool `json:"placeholder,omitempty"`
}

// Clone 返回浅拷贝，Embedding 切片独立
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Embedding != nil {
		cp.Embedding = append([]float32(nil), o.Embedding...)
	}
	return &cp
}

// ImportTargets 返回对象声明的导入目标
func (o *Object) ImportTargets() []string {
	if o == nil || o.Metadata == nil {
		return nil
	}
	return o.Metadata.ImportTargets()
}

// NewPlaceholder 创建占位对象
func NewPlaceholder(path string) *Object {
	return &Object{
		Path:        path,
		Type:        UnknownType,
		Metadata:    &UnknownMetadata{},
		Placeholder: true,
	}
}
