package ontology

import (
	"encoding/json"
	"fmt"
)

// ObjectMetadata 按对象类型区分的元数据
// 每种 TypeKind 对应一个固定字段集合的变体
type ObjectMetadata interface {
	// Kind 返回元数据对应的类型大类
	Kind() TypeKind
	// ImportTargets 返回声明的导入目标（仅代码对象非空）
	ImportTargets() []string
}

// CodeMetadata 代码对象元数据
type CodeMetadata struct {
	Language  string   `json:"language"`
	Functions []string `json:"functions"`
	Classes   []string `json:"classes"`
	Imports   []string `json:"imports"`
	Exports   []string `json:"exports"`
	// Parser 实际使用的解析方式：tree-sitter 或 pattern
	Parser string `json:"parser"`
}

// Kind 实现 ObjectMetadata
func (m *CodeMetadata) Kind() TypeKind { return KindCode }

// ImportTargets 实现 ObjectMetadata
func (m *CodeMetadata) ImportTargets() []string { return m.Imports }

// Heading 文档标题
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// CodeBlock 文档中的围栏代码块
type CodeBlock struct {
	Language string `json:"language"`
	Lines    int    `json:"lines"`
}

// DocumentMetadata 文档对象元数据
type DocumentMetadata struct {
	Format     string      `json:"format"`
	Title      string      `json:"title,omitempty"`
	Headings   []Heading   `json:"headings"`
	Links      []string    `json:"links"`
	CodeBlocks []CodeBlock `json:"code_blocks"`
}

// Kind 实现 ObjectMetadata
func (m *DocumentMetadata) Kind() TypeKind { return KindDocument }

// ImportTargets 实现 ObjectMetadata
func (m *DocumentMetadata) ImportTargets() []string { return nil }

// CodeLanguages 返回代码块语言（去重，保持出现顺序）
func (m *DocumentMetadata) CodeLanguages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, b := range m.CodeBlocks {
		if b.Language == "" || seen[b.Language] {
			continue
		}
		seen[b.Language] = true
		langs = append(langs, b.Language)
	}
	return langs
}

// ConfigMetadata 配置对象元数据
type ConfigMetadata struct {
	Format string   `json:"format"`
	Keys   []string `json:"keys"`
	// Valid 内容是否能被对应格式解析
	Valid bool `json:"valid"`
}

// Kind 实现 ObjectMetadata
func (m *ConfigMetadata) Kind() TypeKind { return KindConfig }

// ImportTargets 实现 ObjectMetadata
func (m *ConfigMetadata) ImportTargets() []string { return nil }

// UnknownMetadata 未识别类型的空元数据
type UnknownMetadata struct{}

// Kind 实现 ObjectMetadata
func (m *UnknownMetadata) Kind() TypeKind { return KindUnknown }

// ImportTargets 实现 ObjectMetadata
func (m *UnknownMetadata) ImportTargets() []string { return nil }

// EncodeMetadata 将元数据序列化为 JSON 字符串
func EncodeMetadata(md ObjectMetadata) (string, error) {
	if md == nil {
		md = &UnknownMetadata{}
	}
	data, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s metadata: %w", md.Kind(), err)
	}
	return string(data), nil
}

// DecodeMetadata 按类型大类反序列化元数据
func DecodeMetadata(kind TypeKind, data string) (ObjectMetadata, error) {
	var md ObjectMetadata
	switch kind {
	case KindCode:
		md = &CodeMetadata{}
	case KindDocument:
		md = &DocumentMetadata{}
	case KindConfig:
		md = &ConfigMetadata{}
	default:
		return &UnknownMetadata{}, nil
	}
	if data == "" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(data), md); err != nil {
		return nil, fmt.Errorf("failed to decode %s metadata: %w", kind, err)
	}
	return md, nil
}
