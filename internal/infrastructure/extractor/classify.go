package extractor

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// extensionTypes 扩展名到对象类型的静态映射
var extensionTypes = map[string]ontology.ObjectType{
	".go":    ontology.CodeType("go"),
	".py":    ontology.CodeType("python"),
	".js":    ontology.CodeType("javascript"),
	".mjs":   ontology.CodeType("javascript"),
	".cjs":   ontology.CodeType("javascript"),
	".jsx":   ontology.CodeType("javascript"),
	".ts":    ontology.CodeType("typescript"),
	".tsx":   ontology.CodeType("typescript"),
	".java":  ontology.CodeType("java"),
	".rs":    ontology.CodeType("rust"),
	".rb":    ontology.CodeType("ruby"),
	".php":   ontology.CodeType("php"),
	".c":     ontology.CodeType("c"),
	".h":     ontology.CodeType("c"),
	".cpp":   ontology.CodeType("cpp"),
	".cc":    ontology.CodeType("cpp"),
	".hpp":   ontology.CodeType("cpp"),
	".cs":    ontology.CodeType("csharp"),
	".kt":    ontology.CodeType("kotlin"),
	".swift": ontology.CodeType("swift"),
	".scala": ontology.CodeType("scala"),
	".sh":    ontology.CodeType("shell"),
	".bash":  ontology.CodeType("shell"),
	".zig":   ontology.CodeType("zig"),
	".lua":   ontology.CodeType("lua"),

	".md":       ontology.DocumentType(FormatMarkdown),
	".markdown": ontology.DocumentType(FormatMarkdown),
	".mdx":      ontology.DocumentType(FormatMarkdown),
	".html":     ontology.DocumentType(FormatHTML),
	".htm":      ontology.DocumentType(FormatHTML),
	".txt":      ontology.DocumentType(FormatText),
	".rst":      ontology.DocumentType(FormatText),

	".json": ontology.ConfigType(FormatJSON),
	".yaml": ontology.ConfigType(FormatYAML),
	".yml":  ontology.ConfigType(FormatYAML),
	".toml": ontology.ConfigType(FormatTOML),
}

// 文档与配置格式
const (
	FormatMarkdown = "Markdown"
	FormatHTML     = "HTML"
	FormatText     = "Text"
	FormatJSON     = "JSON"
	FormatYAML     = "YAML"
	FormatTOML     = "TOML"
)

// Classify 按扩展名判断对象类型
// 未登记的扩展名按文件名查找 chroma 词法分析器，仍找不到则为 Unknown
func Classify(path string) ontology.ObjectType {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}

	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return ontology.UnknownType
	}
	return typeFromLexer(lexer.Config().Name)
}

// typeFromLexer 将 chroma 词法分析器名称映射为对象类型
func typeFromLexer(name string) ontology.ObjectType {
	switch strings.ToLower(name) {
	case "json":
		return ontology.ConfigType(FormatJSON)
	case "yaml":
		return ontology.ConfigType(FormatYAML)
	case "toml":
		return ontology.ConfigType(FormatTOML)
	case "markdown":
		return ontology.DocumentType(FormatMarkdown)
	case "html":
		return ontology.DocumentType(FormatHTML)
	case "plaintext", "text":
		return ontology.UnknownType
	}
	return ontology.CodeType(strings.ReplaceAll(strings.ToLower(name), " ", "-"))
}
