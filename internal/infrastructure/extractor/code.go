package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// 解析方式
const (
	ParserTreeSitter = "tree-sitter"
	ParserPattern    = "pattern"
)

// 查询捕获名
const (
	captureFunction = "function"
	captureClass    = "class"
	captureImport   = "import"
	captureExport   = "export"
)

// grammar 单个语言的语法与结构查询
// 每条查询独立编译，语法版本差异导致的单条失败不影响其他查询
type grammar struct {
	language *sitter.Language
	patterns []string
}

var grammars = map[string]func() grammar{
	"go": func() grammar {
		return grammar{
			language: golang.GetLanguage(),
			patterns: []string{
				`(function_declaration name: (identifier) @function)`,
				`(method_declaration name: (field_identifier) @function)`,
				`(type_spec name: (type_identifier) @class)`,
				`(import_spec path: (interpreted_string_literal) @import)`,
			},
		}
	},
	"python": func() grammar {
		return grammar{
			language: python.GetLanguage(),
			patterns: []string{
				`(function_definition name: (identifier) @function)`,
				`(class_definition name: (identifier) @class)`,
				`(import_statement name: (dotted_name) @import)`,
				`(import_statement name: (aliased_import name: (dotted_name) @import))`,
				`(import_from_statement module_name: (dotted_name) @import)`,
				`(import_from_statement module_name: (relative_import) @import)`,
			},
		}
	},
	"javascript": func() grammar {
		return grammar{
			language: javascript.GetLanguage(),
			patterns: []string{
				`(function_declaration name: (identifier) @function)`,
				`(method_definition name: (property_identifier) @function)`,
				`(variable_declarator name: (identifier) @function value: (arrow_function))`,
				`(class_declaration name: (identifier) @class)`,
				`(import_statement source: (string) @import)`,
				`(export_statement source: (string) @import)`,
				`(export_statement declaration: (function_declaration name: (identifier) @export))`,
				`(export_statement declaration: (class_declaration name: (identifier) @export))`,
				`(export_statement declaration: (lexical_declaration (variable_declarator name: (identifier) @export)))`,
				`(export_specifier name: (identifier) @export)`,
			},
		}
	},
	"typescript": func() grammar {
		return grammar{
			language: typescript.GetLanguage(),
			patterns: []string{
				`(function_declaration name: (identifier) @function)`,
				`(method_definition name: (property_identifier) @function)`,
				`(variable_declarator name: (identifier) @function value: (arrow_function))`,
				`(class_declaration name: (type_identifier) @class)`,
				`(interface_declaration name: (type_identifier) @class)`,
				`(import_statement source: (string) @import)`,
				`(export_statement source: (string) @import)`,
				`(export_statement declaration: (function_declaration name: (identifier) @export))`,
				`(export_statement declaration: (class_declaration name: (type_identifier) @export))`,
				`(export_statement declaration: (interface_declaration name: (type_identifier) @export))`,
				`(export_statement declaration: (lexical_declaration (variable_declarator name: (identifier) @export)))`,
				`(export_specifier name: (identifier) @export)`,
			},
		}
	},
	"java": func() grammar {
		return grammar{
			language: java.GetLanguage(),
			patterns: []string{
				`(method_declaration name: (identifier) @function)`,
				`(class_declaration name: (identifier) @class)`,
				`(interface_declaration name: (identifier) @class)`,
				`(enum_declaration name: (identifier) @class)`,
				`(import_declaration (scoped_identifier) @import)`,
			},
		}
	},
}

// compiledGrammar 已编译的查询，编译结果按语言缓存
type compiledGrammar struct {
	language *sitter.Language
	queries  []*sitter.Query
}

var (
	compiledMu sync.Mutex
	compiled   = make(map[string]*compiledGrammar)
)

// loadGrammar 返回语言的已编译查询，没有可用查询时返回 nil
func loadGrammar(language string) *compiledGrammar {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if g, ok := compiled[language]; ok {
		return g
	}

	factory, ok := grammars[language]
	if !ok {
		compiled[language] = nil
		return nil
	}

	def := factory()
	g := &compiledGrammar{language: def.language}
	for _, pattern := range def.patterns {
		q, err := sitter.NewQuery([]byte(pattern), def.language)
		if err != nil {
			continue
		}
		g.queries = append(g.queries, q)
	}
	if len(g.queries) == 0 {
		g = nil
	}
	compiled[language] = g
	return g
}

// extractCode 提取代码结构，tree-sitter 不可用时退回模式匹配
func extractCode(ctx context.Context, language string, content []byte) (*ontology.CodeMetadata, error) {
	if g := loadGrammar(language); g != nil {
		md, err := parseWithTreeSitter(ctx, g, content)
		if err == nil {
			md.Language = language
			if language == "go" {
				md.Exports = goExports(md)
			}
			return md, nil
		}
		// 解析失败时用模式匹配兜底
		fallback := extractWithPatterns(language, string(content))
		return fallback, fmt.Errorf("tree-sitter parse failed for %s: %w", language, err)
	}

	md := extractWithPatterns(language, string(content))
	if len(md.Functions) == 0 && len(md.Classes) == 0 && len(md.Imports) == 0 {
		return md, fmt.Errorf("no structure recognized for %s", language)
	}
	return md, nil
}

// parseWithTreeSitter 解析器非并发安全，每次调用创建新实例
func parseWithTreeSitter(ctx context.Context, g *compiledGrammar, content []byte) (*ontology.CodeMetadata, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	c := newCollector()

	for _, q := range g.queries {
		cursor := sitter.NewQueryCursor()
		cursor.Exec(q, root)
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				c.add(name, capture.Node.Content(content))
			}
		}
		cursor.Close()
	}

	md := c.metadata()
	md.Parser = ParserTreeSitter
	return md, nil
}

// collector 按出现顺序去重收集结构元素
type collector struct {
	seen   map[string]bool
	values map[string][]string
}

func newCollector() *collector {
	return &collector{
		seen:   make(map[string]bool),
		values: make(map[string][]string),
	}
}

func (c *collector) add(kind, value string) {
	if kind == captureImport {
		value = unquote(value)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key := kind + "\x00" + value
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.values[kind] = append(c.values[kind], value)
}

func (c *collector) metadata() *ontology.CodeMetadata {
	md := &ontology.CodeMetadata{
		Functions: nonNil(c.values[captureFunction]),
		Classes:   nonNil(c.values[captureClass]),
		Imports:   nonNil(c.values[captureImport]),
		Exports:   nonNil(c.values[captureExport]),
	}
	return md
}

// goExports Go 以首字母大写表示导出
func goExports(md *ontology.CodeMetadata) []string {
	var exports []string
	for _, names := range [][]string{md.Functions, md.Classes} {
		for _, name := range names {
			r := []rune(name)
			if len(r) > 0 && unicode.IsUpper(r[0]) {
				exports = append(exports, name)
			}
		}
	}
	sort.Strings(exports)
	return nonNil(exports)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
