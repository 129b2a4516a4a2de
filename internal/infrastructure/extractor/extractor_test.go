package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

func newTestExtractor(limit int) *Extractor {
	return NewExtractor(&config.SyncConfig{ExcerptLimit: limit})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		expected ontology.ObjectType
	}{
		{"/w/main.go", ontology.CodeType("go")},
		{"/w/App.TSX", ontology.CodeType("typescript")},
		{"/w/README.md", ontology.DocumentType(FormatMarkdown)},
		{"/w/index.html", ontology.DocumentType(FormatHTML)},
		{"/w/package.json", ontology.ConfigType(FormatJSON)},
		{"/w/ci.yml", ontology.ConfigType(FormatYAML)},
		{"/w/Cargo.toml", ontology.ConfigType(FormatTOML)},
		{"/w/archive.qqq", ontology.UnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.path))
		})
	}
}

func TestClassify_LexerFallback(t *testing.T) {
	typ := Classify("/w/Dockerfile")
	assert.Equal(t, ontology.KindCode, typ.Kind)
	assert.Equal(t, "docker", typ.Subtype)
}

func TestExtract_Go(t *testing.T) {
	src := `package main

import (
	"fmt"
	"os"
)

type Server struct{}

func (s *Server) Run() {}

func main() {
	fmt.Println(os.Args)
}
`
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/main.go", []byte(src))
	require.NoError(t, err)

	code, ok := obj.Metadata.(*ontology.CodeMetadata)
	require.True(t, ok)
	assert.Equal(t, "go", code.Language)
	assert.ElementsMatch(t, []string{"fmt", "os"}, code.Imports)
	assert.Contains(t, code.Functions, "main")
	assert.Contains(t, code.Functions, "Run")
	assert.Contains(t, code.Classes, "Server")
	assert.Contains(t, code.Exports, "Server")
	assert.NotContains(t, code.Exports, "main")

	assert.Equal(t, int64(len(src)), obj.Size)
	assert.Equal(t, 14, obj.LineCount)
	assert.NotEmpty(t, obj.ContentHash)
	assert.Greater(t, obj.TokenCount, 0)
}

func TestExtract_Python(t *testing.T) {
	src := "import os\nfrom .models import User\n\nclass Repo:\n    def find(self):\n        pass\n\ndef helper():\n    return 1\n"
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/repo.py", []byte(src))
	require.NoError(t, err)

	code := obj.Metadata.(*ontology.CodeMetadata)
	assert.Contains(t, code.Imports, "os")
	assert.Contains(t, code.Imports, ".models")
	assert.Contains(t, code.Classes, "Repo")
	assert.Contains(t, code.Functions, "find")
	assert.Contains(t, code.Functions, "helper")
}

func TestExtract_JavaScriptImport(t *testing.T) {
	src := `import "b.js";
import { x } from './c.js';
export function run() { return x; }
`
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/a.js", []byte(src))
	require.NoError(t, err)

	code := obj.Metadata.(*ontology.CodeMetadata)
	assert.Equal(t, []string{"b.js", "./c.js"}, code.Imports)
	assert.Contains(t, code.Functions, "run")
	assert.Equal(t, []string{"b.js", "./c.js"}, obj.ImportTargets())
}

func TestExtract_RustPatterns(t *testing.T) {
	src := "use std::collections::HashMap;\nmod util;\n\npub struct Cache {}\n\npub fn get() {}\nfn private() {}\n"
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/lib.rs", []byte(src))
	require.NoError(t, err)

	code := obj.Metadata.(*ontology.CodeMetadata)
	assert.Equal(t, ParserPattern, code.Parser)
	assert.Equal(t, []string{"std::collections::HashMap", "util"}, code.Imports)
	assert.Equal(t, []string{"get", "private"}, code.Functions)
	assert.Equal(t, []string{"Cache"}, code.Classes)
	assert.ElementsMatch(t, []string{"Cache", "get"}, code.Exports)
}

func TestExtract_Markdown(t *testing.T) {
	src := "# Guide\n\nSee [setup](docs/setup.md) and [[Architecture]].\n\n## Usage\n\n```go\nfmt.Println(1)\nfmt.Println(2)\n```\n\n```\n# not a heading\n```\n"
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/README.md", []byte(src))
	require.NoError(t, err)

	doc, ok := obj.Metadata.(*ontology.DocumentMetadata)
	require.True(t, ok)
	assert.Equal(t, "Guide", doc.Title)
	assert.Equal(t, []ontology.Heading{{Level: 1, Text: "Guide"}, {Level: 2, Text: "Usage"}}, doc.Headings)
	assert.Equal(t, []string{"docs/setup.md", "Architecture"}, doc.Links)
	require.Len(t, doc.CodeBlocks, 2)
	assert.Equal(t, ontology.CodeBlock{Language: "go", Lines: 2}, doc.CodeBlocks[0])
	assert.Equal(t, ontology.CodeBlock{Language: "", Lines: 1}, doc.CodeBlocks[1])
	assert.Empty(t, obj.ImportTargets(), "文档不产生导入边")
}

func TestExtract_HTML(t *testing.T) {
	src := `<html><head><title>Release Notes</title></head>
<body><h1>Changes</h1><p>See <a href="https://example.com/v2">v2</a></p></body></html>`
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/notes.html", []byte(src))
	require.NoError(t, err)

	doc := obj.Metadata.(*ontology.DocumentMetadata)
	assert.Equal(t, FormatHTML, doc.Format)
	assert.Equal(t, "Release Notes", doc.Title)
	assert.Contains(t, doc.Links, "https://example.com/v2")
	assert.NotContains(t, obj.ContentExcerpt, "<body>")
}

func TestExtract_Config(t *testing.T) {
	tests := []struct {
		path    string
		content string
		keys    []string
		valid   bool
	}{
		{"/w/a.json", `{"name":"x","scripts":{"build":"go build"}}`, []string{"name", "scripts"}, true},
		{"/w/a.yaml", "server:\n  port: 1\nlog: debug\n", []string{"log", "server"}, true},
		{"/w/a.toml", "title = \"x\"\n[owner]\nname = \"y\"\n", []string{"owner", "title"}, true},
		{"/w/bad.json", `{"name":`, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			obj, err := newTestExtractor(0).Extract(context.Background(), tt.path, []byte(tt.content))
			if tt.valid {
				require.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ontology.ErrExtractionDegraded))
			}
			cfg := obj.Metadata.(*ontology.ConfigMetadata)
			assert.Equal(t, tt.valid, cfg.Valid)
			assert.Equal(t, tt.keys, cfg.Keys)
		})
	}
}

func TestExtract_UnknownIsDegradedNotFailed(t *testing.T) {
	obj, err := newTestExtractor(0).Extract(context.Background(), "/w/blob.qqq", []byte("hello\nworld"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ontology.ErrExtractionDegraded))
	require.NotNil(t, obj)
	assert.True(t, obj.Type.IsUnknown())
	assert.Equal(t, 2, obj.LineCount)
	assert.Equal(t, "hello\nworld", obj.ContentExcerpt)

	obj, err = newTestExtractor(0).Extract(context.Background(), "/w/img.go", []byte{0x89, 'P', 'N', 'G', 0, 1})
	assert.True(t, errors.Is(err, ontology.ErrExtractionDegraded))
	assert.True(t, obj.Type.IsUnknown())
	assert.Empty(t, obj.ContentExcerpt)
}

func TestExtract_ExcerptTruncated(t *testing.T) {
	src := "# T\n" + strings.Repeat("文档内容", 100)
	obj, err := newTestExtractor(10).Extract(context.Background(), "/w/long.md", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, 10, len([]rune(obj.ContentExcerpt)))
	assert.Equal(t, int64(len(src)), obj.Size)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(nil))
	assert.Equal(t, 1, CountLines([]byte("a")))
	assert.Equal(t, 1, CountLines([]byte("a\n")))
	assert.Equal(t, 2, CountLines([]byte("a\nb")))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash([]byte("x")), ContentHash([]byte("x")))
	assert.NotEqual(t, ContentHash([]byte("x")), ContentHash([]byte("y")))
	assert.Len(t, ContentHash([]byte("x")), 16)
}
