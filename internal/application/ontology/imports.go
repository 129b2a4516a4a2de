package ontology

import (
	"os"
	"path/filepath"
	"strings"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/extractor"
)

// resolveImports 将对象声明的导入目标解析为图节点键
// 相对路径和带已知扩展名的目标按源文件目录解析为绝对路径，
// 其余目标（包名、模块名）保持原样，作为占位节点
func resolveImports(obj *domainOntology.Object, known func(path string) bool) []string {
	targets := obj.ImportTargets()
	if len(targets) == 0 {
		return nil
	}

	dir := filepath.Dir(obj.Path)
	ext := filepath.Ext(obj.Path)
	python := obj.Type.Subtype == "python"

	seen := make(map[string]bool, len(targets))
	resolved := make([]string, 0, len(targets))
	for _, target := range targets {
		key := resolveImport(dir, ext, python, target, known)
		if key == "" || key == obj.Path || seen[key] {
			continue
		}
		seen[key] = true
		resolved = append(resolved, key)
	}
	return resolved
}

// resolveImport 解析单个导入目标
func resolveImport(dir, ext string, python bool, target string, known func(string) bool) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}

	switch {
	case python && strings.HasPrefix(target, "."):
		return resolvePythonRelative(dir, target, known)

	case strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../"):
		return pickCandidate(filepath.Join(dir, filepath.FromSlash(target)), ext, known)

	case filepath.IsAbs(target):
		return filepath.Clean(target)

	case hasKnownExtension(target):
		return filepath.Join(dir, filepath.FromSlash(target))
	}
	return target
}

// resolvePythonRelative 解析 from .pkg.mod import x 形式的相对导入
func resolvePythonRelative(dir, target string, known func(string) bool) string {
	dots := len(target) - len(strings.TrimLeft(target, "."))
	base := dir
	for i := 1; i < dots; i++ {
		base = filepath.Dir(base)
	}

	rest := strings.TrimLeft(target, ".")
	if rest == "" {
		return filepath.Join(base, "__init__.py")
	}
	modPath := filepath.Join(base, filepath.FromSlash(strings.ReplaceAll(rest, ".", "/")))
	if pkg := filepath.Join(modPath, "__init__.py"); !exists(modPath+".py", known) && exists(pkg, known) {
		return pkg
	}
	return modPath + ".py"
}

// pickCandidate 为省略扩展名的相对导入补全扩展名
// 依次尝试源文件扩展名、目录下的 index 文件，都不存在时补全源文件扩展名
func pickCandidate(base, ext string, known func(string) bool) string {
	if filepath.Ext(base) != "" || ext == "" {
		return base
	}
	for _, c := range []string{base + ext, filepath.Join(base, "index"+ext)} {
		if exists(c, known) {
			return c
		}
	}
	if exists(base, known) {
		return base
	}
	return base + ext
}

func exists(path string, known func(string) bool) bool {
	if known != nil && known(path) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// hasKnownExtension 目标是否带有可识别的文件扩展名，例如 b.js、util.h
func hasKnownExtension(target string) bool {
	if strings.ContainsAny(target, " :") {
		return false
	}
	return filepath.Ext(target) != "" && !extractor.Classify(target).IsUnknown()
}
