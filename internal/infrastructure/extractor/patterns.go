package extractor

import (
	"regexp"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// patternSet 基于正则的结构识别规则，按行匹配，允许漏报
type patternSet struct {
	functions []*regexp.Regexp
	classes   []*regexp.Regexp
	imports   []*regexp.Regexp
	exports   []*regexp.Regexp
}

func re(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)` + expr)
}

var jsPatterns = patternSet{
	functions: []*regexp.Regexp{
		re(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)`),
		re(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`),
	},
	classes: []*regexp.Regexp{
		re(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`),
		re(`^\s*(?:export\s+)?interface\s+(\w+)`),
	},
	imports: []*regexp.Regexp{
		re(`^\s*import\s+(?:[^'"]*?\s+from\s+)?['"]([^'"]+)['"]`),
		re(`^\s*export\s+[^'"]*?\s+from\s+['"]([^'"]+)['"]`),
		re(`require\(\s*['"]([^'"]+)['"]\s*\)`),
	},
	exports: []*regexp.Regexp{
		re(`^\s*export\s+(?:default\s+)?(?:async\s+)?(?:function\s*\*?|class|const|let|var|interface|type|enum)\s+(\w+)`),
	},
}

var patternSets = map[string]patternSet{
	"go": {
		functions: []*regexp.Regexp{re(`^func\s+(?:\([^)]*\)\s*)?(\w+)`)},
		classes:   []*regexp.Regexp{re(`^type\s+(\w+)\s+(?:struct|interface)`)},
		imports: []*regexp.Regexp{
			re(`^import\s+(?:\w+\s+)?"([^"]+)"`),
			re(`^\s+(?:\w+\s+|_\s+|\.\s+)?"([^"]+)"\s*$`),
		},
	},
	"python": {
		functions: []*regexp.Regexp{re(`^\s*(?:async\s+)?def\s+(\w+)`)},
		classes:   []*regexp.Regexp{re(`^\s*class\s+(\w+)`)},
		imports: []*regexp.Regexp{
			re(`^\s*import\s+([\w.]+)`),
			re(`^\s*from\s+([\w.]+)\s+import`),
		},
	},
	"javascript": jsPatterns,
	"typescript": jsPatterns,
	"java": {
		functions: []*regexp.Regexp{re(`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized)\s+)+[\w<>\[\], ]+\s+(\w+)\s*\(`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:(?:public|private|protected|static|final|abstract)\s+)*(?:class|interface|enum|record)\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*import\s+(?:static\s+)?([\w.*]+)\s*;`)},
	},
	"rust": {
		functions: []*regexp.Regexp{re(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+(\w+)`)},
		classes: []*regexp.Regexp{
			re(`^\s*(?:pub(?:\([^)]*\))?\s+)?struct\s+(\w+)`),
			re(`^\s*(?:pub(?:\([^)]*\))?\s+)?enum\s+(\w+)`),
			re(`^\s*(?:pub(?:\([^)]*\))?\s+)?trait\s+(\w+)`),
		},
		imports: []*regexp.Regexp{
			re(`^\s*(?:pub\s+)?use\s+([\w:]+)`),
			re(`^\s*(?:pub\s+)?mod\s+(\w+)\s*;`),
		},
		exports: []*regexp.Regexp{re(`^\s*pub\s+(?:fn|struct|enum|trait|const|static|type)\s+(\w+)`)},
	},
	"zig": {
		functions: []*regexp.Regexp{re(`^\s*(?:pub\s+)?fn\s+(\w+)`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:pub\s+)?const\s+(\w+)\s*=\s*(?:struct|enum|union)`)},
		imports:   []*regexp.Regexp{re(`@import\(\s*"([^"]+)"\s*\)`)},
		exports:   []*regexp.Regexp{re(`^\s*pub\s+(?:fn|const|var)\s+(\w+)`)},
	},
	"ruby": {
		functions: []*regexp.Regexp{re(`^\s*def\s+(?:self\.)?(\w+[?!]?)`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:class|module)\s+([\w:]+)`)},
		imports:   []*regexp.Regexp{re(`^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`)},
	},
	"php": {
		functions: []*regexp.Regexp{re(`^\s*(?:(?:public|private|protected|static|abstract|final)\s+)*function\s+(\w+)`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:(?:abstract|final)\s+)?(?:class|interface|trait)\s+(\w+)`)},
		imports: []*regexp.Regexp{
			re(`^\s*use\s+([\w\\]+)`),
			re(`^\s*(?:require|include)(?:_once)?\s*\(?\s*['"]([^'"]+)['"]`),
		},
	},
	"c": {
		functions: []*regexp.Regexp{re(`^[\w\*][\w\s\*]*?\b(\w+)\s*\([^;]*\)\s*\{`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:typedef\s+)?struct\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*#\s*include\s+"([^"]+)"`)},
	},
	"cpp": {
		functions: []*regexp.Regexp{re(`^[\w\*:&<>][\w\s\*:&<>]*?\b(\w+)\s*\([^;]*\)\s*(?:const\s*)?\{`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:class|struct)\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*#\s*include\s+"([^"]+)"`)},
	},
	"csharp": {
		functions: []*regexp.Regexp{re(`^\s*(?:(?:public|private|protected|internal|static|virtual|override|async|abstract)\s+)+[\w<>\[\],? ]+\s+(\w+)\s*\(`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:(?:public|private|protected|internal|static|sealed|abstract|partial)\s+)*(?:class|interface|struct|enum|record)\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*using\s+([\w.]+)\s*;`)},
	},
	"kotlin": {
		functions: []*regexp.Regexp{re(`^\s*(?:(?:public|private|internal|override|suspend|inline)\s+)*fun\s+(?:<[^>]*>\s*)?(?:\w+\.)?(\w+)`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:(?:data|sealed|abstract|open|enum)\s+)*(?:class|interface|object)\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*import\s+([\w.*]+)`)},
	},
	"swift": {
		functions: []*regexp.Regexp{re(`^\s*(?:(?:public|private|internal|static|override|mutating)\s+)*func\s+(\w+)`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:(?:public|private|internal|final)\s+)*(?:class|struct|protocol|enum)\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*import\s+(\w+)`)},
	},
	"scala": {
		functions: []*regexp.Regexp{re(`^\s*(?:(?:override|private|protected)\s+)*def\s+(\w+)`)},
		classes:   []*regexp.Regexp{re(`^\s*(?:(?:case|abstract|sealed)\s+)*(?:class|trait|object)\s+(\w+)`)},
		imports:   []*regexp.Regexp{re(`^\s*import\s+([\w.]+)`)},
	},
	"shell": {
		functions: []*regexp.Regexp{
			re(`^\s*function\s+(\w+)`),
			re(`^\s*(\w+)\s*\(\)\s*\{`),
		},
		imports: []*regexp.Regexp{re(`^\s*(?:source|\.)\s+['"]?([^\s'"]+)`)},
	},
	"lua": {
		functions: []*regexp.Regexp{re(`^\s*(?:local\s+)?function\s+([\w.:]+)`)},
		imports:   []*regexp.Regexp{re(`require\s*\(?\s*['"]([^'"]+)['"]`)},
	},
}

// extractWithPatterns 使用正则规则提取代码结构
func extractWithPatterns(language, source string) *ontology.CodeMetadata {
	set := patternSets[language]
	c := newCollector()
	collect := func(kind string, exprs []*regexp.Regexp) {
		for _, expr := range exprs {
			for _, m := range expr.FindAllStringSubmatch(source, -1) {
				if len(m) > 1 {
					c.add(kind, m[1])
				}
			}
		}
	}
	collect(captureFunction, set.functions)
	collect(captureClass, set.classes)
	collect(captureImport, set.imports)
	collect(captureExport, set.exports)

	md := c.metadata()
	md.Language = language
	md.Parser = ParserPattern
	if language == "go" {
		md.Exports = goExports(md)
	}
	return md
}
