package extractor

import (
	"regexp"
	"strings"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

var (
	atxHeading   = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	inlineLink   = regexp.MustCompile(`!?\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
	wikiLink     = regexp.MustCompile(`\[\[([^\]|#]+)(?:[#|][^\]]*)?\]\]`)
	referenceDef = regexp.MustCompile(`^\s{0,3}\[[^\]]+\]:\s*<?(\S+?)>?(?:\s+.*)?$`)
	fenceOpen    = regexp.MustCompile("^\\s{0,3}(`{3,}|~{3,})\\s*([\\w+#.-]*)")
)

// extractMarkdown 逐行扫描标题、链接和围栏代码块
// 围栏内的内容不参与标题和链接识别
func extractMarkdown(format, source string) *ontology.DocumentMetadata {
	md := &ontology.DocumentMetadata{
		Format:     format,
		Headings:   []ontology.Heading{},
		Links:      []string{},
		CodeBlocks: []ontology.CodeBlock{},
	}
	seenLinks := make(map[string]bool)
	addLink := func(link string) {
		link = strings.TrimSpace(link)
		if link == "" || seenLinks[link] {
			return
		}
		seenLinks[link] = true
		md.Links = append(md.Links, link)
	}

	var (
		inFence    bool
		fenceMark  string
		fenceLang  string
		fenceLines int
	)

	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimRight(line, "\r")

		if inFence {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, fenceMark) && strings.Trim(trimmed, fenceMark[:1]) == "" {
				md.CodeBlocks = append(md.CodeBlocks, ontology.CodeBlock{Language: fenceLang, Lines: fenceLines})
				inFence = false
				continue
			}
			fenceLines++
			continue
		}

		if m := fenceOpen.FindStringSubmatch(line); m != nil {
			inFence = true
			fenceMark = m[1]
			fenceLang = strings.ToLower(m[2])
			fenceLines = 0
			continue
		}

		if m := atxHeading.FindStringSubmatch(line); m != nil {
			md.Headings = append(md.Headings, ontology.Heading{Level: len(m[1]), Text: m[2]})
			if md.Title == "" && len(m[1]) == 1 {
				md.Title = m[2]
			}
		}
		if m := referenceDef.FindStringSubmatch(line); m != nil {
			addLink(m[1])
			continue
		}
		for _, m := range inlineLink.FindAllStringSubmatch(line, -1) {
			addLink(m[1])
		}
		for _, m := range wikiLink.FindAllStringSubmatch(line, -1) {
			addLink(m[1])
		}
	}

	// 未闭合的围栏按文件结尾闭合
	if inFence {
		md.CodeBlocks = append(md.CodeBlocks, ontology.CodeBlock{Language: fenceLang, Lines: fenceLines})
	}
	return md
}

// extractText 纯文本只记录首行作为标题
func extractText(source string) *ontology.DocumentMetadata {
	md := &ontology.DocumentMetadata{
		Format:     FormatText,
		Headings:   []ontology.Heading{},
		Links:      []string{},
		CodeBlocks: []ontology.CodeBlock{},
	}
	for _, line := range strings.Split(source, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			md.Title = line
			break
		}
	}
	return md
}
