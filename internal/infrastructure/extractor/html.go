package extractor

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// extractHTML 先转换为 Markdown 再复用 Markdown 提取规则
// 返回转换后的 Markdown 文本，用作摘录和向量化输入
func extractHTML(content []byte) (*ontology.DocumentMetadata, string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	markdown, err := converter.ConvertString(string(content))
	if err != nil {
		meta := extractText(string(content))
		meta.Format = FormatHTML
		return meta, string(content), fmt.Errorf("failed to convert html: %w", err)
	}

	meta := extractMarkdown(FormatHTML, markdown)
	if title := htmlTitle(content); title != "" {
		meta.Title = title
	}
	return meta, markdown, nil
}

// htmlTitle 读取 <title> 文本
func htmlTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
