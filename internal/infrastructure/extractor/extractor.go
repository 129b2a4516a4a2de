// Package extractor 将文件内容转换为带类型元数据的本体对象
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zeebo/xxh3"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// 确保 Extractor 实现了 ontology.ObjectExtractor 接口
var _ ontology.ObjectExtractor = (*Extractor)(nil)

// DefaultExcerptLimit 默认摘录字符数
const DefaultExcerptLimit = 2000

// binarySniffLen 检测二进制内容时读取的前缀长度
const binarySniffLen = 8000

// Extractor 对象提取器，无状态，可并发使用
type Extractor struct {
	excerptLimit int
	logger       *slog.Logger
}

// NewExtractor 创建对象提取器
func NewExtractor(cfg *config.SyncConfig) *Extractor {
	limit := cfg.ExcerptLimit
	if limit <= 0 {
		limit = DefaultExcerptLimit
	}
	return &Extractor{
		excerptLimit: limit,
		logger:       log.NewModuleLogger("extractor", "object"),
	}
}

// Extract 提取对象
// 总是返回对象；未识别类型或结构解析失败时额外返回 ErrExtractionDegraded
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*ontology.Object, error) {
	obj := &ontology.Object{
		Path:         path,
		Type:         Classify(path),
		Size:         int64(len(content)),
		LineCount:    CountLines(content),
		ContentHash:  ContentHash(content),
		LastModified: time.Now(),
	}

	if isBinary(content) {
		obj.Type = ontology.UnknownType
		obj.Metadata = &ontology.UnknownMetadata{}
		return obj, fmt.Errorf("%w: binary content", ontology.ErrExtractionDegraded)
	}

	text := strings.ToValidUTF8(string(content), "�")
	body := text
	var degradeErr error

	switch obj.Type.Kind {
	case ontology.KindCode:
		md, err := extractCode(ctx, obj.Type.Subtype, content)
		obj.Metadata = md
		if err != nil {
			degradeErr = err
		}

	case ontology.KindDocument:
		switch obj.Type.Subtype {
		case FormatMarkdown:
			obj.Metadata = extractMarkdown(FormatMarkdown, text)
		case FormatHTML:
			md, markdown, err := extractHTML(content)
			obj.Metadata = md
			body = markdown
			if err != nil {
				degradeErr = err
			}
		default:
			obj.Metadata = extractText(text)
		}

	case ontology.KindConfig:
		md := extractConfig(obj.Type.Subtype, content)
		obj.Metadata = md
		if !md.Valid {
			degradeErr = fmt.Errorf("invalid %s content", obj.Type.Subtype)
		}

	default:
		obj.Metadata = &ontology.UnknownMetadata{}
		degradeErr = fmt.Errorf("unrecognized file type")
	}

	obj.ContentExcerpt = Truncate(body, e.excerptLimit)
	obj.TokenCount = CountTokens(body)

	if degradeErr != nil {
		e.logger.Debug("Extraction degraded",
			"path", path,
			"type", obj.Type.String(),
			"error", degradeErr,
		)
		return obj, fmt.Errorf("%w: %v", ontology.ErrExtractionDegraded, degradeErr)
	}
	return obj, nil
}

// ContentHash 内容哈希（xxh3，16 位十六进制）
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

// CountLines 统计行数，末尾没有换行的最后一行也计入
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// Truncate 按字符数截断，不会切断多字节字符
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

func isBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}
