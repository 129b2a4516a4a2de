package extractor

import (
	"encoding/json"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// extractConfig 解析配置文件并记录顶层键
// 无法解析时 Valid 为 false，键列表为空
func extractConfig(format string, content []byte) *ontology.ConfigMetadata {
	meta := &ontology.ConfigMetadata{Format: format, Keys: []string{}}

	var doc map[string]any
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(content, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(content, &doc)
	case FormatTOML:
		err = toml.Unmarshal(content, &doc)
	default:
		return meta
	}
	if err != nil {
		return meta
	}

	meta.Valid = true
	for k := range doc {
		meta.Keys = append(meta.Keys, k)
	}
	sort.Strings(meta.Keys)
	return meta
}
