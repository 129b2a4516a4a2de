package vector

import (
	"encoding/json"
	"fmt"
	"math"
)

// 载荷中的保留字段
const (
	payloadPath    = "path"
	payloadExcerpt = "excerpt"
)

// FlattenPayload 将元数据展平为向量库可接受的标量
// 字符串、布尔和数值原样保留，其余值序列化为 JSON 字符串
func FlattenPayload(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool, int, int64, int32:
			out[k] = val
		case float32:
			out[k] = finiteOrZero(float64(val))
		case float64:
			out[k] = finiteOrZero(val)
		case fmt.Stringer:
			out[k] = val.String()
		default:
			data, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprintf("%v", val)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// IsZeroVector 判断向量是否为空或全零
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
