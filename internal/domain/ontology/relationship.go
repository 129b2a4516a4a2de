package ontology

import "strconv"

// RelationType 关系类型
type RelationType string

const (
	// RelImports 源对象导入目标对象
	RelImports RelationType = "IMPORTS"
	// RelSimilarTo 向量相似关系，带分数
	RelSimilarTo RelationType = "SIMILAR_TO"
	// RelHasVersion 对象指向产生它的变更日志条目
	RelHasVersion RelationType = "HAS_VERSION"
)

// Direction 邻接关系方向
type Direction string

const (
	// DirectionOut 出边
	DirectionOut Direction = "out"
	// DirectionIn 入边
	DirectionIn Direction = "in"
)

// Relationship 图中的一条有向边
type Relationship struct {
	Source   string       `json:"source"`
	Target   string       `json:"target"`
	Relation RelationType `json:"relation"`
	Score    float64      `json:"score,omitempty"`
}

// Neighbor 某对象的直接邻居
type Neighbor struct {
	Relation  RelationType `json:"relation"`
	Target    string       `json:"target"`
	Direction Direction    `json:"direction"`
	Score     float64      `json:"score,omitempty"`
}

// SimilarObject 相似度查询结果
type SimilarObject struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// VersionNodeKey 变更日志节点在图中的键
func VersionNodeKey(version int64) string {
	return "changelog/" + strconv.FormatInt(version, 10)
}

// ClampScore 将分数限制在 [0,1]
func ClampScore(score float64) float64 {
	switch {
	case score != score: // NaN
		return 0
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
