package ontology

import (
	"context"
	"sort"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// ValidateOntology 检查导入环和孤立节点
func (o *Orchestrator) ValidateOntology(ctx context.Context) (*domainOntology.ValidationReport, error) {
	actx, cancel := o.adapterCtx(ctx)
	defer cancel()

	paths, err := o.graph.ListPaths(actx)
	if err != nil {
		return nil, queryErr("list paths", err)
	}
	imports, err := o.graph.ListRelations(actx, domainOntology.RelImports)
	if err != nil {
		return nil, queryErr("list imports", err)
	}
	similar, err := o.graph.ListRelations(actx, domainOntology.RelSimilarTo)
	if err != nil {
		return nil, queryErr("list similarities", err)
	}

	adjacency := make(map[string][]string)
	connected := make(map[string]bool)
	for _, rel := range imports {
		adjacency[rel.Source] = append(adjacency[rel.Source], rel.Target)
		connected[rel.Source] = true
		connected[rel.Target] = true
	}
	for _, rel := range similar {
		connected[rel.Source] = true
		connected[rel.Target] = true
	}

	report := &domainOntology.ValidationReport{
		Cycles:  importCycles(paths, adjacency),
		Orphans: []string{},
		Checked: len(paths),
	}
	for _, p := range paths {
		if !connected[p] {
			report.Orphans = append(report.Orphans, p)
		}
	}
	sort.Strings(report.Orphans)

	if len(report.Cycles) > 0 || len(report.Orphans) > 0 {
		o.logger.Info("Ontology validation found issues",
			"cycles", len(report.Cycles),
			"orphans", len(report.Orphans),
			"checked", report.Checked,
		)
	}
	return report, nil
}

// importCycles Tarjan 强连通分量，返回包含多个节点的分量
func importCycles(nodes []string, adjacency map[string][]string) [][]string {
	var (
		index   = 0
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		stack   []string
		cycles  = [][]string{}
	)

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			sort.Strings(component)
			cycles = append(cycles, component)
		}
	}

	all := append([]string(nil), nodes...)
	for src := range adjacency {
		all = append(all, src)
	}
	sort.Strings(all)
	for _, v := range all {
		if _, seen := indices[v]; !seen {
			strongConnect(v)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
