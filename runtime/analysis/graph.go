// Package analysis builds the cross-entry reference graph of a parsed
// resource and runs the analyses that need whole-resource visibility:
// reference cycles, overlong reference chains, and shadowed entries.
//
// The graph is data about references between entries, not pointer
// topology — the AST itself is always a tree. Nodes are
// namespace-prefixed ids ("msg:welcome", "term:brand") so a message
// and a term with the same name stay distinct.
package analysis

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
)

// Default bounds for chain warnings.
const (
	DefaultMaxChainDepth = 25
	chainDisplayLimit    = 10
)

// Graph is a dependency adjacency map over prefixed node keys.
type Graph map[string]map[string]struct{}

// MessageKey builds the prefixed node key for a message.
func MessageKey(id string) string { return "msg:" + id }

// TermKey builds the prefixed node key for a term.
func TermKey(id string) string { return "term:" + id }

// ExtractReferences collects the message and term ids referenced by a
// pattern, attribute-granular references included.
func ExtractReferences(patterns ...*ast.Pattern) (messageRefs, termRefs []string) {
	msgSet := map[string]struct{}{}
	termSet := map[string]struct{}{}
	for _, p := range patterns {
		if p == nil {
			continue
		}
		// Traversal depth mirrors the parser's nesting limit; a pattern
		// that deep has already been rejected.
		_ = ast.Walk(p, func(n ast.Node) error {
			switch v := n.(type) {
			case *ast.MessageReference:
				msgSet[v.ID.Name] = struct{}{}
			case *ast.TermReference:
				termSet[v.ID.Name] = struct{}{}
			}
			return nil
		})
	}
	messageRefs = lo.Keys(msgSet)
	termRefs = lo.Keys(termSet)
	sort.Strings(messageRefs)
	sort.Strings(termRefs)
	return messageRefs, termRefs
}

// BuildGraph constructs the dependency graph of a resource. Entries
// shadowed by an earlier entry with the same id do not contribute
// edges; first-writer-wins means they never resolve.
func BuildGraph(res *ast.Resource) Graph {
	graph := Graph{}
	for _, entry := range res.Entries {
		var key string
		var patterns []*ast.Pattern
		switch v := entry.(type) {
		case *ast.Message:
			key = MessageKey(v.ID.Name)
			patterns = entryPatterns(v.Value, v.Attributes)
		case *ast.Term:
			key = TermKey(v.ID.Name)
			patterns = entryPatterns(v.Value, v.Attributes)
		default:
			continue
		}
		if _, exists := graph[key]; exists {
			continue
		}
		deps := map[string]struct{}{}
		msgRefs, termRefs := ExtractReferences(patterns...)
		for _, r := range msgRefs {
			deps[MessageKey(r)] = struct{}{}
		}
		for _, r := range termRefs {
			deps[TermKey(r)] = struct{}{}
		}
		graph[key] = deps
	}
	return graph
}

func entryPatterns(value *ast.Pattern, attrs []*ast.Attribute) []*ast.Pattern {
	patterns := []*ast.Pattern{value}
	for _, a := range attrs {
		patterns = append(patterns, a.Value)
	}
	return patterns
}

// DetectCycles reports reference cycles using an iterative DFS with
// an explicit stack — adversarial inputs must not be able to overflow
// the goroutine stack. Each back edge the DFS meets yields one cycle, so
// a cyclic graph reports at least one cycle, but not every elementary
// cycle is listed. Each cycle is returned closed (last element
// repeats the first) in canonical rotation, deduplicated.
func DetectCycles(graph Graph) [][]string {
	visited := map[string]bool{}
	seenCanonical := map[string]bool{}
	var cycles [][]string

	roots := lo.Keys(graph)
	sort.Strings(roots)

	type frame struct {
		node      string
		entering  bool
		neighbors []string
	}

	for _, start := range roots {
		if visited[start] {
			continue
		}
		var path []string
		onPath := map[string]bool{}
		stack := []frame{{node: start, entering: true, neighbors: sortedNeighbors(graph, start)}}

		for len(stack) > 0 {
			fr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !fr.entering {
				path = path[:len(path)-1]
				delete(onPath, fr.node)
				continue
			}
			if visited[fr.node] {
				continue
			}
			visited[fr.node] = true
			onPath[fr.node] = true
			path = append(path, fr.node)
			stack = append(stack, frame{node: fr.node, entering: false})

			for _, neighbor := range fr.neighbors {
				if !visited[neighbor] {
					stack = append(stack, frame{node: neighbor, entering: true, neighbors: sortedNeighbors(graph, neighbor)})
				} else if onPath[neighbor] {
					idx := lo.IndexOf(path, neighbor)
					cycle := append(append([]string{}, path[idx:]...), neighbor)
					canonical := CanonicalizeCycle(cycle)
					key := strings.Join(canonical, "\x00")
					if !seenCanonical[key] {
						seenCanonical[key] = true
						cycles = append(cycles, canonical)
					}
				}
			}
		}
	}
	return cycles
}

func sortedNeighbors(graph Graph, node string) []string {
	neighbors := lo.Keys(graph[node])
	sort.Strings(neighbors)
	return neighbors
}

// CanonicalizeCycle rotates a closed cycle to start at its
// lexicographically smallest node, preserving direction. The operation
// is idempotent: canonicalizing a canonical cycle is a no-op.
func CanonicalizeCycle(cycle []string) []string {
	if len(cycle) <= 1 {
		return append([]string{}, cycle...)
	}
	nodes := cycle[:len(cycle)-1]
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, nodes[minIdx:]...)
	rotated = append(rotated, nodes[:minIdx]...)
	return append(rotated, rotated[0])
}

// CycleKey renders a canonical cycle for display: "a -> b -> a".
func CycleKey(cycle []string) string {
	return strings.Join(CanonicalizeCycle(cycle), " -> ")
}

// Option configures Analyze.
type Option func(*config)

type config struct {
	maxChainDepth int
}

// WithMaxChainDepth overrides the chain-depth warning threshold.
func WithMaxChainDepth(depth int) Option {
	return func(c *config) { c.maxChainDepth = depth }
}

// Analyze runs all resource-level analyses: cycle warnings, long-chain
// warnings, and shadow warnings for duplicate ids. All findings are
// advisory — cycles are also caught at resolution time and produce
// fallbacks there.
func Analyze(res *ast.Resource, opts ...Option) *diag.ValidationResult {
	cfg := &config{maxChainDepth: DefaultMaxChainDepth}
	for _, opt := range opts {
		opt(cfg)
	}

	result := &diag.ValidationResult{}
	graph := BuildGraph(res)

	cycles := DetectCycles(graph)
	cycleEdges := map[string]bool{}
	for _, cycle := range cycles {
		if len(cycle) < 3 {
			// A trivial self-cycle [a, a]: the resolver handles it like
			// any other re-entry; still worth a warning.
			result.AddWarning(diag.CodeCircularReference, stripNamespace(cycle[0]),
				"entry references itself: %s", CycleKey(cycle))
			markCycleEdges(cycleEdges, cycle)
			continue
		}
		result.AddWarning(diag.CodeCircularReference, stripNamespace(cycle[0]),
			"reference cycle: %s", CycleKey(cycle))
		markCycleEdges(cycleEdges, cycle)
	}

	for node, path := range longChains(graph, cycleEdges, cfg.maxChainDepth) {
		result.AddWarning(diag.CodeLongReferenceChain, stripNamespace(node),
			"reference chain of %d entries exceeds depth %d: %s",
			len(path), cfg.maxChainDepth, formatChain(path))
	}

	for _, id := range shadowedEntries(res) {
		result.AddWarning(diag.CodeDuplicateEntry, strings.TrimPrefix(id, "-"),
			"entry %q shadows an earlier entry with the same id and will be dropped", id)
	}

	return result
}

func markCycleEdges(edges map[string]bool, cycle []string) {
	for i := 0; i+1 < len(cycle); i++ {
		edges[cycle[i]+"\x00"+cycle[i+1]] = true
	}
}

func stripNamespace(key string) string {
	if _, after, found := strings.Cut(key, ":"); found {
		return after
	}
	return key
}

// longChains computes the longest reference path starting at each node
// over the non-cycle edges, returning those exceeding maxDepth. The
// graph without cycle edges is a DAG, so memoized traversal
// terminates.
func longChains(graph Graph, cycleEdges map[string]bool, maxDepth int) map[string][]string {
	memo := map[string][]string{}

	var longestFrom func(node string) []string
	longestFrom = func(node string) []string {
		if cached, ok := memo[node]; ok {
			return cached
		}
		// Mark in-progress to cut residual cycles that share no edge
		// with a detected canonical cycle.
		memo[node] = []string{node}
		var best []string
		for _, neighbor := range sortedNeighbors(graph, node) {
			if cycleEdges[node+"\x00"+neighbor] {
				continue
			}
			if _, known := graph[neighbor]; !known {
				continue
			}
			if chain := longestFrom(neighbor); len(chain) > len(best) {
				best = chain
			}
		}
		path := append([]string{node}, best...)
		memo[node] = path
		return path
	}

	out := map[string][]string{}
	for node := range graph {
		if chain := longestFrom(node); len(chain) > maxDepth {
			// Only report chain heads: nodes that no reported chain
			// already contains give the cleanest signal.
			out[node] = chain
		}
	}
	pruneSubchains(out)
	return out
}

// pruneSubchains drops chains that are suffixes of a longer reported
// chain so one deep path produces one warning.
func pruneSubchains(chains map[string][]string) {
	members := map[string]bool{}
	for _, path := range chains {
		for _, node := range path[1:] {
			members[node] = true
		}
	}
	for node := range chains {
		if members[node] {
			delete(chains, node)
		}
	}
}

// formatChain renders a chain, truncating paths beyond ten nodes.
func formatChain(path []string) string {
	if len(path) > chainDisplayLimit {
		shown := append([]string{}, path[:chainDisplayLimit]...)
		return strings.Join(shown, " -> ") + " -> …"
	}
	return strings.Join(path, " -> ")
}

// shadowedEntries returns ids of entries that repeat an earlier id of
// the same kind and would be dropped by first-writer-wins.
func shadowedEntries(res *ast.Resource) []string {
	seen := map[string]bool{}
	var shadowed []string
	for _, entry := range res.Entries {
		var key, id string
		switch v := entry.(type) {
		case *ast.Message:
			key, id = MessageKey(v.ID.Name), v.ID.Name
		case *ast.Term:
			key, id = TermKey(v.ID.Name), "-"+v.ID.Name
		default:
			continue
		}
		if seen[key] {
			shadowed = append(shadowed, id)
		}
		seen[key] = true
	}
	return shadowed
}
