package graph

// DetectCycles returns every import cycle found by a depth-first walk, each
// as the list of files on it starting from the first one reached. Walk order
// is sorted so the result is deterministic.
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool, len(g.files))
	onStack := make(map[string]bool)

	for _, id := range g.IDs() {
		if !visited[id] {
			g.findCycles(id, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (g *Graph) findCycles(curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range g.files[curr].Dependencies {
		if onStack[next] {
			for i, id := range path {
				if id == next {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					*cycles = append(*cycles, cycle)
					break
				}
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}
	onStack[curr] = false
}

// FindImportChain returns the shortest chain of imports leading from one file
// to another, both ends included.
func (g *Graph) FindImportChain(from, to string) ([]string, bool) {
	if _, ok := g.files[from]; !ok {
		return nil, false
	}
	if _, ok := g.files[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	prev := map[string]string{from: ""}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.files[curr].Dependencies {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = curr
			if next == to {
				path := []string{to}
				for node := curr; node != ""; node = prev[node] {
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
