package lock

import (
	"maps"
	"slices"

	"ccsim/pkg/primitives"
)

// DependencyGraph tracks wait-for relationships between transactions for deadlock detection.
// An edge A→B means A is blocked on a lock held by B. Nodes are transaction
// ids, so removing a transaction or its outgoing edges is a map delete.
//
// Traversals visit nodes and neighbours in ascending id order, which makes the
// reported cycle, and therefore the deadlock victim, independent of map order.
type DependencyGraph struct {
	edges      map[primitives.TransactionID]map[primitives.TransactionID]bool
	cacheValid bool
	lastResult []primitives.TransactionID
}

// NewDependencyGraph creates and initializes a new dependency graph for deadlock detection.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[primitives.TransactionID]map[primitives.TransactionID]bool),
	}
}

// AddEdge records that waiter is blocked by holder. Self edges are ignored.
func (dg *DependencyGraph) AddEdge(waiter, holder primitives.TransactionID) {
	if waiter == holder {
		return
	}
	if dg.edges[waiter] == nil {
		dg.edges[waiter] = make(map[primitives.TransactionID]bool)
	}
	dg.edges[waiter][holder] = true
	dg.cacheValid = false
}

// RemoveOutgoing drops every edge leaving tid, i.e. tid stops waiting.
func (dg *DependencyGraph) RemoveOutgoing(tid primitives.TransactionID) {
	if _, exists := dg.edges[tid]; !exists {
		return
	}
	delete(dg.edges, tid)
	dg.cacheValid = false
}

// RemoveTransaction removes tid both as a waiter and as a holder.
func (dg *DependencyGraph) RemoveTransaction(tid primitives.TransactionID) {
	delete(dg.edges, tid)
	for waiter, holders := range dg.edges {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(dg.edges, waiter)
		}
	}
	dg.cacheValid = false
}

// WaitsFor returns the holders tid is waiting on, ascending.
func (dg *DependencyGraph) WaitsFor(tid primitives.TransactionID) []primitives.TransactionID {
	return slices.Sorted(maps.Keys(dg.edges[tid]))
}

// FindCycle returns the members of one cycle in path order, or nil. The search
// starts from the lowest id and is cached until the graph changes.
func (dg *DependencyGraph) FindCycle() []primitives.TransactionID {
	if dg.cacheValid {
		return slices.Clone(dg.lastResult)
	}

	visited := make(map[primitives.TransactionID]bool)
	onStack := make(map[primitives.TransactionID]bool)
	var path []primitives.TransactionID

	var cycle []primitives.TransactionID
	for _, tid := range slices.Sorted(maps.Keys(dg.edges)) {
		if visited[tid] {
			continue
		}
		if cycle = dg.findCycleDFS(tid, visited, onStack, &path); cycle != nil {
			break
		}
	}

	dg.lastResult = cycle
	dg.cacheValid = true
	return slices.Clone(cycle)
}

// findCycleDFS performs depth-first search, keeping the current path so the
// cycle can be cut out of it when a back edge is found.
func (dg *DependencyGraph) findCycleDFS(
	tid primitives.TransactionID,
	visited, onStack map[primitives.TransactionID]bool,
	path *[]primitives.TransactionID,
) []primitives.TransactionID {
	visited[tid] = true
	onStack[tid] = true
	*path = append(*path, tid)

	for _, neighbor := range dg.WaitsFor(tid) {
		if onStack[neighbor] {
			start := slices.Index(*path, neighbor)
			return slices.Clone((*path)[start:])
		}
		if !visited[neighbor] {
			if cycle := dg.findCycleDFS(neighbor, visited, onStack, path); cycle != nil {
				return cycle
			}
		}
	}

	onStack[tid] = false
	*path = (*path)[:len(*path)-1]
	return nil
}
