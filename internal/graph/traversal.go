// Package graph implements read-only traversal over the relationship and
// entity stores: neighborhoods, shortest/all paths, reachability and
// subgraph extraction. It is stateless — every call takes the project's
// store.ProjectStore and holds no state of its own.
package graph

import (
	"context"
	"sort"

	"github.com/contextforge/retrieval-core/internal/store"
)

// Neighborhood is the result of getNeighborhood/getSubgraphByEntityTypes:
// the hydrated entities and the deduplicated edges touching them.
type Neighborhood struct {
	Entities      []store.Entity
	Relationships []store.Relationship
}

// NeighborhoodOpts narrows getNeighborhood.
type NeighborhoodOpts struct {
	MaxDepth  int // default 2
	Direction store.Direction
	Types     []store.RelationshipType
	MinWeight *float64
}

func edgeQueryOpts(types []store.RelationshipType, minWeight *float64) store.RelationshipQueryOpts {
	return store.RelationshipQueryOpts{Types: types, MinWeight: minWeight}
}

// GetNeighborhood performs a BFS from seed, stopping expansion once a node's
// depth equals maxDepth. Edges are deduplicated by id; entities are
// hydrated once at the end.
func GetNeighborhood(ctx context.Context, ps store.ProjectStore, seed string, opts NeighborhoodOpts) (*Neighborhood, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}

	visited := map[string]struct{}{seed: {}}
	edgeSet := map[string]store.Relationship{}
	entitySet := map[string]struct{}{seed: {}}

	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{id: seed, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= maxDepth {
			continue
		}

		edges, err := ps.Relationships.GetForEntity(ctx, cur.id, opts.Direction, edgeQueryOpts(opts.Types, opts.MinWeight))
		if err != nil {
			return nil, err
		}

		for _, e := range edges {
			edgeSet[e.ID] = e

			neighbor := e.TargetID
			if neighbor == cur.id {
				neighbor = e.SourceID
			}
			entitySet[neighbor] = struct{}{}

			if _, seen := visited[neighbor]; seen {
				continue
			}
			visited[neighbor] = struct{}{}
			queue = append(queue, queued{id: neighbor, depth: cur.depth + 1})
		}
	}

	ids := make([]string, 0, len(entitySet))
	for id := range entitySet {
		ids = append(ids, id)
	}
	entities, err := ps.Entities.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	rels := make([]store.Relationship, 0, len(edgeSet))
	for _, r := range edgeSet {
		rels = append(rels, r)
	}

	return &Neighborhood{Entities: entities, Relationships: rels}, nil
}

// Path is one discovered route between two entities.
type Path struct {
	Nodes       []string
	Edges       []store.Relationship
	TotalWeight float64
	Length      int
}

// FindShortestPath performs a BFS along outgoing edges only, returning the
// first path discovered (BFS insertion order breaks ties). nil, nil means
// unreached.
func FindShortestPath(ctx context.Context, ps store.ProjectStore, from, to string, types []store.RelationshipType) (*Path, error) {
	if from == to {
		return &Path{Nodes: []string{from}, Length: 0}, nil
	}

	type frame struct {
		id    string
		nodes []string
		edges []store.Relationship
		total float64
	}

	visited := map[string]struct{}{from: {}}
	queue := []frame{{id: from, nodes: []string{from}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		edges, err := ps.Relationships.GetForEntity(ctx, cur.id, store.DirOut, edgeQueryOpts(types, nil))
		if err != nil {
			return nil, err
		}

		for _, e := range edges {
			if _, seen := visited[e.TargetID]; seen {
				continue
			}
			visited[e.TargetID] = struct{}{}

			nodes := append(append([]string{}, cur.nodes...), e.TargetID)
			edgesOut := append(append([]store.Relationship{}, cur.edges...), e)
			total := cur.total + e.Weight

			if e.TargetID == to {
				return &Path{Nodes: nodes, Edges: edgesOut, TotalWeight: total, Length: len(nodes) - 1}, nil
			}

			queue = append(queue, frame{id: e.TargetID, nodes: nodes, edges: edgesOut, total: total})
		}
	}

	return nil, nil
}

// FindPathsOpts narrows findPaths.
type FindPathsOpts struct {
	MaxDepth int // default 5
	Types    []store.RelationshipType
}

// FindPaths performs a DFS with an on-stack visited set, capping the result
// to the 10 shortest paths (sorted by length ascending, then total weight
// ascending).
func FindPaths(ctx context.Context, ps store.ProjectStore, from, to string, opts FindPathsOpts) ([]Path, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	var found []Path
	onStack := map[string]struct{}{from: {}}

	var walk func(cur string, nodes []string, edges []store.Relationship, total float64) error
	walk = func(cur string, nodes []string, edges []store.Relationship, total float64) error {
		if cur == to {
			found = append(found, Path{
				Nodes:       append([]string{}, nodes...),
				Edges:       append([]store.Relationship{}, edges...),
				TotalWeight: total,
				Length:      len(nodes) - 1,
			})
			return nil
		}
		if len(nodes)-1 >= maxDepth {
			return nil
		}

		edgesOut, err := ps.Relationships.GetForEntity(ctx, cur, store.DirOut, edgeQueryOpts(opts.Types, nil))
		if err != nil {
			return err
		}
		for _, e := range edgesOut {
			if _, onPath := onStack[e.TargetID]; onPath {
				continue
			}
			onStack[e.TargetID] = struct{}{}
			if err := walk(e.TargetID, append(nodes, e.TargetID), append(edges, e), total+e.Weight); err != nil {
				delete(onStack, e.TargetID)
				return err
			}
			delete(onStack, e.TargetID)
		}
		return nil
	}

	if err := walk(from, []string{from}, nil, 0); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Length != found[j].Length {
			return found[i].Length < found[j].Length
		}
		return found[i].TotalWeight < found[j].TotalWeight
	})
	if len(found) > 10 {
		found = found[:10]
	}
	return found, nil
}

// ReachableOpts narrows getReachable.
type ReachableOpts struct {
	MaxDepth  int // 0 means unbounded
	Direction store.Direction
	Types     []store.RelationshipType
}

// GetReachable performs a BFS and returns the visited set minus the seed.
func GetReachable(ctx context.Context, ps store.ProjectStore, seed string, opts ReachableOpts) (map[string]struct{}, error) {
	dir := opts.Direction
	visited := map[string]struct{}{seed: {}}

	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{id: seed, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && cur.depth >= opts.MaxDepth {
			continue
		}

		edges, err := ps.Relationships.GetForEntity(ctx, cur.id, dir, edgeQueryOpts(opts.Types, nil))
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			neighbor := e.TargetID
			if neighbor == cur.id {
				neighbor = e.SourceID
			}
			if _, seen := visited[neighbor]; seen {
				continue
			}
			visited[neighbor] = struct{}{}
			queue = append(queue, queued{id: neighbor, depth: cur.depth + 1})
		}
	}

	delete(visited, seed)
	return visited, nil
}

// GetDependents returns entities that reach id via incoming edges —
// reachable(in).
func GetDependents(ctx context.Context, ps store.ProjectStore, id string, depth int) (map[string]struct{}, error) {
	return GetReachable(ctx, ps, id, ReachableOpts{MaxDepth: depth, Direction: store.DirIn})
}

// GetDependencies returns entities id reaches via outgoing edges —
// reachable(out).
func GetDependencies(ctx context.Context, ps store.ProjectStore, id string, depth int) (map[string]struct{}, error) {
	return GetReachable(ctx, ps, id, ReachableOpts{MaxDepth: depth, Direction: store.DirOut})
}

// FindCommonNeighbors intersects the 1-hop both-direction neighborhoods of
// a and b.
func FindCommonNeighbors(ctx context.Context, ps store.ProjectStore, a, b string) ([]string, error) {
	aNeighbors, err := GetReachable(ctx, ps, a, ReachableOpts{MaxDepth: 1, Direction: store.DirBoth})
	if err != nil {
		return nil, err
	}
	bNeighbors, err := GetReachable(ctx, ps, b, ReachableOpts{MaxDepth: 1, Direction: store.DirBoth})
	if err != nil {
		return nil, err
	}

	var common []string
	for id := range aNeighbors {
		if _, ok := bNeighbors[id]; ok {
			common = append(common, id)
		}
	}
	sort.Strings(common)
	return common, nil
}

// GetSubgraphByEntityTypes restricts nodes to the listed entity types,
// including only edges whose both endpoints lie in that set.
func GetSubgraphByEntityTypes(ctx context.Context, ps store.ProjectStore, entityTypes []store.EntityType, relTypes []store.RelationshipType) (*Neighborhood, error) {
	var out Neighborhood
	inSet := map[string]struct{}{}

	for _, et := range entityTypes {
		entities, err := ps.Entities.ListByType(ctx, et, 0)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			if _, dup := inSet[e.ID]; dup {
				continue
			}
			inSet[e.ID] = struct{}{}
			out.Entities = append(out.Entities, e)
		}
	}

	seenEdge := map[string]struct{}{}
	for id := range inSet {
		edges, err := ps.Relationships.GetForEntity(ctx, id, store.DirOut, edgeQueryOpts(relTypes, nil))
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if _, dup := seenEdge[e.ID]; dup {
				continue
			}
			if _, ok := inSet[e.SourceID]; !ok {
				continue
			}
			if _, ok := inSet[e.TargetID]; !ok {
				continue
			}
			seenEdge[e.ID] = struct{}{}
			out.Relationships = append(out.Relationships, e)
		}
	}

	return &out, nil
}

// Statistics summarizes the project graph (spec "getStatistics").
type Statistics struct {
	EntityCount          int
	RelationshipCount    int
	AverageDegree        float64
	RelationshipsByType  map[store.RelationshipType]int
	TopConnectedEntities []store.ConnectedEntity
}

// GetStatistics reports graph-wide counts plus the top-10 most connected
// entities.
func GetStatistics(ctx context.Context, ps store.ProjectStore) (*Statistics, error) {
	relCount, err := ps.Relationships.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	byType, err := ps.Relationships.GetStatsByType(ctx)
	if err != nil {
		return nil, err
	}
	avgDegree, err := ps.Relationships.GetAverageDegree(ctx)
	if err != nil {
		return nil, err
	}
	top, err := ps.Relationships.GetMostConnected(ctx, 10)
	if err != nil {
		return nil, err
	}

	entityCount := 0
	for _, et := range []store.EntityType{
		store.EntityFile, store.EntityModule, store.EntityFunction, store.EntityClass,
		store.EntityInterface, store.EntityMethod, store.EntityVariable, store.EntityConcept,
		store.EntityDocument, store.EntityRequirement, store.EntityDecision, store.EntitySession,
	} {
		entities, err := ps.Entities.ListByType(ctx, et, 0)
		if err != nil {
			return nil, err
		}
		entityCount += len(entities)
	}

	return &Statistics{
		EntityCount:          entityCount,
		RelationshipCount:    relCount,
		AverageDegree:        avgDegree,
		RelationshipsByType:  byType,
		TopConnectedEntities: top,
	}, nil
}
