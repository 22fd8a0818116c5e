// Package graphwalk implements BFS traversal and shortest-path search
// once, against the storage.GraphStore interface, so both backends share
// identical traversal semantics (§4.8) instead of re-implementing the
// frontier/visited bookkeeping per backend.
package graphwalk

import (
	"context"
	"time"

	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/normalize"
	"github.com/ragstore/engine/internal/obs"
	"github.com/ragstore/engine/internal/storage"
)

// relationKey is the edge identity used to dedup traversed edges: "src→tgt".
func relationKey(r model.Relation) string { return r.Source + "→" + r.Target }

// Traverse performs a level-synchronous BFS over the undirected
// projection of the graph, starting at start, stopping at maxDepth levels
// or maxNodes visited nodes (0 = unbounded), per §4.8.
func Traverse(ctx context.Context, gs storage.GraphStore, projectID, start string, maxDepth, maxNodes int) (model.Subgraph, error) {
	begin := time.Now()
	defer func() { obs.RecordGraphTraverse(ctx, float64(time.Since(begin).Milliseconds())) }()

	startName := normalize.Name(start)
	startEntity, ok, err := gs.GetEntity(ctx, projectID, startName)
	if err != nil {
		return model.Subgraph{}, err
	}
	if !ok {
		return model.Subgraph{}, nil
	}

	visited := map[string]model.Entity{startName: startEntity}
	order := []string{startName}
	seenEdges := map[string]model.Relation{}
	var edgeOrder []string

	frontier := []string{startName}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, name := range frontier {
			if maxNodes > 0 && len(visited) >= maxNodes {
				break
			}
			rels, err := gs.GetRelationsForEntity(ctx, projectID, name)
			if err != nil {
				return model.Subgraph{}, err
			}
			for _, r := range rels {
				key := relationKey(r)
				if _, ok := seenEdges[key]; !ok {
					seenEdges[key] = r
					edgeOrder = append(edgeOrder, key)
				}
				neighbor := r.Source
				if neighbor == name {
					neighbor = r.Target
				}
				if _, ok := visited[neighbor]; ok {
					continue
				}
				if maxNodes > 0 && len(visited) >= maxNodes {
					continue
				}
				ent, ok, err := gs.GetEntity(ctx, projectID, neighbor)
				if err != nil {
					return model.Subgraph{}, err
				}
				if !ok {
					continue
				}
				visited[neighbor] = ent
				order = append(order, neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
		if maxNodes > 0 && len(visited) >= maxNodes {
			break
		}
	}

	out := model.Subgraph{}
	for _, name := range order {
		out.Entities = append(out.Entities, visited[name])
	}
	for _, key := range edgeOrder {
		out.Relations = append(out.Relations, seenEdges[key])
	}
	return out, nil
}

// ShortestPath runs an undirected BFS with a parent map and reconstructs
// the node path from src to tgt. Returns an empty slice when either
// endpoint is absent or no path exists (§4.8).
func ShortestPath(ctx context.Context, gs storage.GraphStore, projectID, src, tgt string) ([]model.Entity, error) {
	srcName, tgtName := normalize.Name(src), normalize.Name(tgt)

	srcEntity, ok, err := gs.GetEntity(ctx, projectID, srcName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if _, ok, err := gs.GetEntity(ctx, projectID, tgtName); err != nil {
		return nil, err
	} else if !ok {
		return nil, nil
	}

	parent := map[string]string{srcName: ""}
	entities := map[string]model.Entity{srcName: srcEntity}
	queue := []string{srcName}

	found := srcName == tgtName
	for len(queue) > 0 && !found {
		name := queue[0]
		queue = queue[1:]

		rels, err := gs.GetRelationsForEntity(ctx, projectID, name)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			neighbor := r.Source
			if neighbor == name {
				neighbor = r.Target
			}
			if _, seen := parent[neighbor]; seen {
				continue
			}
			ent, ok, err := gs.GetEntity(ctx, projectID, neighbor)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			parent[neighbor] = name
			entities[neighbor] = ent
			if neighbor == tgtName {
				found = true
				break
			}
			queue = append(queue, neighbor)
		}
	}

	if !found {
		return nil, nil
	}

	var reversed []string
	for n := tgtName; n != ""; n = parent[n] {
		reversed = append(reversed, n)
		if n == srcName {
			break
		}
	}
	path := make([]model.Entity, len(reversed))
	for i, n := range reversed {
		path[len(reversed)-1-i] = entities[n]
	}
	return path, nil
}
