// Package geography derives the city proximity graph and per-city statistics from the
// property catalog. An Index is built once and is read-only afterwards.
package geography

import (
	"fmt"
	"slices"
	"strings"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/models"
)

// Index holds one node per distinct (state, city) pair in catalog encounter order.
// Two cities are adjacent when they share a state (first hop) or a region (second hop).
type Index struct {
	nodes    []models.CityNode
	byCity   map[string][]int
	byState  map[string][]int
	byRegion map[string][]int
	stats    map[string]*models.CityStats
	cities   []string
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Build indexes the catalog. A nil or empty catalog leaves nothing to answer from.
func Build(c *catalog.Catalog) (*Index, error) {
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("geographic index has no catalog: %w", apperr.ErrEngineUnavailable)
	}

	idx := &Index{
		byCity:   make(map[string][]int),
		byState:  make(map[string][]int),
		byRegion: make(map[string][]int),
	}

	seen := make(map[[2]string]bool)
	for _, r := range c.Records() {
		nodeKey := [2]string{key(r.State), key(r.City)}
		if seen[nodeKey] {
			continue
		}
		seen[nodeKey] = true

		i := len(idx.nodes)
		idx.nodes = append(idx.nodes, models.CityNode{City: r.City, State: r.State, Region: r.Region})
		idx.byCity[key(r.City)] = append(idx.byCity[key(r.City)], i)
		idx.byState[key(r.State)] = append(idx.byState[key(r.State)], i)
		idx.byRegion[key(r.Region)] = append(idx.byRegion[key(r.Region)], i)
	}

	for _, positions := range idx.byCity {
		idx.cities = append(idx.cities, idx.nodes[positions[0]].City)
	}
	slices.Sort(idx.cities)

	idx.stats = aggregate(c.Records())
	for k, s := range idx.stats {
		node := idx.nodes[idx.byCity[k][0]]
		s.State = node.State
		s.Region = node.Region
		s.Nearby = idx.nearby(k)
	}

	return idx, nil
}

// NearbyCities lists the cities sharing a state with the given city, followed by the
// further cities sharing its region. The city itself is never part of the result.
func (idx *Index) NearbyCities(city string) ([]string, error) {
	if _, ok := idx.byCity[key(city)]; !ok {
		return nil, fmt.Errorf("city %q: %w", city, apperr.ErrNotFound)
	}
	return idx.nearby(key(city)), nil
}

func (idx *Index) nearby(cityKey string) []string {
	origins := idx.byCity[cityKey]
	seen := map[string]bool{cityKey: true}
	result := make([]string, 0)

	collect := func(group map[string][]int, field func(models.CityNode) string) {
		for _, o := range origins {
			for _, i := range group[key(field(idx.nodes[o]))] {
				name := idx.nodes[i].City
				if seen[key(name)] {
					continue
				}
				seen[key(name)] = true
				result = append(result, name)
			}
		}
	}

	collect(idx.byState, func(n models.CityNode) string { return n.State })
	collect(idx.byRegion, func(n models.CityNode) string { return n.Region })
	return result
}

// LookupCity resolves a case-insensitive city name to its first catalog node.
func (idx *Index) LookupCity(name string) (models.CityNode, bool) {
	positions, ok := idx.byCity[key(name)]
	if !ok {
		return models.CityNode{}, false
	}
	return idx.nodes[positions[0]], true
}

// LookupState resolves a case-insensitive state name to its catalog spelling and region.
func (idx *Index) LookupState(name string) (state, region string, ok bool) {
	positions, ok := idx.byState[key(name)]
	if !ok {
		return "", "", false
	}
	node := idx.nodes[positions[0]]
	return node.State, node.Region, true
}

// Cities returns every distinct city name, sorted.
func (idx *Index) Cities() []string {
	return slices.Clone(idx.cities)
}

func (idx *Index) Nodes() []models.CityNode {
	return slices.Clone(idx.nodes)
}
