package standardize

import (
	"strings"
)

// hasAncestorIn reports whether any place reachable from id through
// LocatedInID or AlsoLocatedInIDs is in targets. id itself does not count.
// Each place is expanded once, so cycles in the data terminate.
func (r *resolution) hasAncestorIn(id int, targets map[int]bool) (bool, error) {
	visited := map[int]bool{id: true}
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p, err := r.place(cur)
		if err != nil {
			return false, err
		}
		for _, parent := range p.Parents() {
			if targets[parent] {
				return true, nil
			}
			if !visited[parent] {
				visited[parent] = true
				stack = append(stack, parent)
			}
		}
	}
	return false, nil
}

// filterSubplaces keeps the children contained, transitively, in one of
// parents.
func (r *resolution) filterSubplaces(children, parents []int) ([]int, error) {
	targets := idSet(parents)
	var out []int
	for _, id := range children {
		ok, err := r.hasAncestorIn(id, targets)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// mostSpecific drops every id that is an ancestor of another id in the set.
func (r *resolution) mostSpecific(ids []int) ([]int, error) {
	if len(ids) < 2 {
		return ids, nil
	}
	ancestors := make(map[int]bool)
	for _, id := range ids {
		for _, other := range ids {
			if other == id || ancestors[other] {
				continue
			}
			ok, err := r.hasAncestorIn(id, map[int]bool{other: true})
			if err != nil {
				return nil, err
			}
			if ok {
				ancestors[other] = true
			}
		}
	}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !ancestors[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// isSkippable is false once ids hold a country or a first-order subdivision
// of the reference country.
func (r *resolution) isSkippable(ids []int) (bool, error) {
	for _, id := range ids {
		p, err := r.place(id)
		if err != nil {
			return false, err
		}
		if p.Level == 1 || (p.Level == 2 && p.Country == r.s.referenceCountry) {
			return false, nil
		}
	}
	return true, nil
}

// filterType keeps the ids whose normalized name or one of whose normalized
// types contains typ.
func (r *resolution) filterType(typ string, ids []int) ([]int, error) {
	var out []int
	for _, id := range ids {
		p, err := r.place(id)
		if err != nil {
			return nil, err
		}
		if strings.Contains(r.s.norm.Normalize(p.Name), typ) {
			out = append(out, id)
			continue
		}
		for _, t := range p.Types {
			if strings.Contains(r.s.norm.Normalize(t), typ) {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

func idSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
