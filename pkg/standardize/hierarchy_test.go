package standardize

import (
	"context"
	"reflect"
	"testing"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
)

// hierarchyResolution builds a resolution over:
//
//	1 > 2 > 3 > 5 (also in 4) > 6
//	    2 > 4
//	7 <-> 8 (cycle), 9 (state of another country)
func hierarchyResolution(t *testing.T) *resolution {
	t.Helper()
	places := map[int]*gazetteer.Place{
		1: {ID: 1, Name: "Country", Level: 1, Country: 1},
		2: {ID: 2, Name: "State", Types: []string{"State"}, LocatedInID: 1, Level: 2, Country: 1},
		3: {ID: 3, Name: "North", Types: []string{"County"}, LocatedInID: 2, Level: 3, Country: 1},
		4: {ID: 4, Name: "South", Types: []string{"County"}, LocatedInID: 2, Level: 3, Country: 1},
		5: {ID: 5, Name: "Border", Types: []string{"Town"}, LocatedInID: 3, AlsoLocatedInIDs: []int{4}, Level: 4, Country: 1},
		6: {ID: 6, Name: "Mill", Types: []string{"Village"}, LocatedInID: 5, Level: 5, Country: 1},
		7: {ID: 7, Name: "Loop", LocatedInID: 8, Level: 3, Country: 1},
		8: {ID: 8, Name: "Back", LocatedInID: 7, Level: 3, Country: 1},
		9: {ID: 9, Name: "Province", LocatedInID: 10, Level: 2, Country: 10},
	}
	cfg := DefaultConfig()
	cfg.ReferenceCountry = 1
	s, err := New(gazetteer.NewMemoryIndex(nil, places), cfg, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return &resolution{s: s, ctx: context.Background(), places: make(map[int]*gazetteer.Place)}
}

func TestHasAncestorIn(t *testing.T) {
	r := hierarchyResolution(t)

	tests := []struct {
		id      int
		targets []int
		want    bool
	}{
		{3, []int{2}, true},
		{6, []int{1}, true},
		{6, []int{4}, true}, // through the secondary parent of 5
		{5, []int{4}, true},
		{4, []int{3}, false},
		{6, []int{6}, false},
		{7, []int{1}, false},
		{7, []int{8}, true},
	}
	for _, tt := range tests {
		got, err := r.hasAncestorIn(tt.id, idSet(tt.targets))
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("hasAncestorIn(%d, %v) = %v, want %v", tt.id, tt.targets, got, tt.want)
		}
	}
}

func TestFilterSubplaces(t *testing.T) {
	r := hierarchyResolution(t)
	got, err := r.filterSubplaces([]int{3, 4, 5, 6, 7}, []int{4})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{5, 6}; !reflect.DeepEqual(got, want) {
		t.Errorf("filterSubplaces = %v, want %v", got, want)
	}
}

func TestMostSpecific(t *testing.T) {
	r := hierarchyResolution(t)

	tests := []struct {
		ids  []int
		want []int
	}{
		{[]int{1, 3, 6}, []int{6}},
		{[]int{6, 2}, []int{6}},
		{[]int{3, 4}, []int{3, 4}},
		{[]int{4, 5}, []int{5}},
		{[]int{7, 8}, []int{}},
		{[]int{3}, []int{3}},
	}
	for _, tt := range tests {
		got, err := r.mostSpecific(tt.ids)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("mostSpecific(%v) = %v, want %v", tt.ids, got, tt.want)
		}
	}
}

func TestIsSkippable(t *testing.T) {
	r := hierarchyResolution(t)

	tests := []struct {
		ids  []int
		want bool
	}{
		{[]int{3}, true},
		{[]int{9}, true},     // state outside the reference country
		{[]int{2}, false},    // state of the reference country
		{[]int{1}, false},    // country
		{[]int{3, 1}, false}, // any non-skippable member
	}
	for _, tt := range tests {
		got, err := r.isSkippable(tt.ids)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("isSkippable(%v) = %v, want %v", tt.ids, got, tt.want)
		}
	}
}

func TestFilterType(t *testing.T) {
	r := hierarchyResolution(t)
	got, err := r.filterType("county", []int{3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("filterType(county) = %v, want %v", got, want)
	}
	// The name counts as well as the types.
	got, _ = r.filterType("border", []int{5, 6})
	if want := []int{5}; !reflect.DeepEqual(got, want) {
		t.Errorf("filterType(border) = %v, want %v", got, want)
	}
}
