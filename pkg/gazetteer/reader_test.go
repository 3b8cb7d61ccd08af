package gazetteer

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadWordIndex(t *testing.T) {
	input := "springfield|3,5\nillinois|1\n|9\n"
	words, err := ReadWordIndex(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]int{"springfield": {3, 5}, "illinois": {1}}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("got %v, want %v", words, want)
	}
}

func TestReadWordIndex_Errors(t *testing.T) {
	for _, input := range []string{
		"springfield\n",
		"springfield|3,x\n",
	} {
		if _, err := ReadWordIndex(strings.NewReader(input)); err == nil {
			t.Errorf("ReadWordIndex(%q): expected error", input)
		}
	}
}

func TestReadWordIndex_LineNumber(t *testing.T) {
	_, err := ReadWordIndex(strings.NewReader("a|1\nb|2\nc|oops\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("err = %v, want mention of line 3", err)
	}
}

func TestReadPlaceIndex(t *testing.T) {
	input := strings.Join([]string{
		"1500|United States|USA,America||0||1|1500",
		"5|Springfield|Springfeld|city,town|4|1,2|3|1500|37.21|-93.29",
		`7|St. Mary's "Old" Church||church|5||4|1500|`,
	}, "\n")
	places, err := ReadPlaceIndex(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 3 {
		t.Fatalf("got %d places", len(places))
	}

	want := &Place{
		ID: 5, Name: "Springfield", AltNames: []string{"Springfeld"},
		Types: []string{"city", "town"}, LocatedInID: 4, AlsoLocatedInIDs: []int{1, 2},
		Level: 3, Country: 1500, Latitude: 37.21, Longitude: -93.29,
	}
	if !reflect.DeepEqual(places[5], want) {
		t.Errorf("place 5 = %+v, want %+v", places[5], want)
	}

	us := places[1500]
	if us.LocatedInID != 0 || us.AlsoLocatedInIDs != nil || us.Types != nil {
		t.Errorf("root place = %+v", us)
	}
	if !reflect.DeepEqual(us.AltNames, []string{"USA", "America"}) {
		t.Errorf("alt names = %v", us.AltNames)
	}
	if places[7].Name != `St. Mary's "Old" Church` {
		t.Errorf("lazy quotes: name = %q", places[7].Name)
	}
}

func TestReadPlaceIndex_Errors(t *testing.T) {
	tests := []struct {
		name, input string
	}{
		{"too few fields", "1|A|||0||1\n"},
		{"bad id", "x|A|||0||1|1\n"},
		{"zero id", "0|A|||0||1|1\n"},
		{"bad level", "1|A|||0||one|1\n"},
		{"bad latitude", "1|A|||0||1|1|north|0\n"},
		{"bad also id", "1|A|||0|2,b|1|1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPlaceIndex(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
