package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/standardize"
)

// geoLine builds one 19-column GeoNames record.
func geoLine(id, name, alts, class, code, cc string, admin ...string) string {
	cols := make([]string, 19)
	cols[0], cols[1], cols[2], cols[3] = id, name, name, alts
	cols[4], cols[5] = "39.8", "-89.6"
	cols[6], cols[7], cols[8] = class, code, cc
	for i, a := range admin {
		cols[10+i] = a
	}
	cols[14], cols[17], cols[18] = "0", "America/Chicago", "2024-01-01"
	return strings.Join(cols, "\t")
}

var geoDump = strings.Join([]string{
	geoLine("4250542", "Springfield", "Springfeld,Spfld", "P", "PPLA", "US", "IL", "167"),
	geoLine("4887398", "Chicago", "", "P", "PPL", "US", "IL", "031"),
	geoLine("4908052", "Sangamon County", "", "A", "ADM2", "US", "IL", "167"),
	geoLine("4896861", "Illinois", "IL", "A", "ADM1", "US", "IL"),
	geoLine("6252001", "United States", "USA,United States of America", "A", "PCLI", "US", "00"),
	geoLine("4250600", "Sangamon River", "", "H", "STM", "US", "IL"),
	geoLine("9999999", "Atlantis", "", "P", "PPL", "ZZ"),
	"malformed\tline",
}, "\n") + "\n"

func TestParseGeoNames(t *testing.T) {
	places, err := parseGeoNames(strings.NewReader(geoDump))
	if err != nil {
		t.Fatalf("parseGeoNames: %v", err)
	}
	if len(places) != 5 {
		t.Fatalf("got %d places, want 5", len(places))
	}

	tests := []struct {
		id       int
		parent   int
		level    int
		typ      string
		altNames []string
	}{
		{6252001, 0, 1, "Country", []string{"USA", "United States of America"}},
		{4896861, 6252001, 2, "Region", []string{"IL"}},
		{4908052, 4896861, 3, "County", nil},
		{4250542, 4908052, 4, "City", []string{"Springfeld", "Spfld"}},
		// admin2 031 is not in the dump: attached to the state.
		{4887398, 4896861, 3, "Town", nil},
	}
	for _, tt := range tests {
		p, ok := places[tt.id]
		if !ok {
			t.Errorf("place %d missing", tt.id)
			continue
		}
		if p.LocatedInID != tt.parent || p.Level != tt.level || p.Country != 6252001 {
			t.Errorf("place %d: parent=%d level=%d country=%d, want %d %d 6252001",
				tt.id, p.LocatedInID, p.Level, p.Country, tt.parent, tt.level)
		}
		if len(p.Types) != 1 || p.Types[0] != tt.typ {
			t.Errorf("place %d: types = %v, want [%s]", tt.id, p.Types, tt.typ)
		}
		if !slices.Equal(p.AltNames, tt.altNames) {
			t.Errorf("place %d: alt names = %q, want %q", tt.id, p.AltNames, tt.altNames)
		}
	}
	if _, ok := places[9999999]; ok {
		t.Error("place without a country should be dropped")
	}
}

func TestAdminKey(t *testing.T) {
	tests := []struct {
		codes []string
		want  string
	}{
		{[]string{"IL"}, "US.IL"},
		{[]string{"IL", "167"}, "US.IL.167"},
		{[]string{"IL", ""}, ""},
		{[]string{"00"}, ""},
	}
	for _, tt := range tests {
		if got := adminKey("US", tt.codes); got != tt.want {
			t.Errorf("adminKey(US, %v) = %q, want %q", tt.codes, got, tt.want)
		}
	}
}

func TestFeatureType(t *testing.T) {
	tests := []struct {
		class, code string
		want        string
		ok          bool
	}{
		{"A", "PCLI", "Country", true},
		{"A", "PCLD", "Country", true},
		{"A", "ADM3", "District", true},
		{"P", "PPLA3", "City", true},
		{"P", "PPLH", "Historical Place", true},
		{"P", "PPL", "Town", true},
		{"H", "STM", "", false},
		{"A", "ADMD", "", false},
	}
	for _, tt := range tests {
		rank, ok := featureRank(tt.class, tt.code)
		if ok != tt.ok {
			t.Errorf("featureRank(%s, %s) ok = %v, want %v", tt.class, tt.code, ok, tt.ok)
			continue
		}
		if ok {
			if got := featureType(rank, tt.code); got != tt.want {
				t.Errorf("featureType(%s) = %q, want %q", tt.code, got, tt.want)
			}
		}
	}
}

// zipServer serves a ZIP archive of files at any path.
func zipServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeoNamesImport(t *testing.T) {
	srv := zipServer(t, map[string]string{
		"allCountries.txt": geoDump,
		"readme.txt":       "GeoNames dump\n",
	})
	out := t.TempDir()

	a, err := Get("geonames")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := a.Import(context.Background(), srv.URL+"/allCountries.zip", out); err != nil {
		t.Fatalf("Import: %v", err)
	}

	ds, err := gazetteer.LoadDataset(filepath.Join(out, "geonames"))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Manifest.License != "CC-BY-4.0" || ds.Manifest.Source != "GeoNames" {
		t.Errorf("manifest = %+v", ds.Manifest)
	}

	s, err := standardize.New(ds.Index, nil, standardize.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("standardize.New: %v", err)
	}
	ctx := context.Background()
	for text, want := range map[string]int{
		"Springfield, Sangamon County, Illinois, United States": 4250542,
		"Spfld, Sangamon, IL, USA":                              4250542,
		"Chicago, Illinois":                                     4887398,
	} {
		p, err := s.Standardize(ctx, text)
		if err != nil {
			t.Fatalf("Standardize(%q): %v", text, err)
		}
		if p == nil || p.ID != want {
			t.Errorf("Standardize(%q) = %v, want %d", text, p, want)
		}
	}
}
