package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
)

func init() {
	Register(&geonamesAdapter{})
}

type geonamesAdapter struct{}

func (a *geonamesAdapter) ID() string          { return "geonames" }
func (a *geonamesAdapter) DatasetID() string   { return "geonames" }
func (a *geonamesAdapter) Description() string { return "GeoNames dump: countries, administrative divisions, populated places" }
func (a *geonamesAdapter) DefaultURL() string  { return "https://download.geonames.org/export/dump/allCountries.zip" }
func (a *geonamesAdapter) License() string     { return "CC-BY-4.0" }

func (a *geonamesAdapter) Import(ctx context.Context, sourceURL, outputDir string) error {
	name := "geonames.txt"
	if strings.HasSuffix(strings.ToLower(sourceURL), ".zip") {
		name = "geonames.zip"
	}
	files, cleanup, err := fetch(ctx, sourceURL, outputDir, name)
	if err != nil {
		return err
	}
	defer cleanup()

	places := make(map[int]*gazetteer.Place)
	for _, path := range files {
		// Dumps ship with a readme.txt next to the data file.
		if strings.EqualFold(filepath.Base(path), "readme.txt") {
			continue
		}
		if err := parseGeoNamesFile(path, places); err != nil {
			return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}

	return writeDataset(filepath.Join(outputDir, a.DatasetID()), indexPlaces(places), &gazetteer.Manifest{
		ID:        a.DatasetID(),
		Version:   time.Now().UTC().Format("2006-01-02"),
		Source:    "GeoNames",
		SourceURL: sourceURL,
		License:   a.License(),
	})
}

func parseGeoNamesFile(path string, places map[int]*gazetteer.Place) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	parsed, err := parseGeoNames(f)
	if err != nil {
		return err
	}
	for id, p := range parsed {
		places[id] = p
	}
	return nil
}

// Feature ranks, in the order records are linked: a parent always has a
// lower rank than its children.
const (
	rankCountry = iota
	rankDependency
	rankADM1
	rankADM2
	rankADM3
	rankADM4
	rankPopulated
)

type geoRecord struct {
	id       int
	name     string
	alts     []string
	lat, lon float64
	code     string
	cc       string
	admin    [4]string
	rank     int
}

// featureRank classifies a GeoNames feature; ok is false for features that
// are not part of the administrative hierarchy.
func featureRank(class, code string) (rank int, ok bool) {
	switch {
	case class == "A" && code == "PCLI":
		return rankCountry, true
	case class == "A" && (strings.HasPrefix(code, "PCL") || code == "TERR"):
		return rankDependency, true
	case class == "A" && code == "ADM1":
		return rankADM1, true
	case class == "A" && code == "ADM2":
		return rankADM2, true
	case class == "A" && code == "ADM3":
		return rankADM3, true
	case class == "A" && code == "ADM4":
		return rankADM4, true
	case class == "P":
		return rankPopulated, true
	}
	return 0, false
}

var featureTypes = map[string]string{
	"ADM1": "Region",
	"ADM2": "County",
	"ADM3": "District",
	"ADM4": "Municipality",
	"PPLC": "City",
	"PPLA": "City",
	"PPLH": "Historical Place",
	"PPLX": "Section",
}

func featureType(rank int, code string) string {
	if rank <= rankDependency {
		return "Country"
	}
	if t, ok := featureTypes[code]; ok {
		return t
	}
	if strings.HasPrefix(code, "PPLA") {
		return "City"
	}
	return "Town"
}

// adminKey identifies an administrative division by its country and admin
// codes. It is empty when a code is missing; "00" means undefined.
func adminKey(cc string, codes []string) string {
	for _, c := range codes {
		if c == "" || c == "00" {
			return ""
		}
	}
	return cc + "." + strings.Join(codes, ".")
}

// parseGeoNames reads a tab-separated GeoNames dump (19 columns) and links
// countries, admin divisions and populated places into a hierarchy through
// their admin codes. A place whose division is missing is attached to the
// nearest existing ancestor; a place without a country is dropped.
func parseGeoNames(r io.Reader) (map[int]*gazetteer.Place, error) {
	var recs []geoRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fields := strings.SplitN(sc.Text(), "\t", 19)
		if len(fields) != 19 {
			continue
		}
		rank, ok := featureRank(fields[6], fields[7])
		if !ok {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil || id <= 0 {
			continue
		}
		name := strings.TrimSpace(fields[1])
		if name == "" {
			continue
		}
		lat, _ := strconv.ParseFloat(fields[4], 64)
		lon, _ := strconv.ParseFloat(fields[5], 64)

		rec := geoRecord{
			id:    id,
			name:  name,
			lat:   lat,
			lon:   lon,
			code:  fields[7],
			cc:    fields[8],
			admin: [4]string{fields[10], fields[11], fields[12], fields[13]},
			rank:  rank,
		}
		seen := map[string]bool{name: true}
		for _, alt := range append([]string{fields[2]}, strings.Split(fields[3], ",")...) {
			alt = strings.TrimSpace(alt)
			if alt != "" && !seen[alt] {
				seen[alt] = true
				rec.alts = append(rec.alts, alt)
			}
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].rank != recs[j].rank {
			return recs[i].rank < recs[j].rank
		}
		return recs[i].id < recs[j].id
	})

	places := make(map[int]*gazetteer.Place, len(recs))
	countries := make(map[string]int)
	admins := make(map[string]int)
	var dropped int
	for _, rec := range recs {
		p := &gazetteer.Place{
			ID:        rec.id,
			Name:      rec.name,
			AltNames:  rec.alts,
			Types:     []string{featureType(rec.rank, rec.code)},
			Latitude:  rec.lat,
			Longitude: rec.lon,
		}

		if rec.rank <= rankDependency {
			if _, dup := countries[rec.cc]; dup || rec.cc == "" {
				continue
			}
			countries[rec.cc] = rec.id
			p.Level = 1
			p.Country = rec.id
			places[rec.id] = p
			continue
		}

		country, ok := countries[rec.cc]
		if !ok {
			dropped++
			continue
		}
		// Divisions look for their parent one level up; places look at
		// every level.
		depth := 4
		if rec.rank < rankPopulated {
			depth = rec.rank - rankADM1
		}
		parent := country
		for n := depth; n >= 1; n-- {
			if id, ok := admins[adminKey(rec.cc, rec.admin[:n])]; ok {
				parent = id
				break
			}
		}
		p.LocatedInID = parent
		p.Level = places[parent].Level + 1
		p.Country = country
		places[rec.id] = p

		if rec.rank < rankPopulated {
			if key := adminKey(rec.cc, rec.admin[:depth+1]); key != "" {
				if _, dup := admins[key]; !dup {
					admins[key] = rec.id
				}
			}
		}
	}
	if dropped > 0 {
		slog.Warn("geonames: places without a country dropped", "count", dropped)
	}
	return places, nil
}
