package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
)

func init() {
	Register(&inseeCOGAdapter{})
}

type inseeCOGAdapter struct{}

func (a *inseeCOGAdapter) ID() string          { return "insee-cog-fr" }
func (a *inseeCOGAdapter) DatasetID() string   { return "cog-fr" }
func (a *inseeCOGAdapter) Description() string { return "INSEE COG: regions, departements et communes de France" }
func (a *inseeCOGAdapter) DefaultURL() string {
	return "https://www.insee.fr/fr/statistiques/fichier/7766585/cog_ensemble_2024_csv.zip"
}
func (a *inseeCOGAdapter) License() string { return "Licence Ouverte 2.0" }

// Ids of the COG dataset. Codes are numbered in sorted order within each
// block.
const (
	cogFranceID       = 1
	cogRegionBase     = 1000
	cogDepartmentBase = 10000
	cogCommuneBase    = 100000
)

func (a *inseeCOGAdapter) Import(ctx context.Context, sourceURL, outputDir string) error {
	files, cleanup, err := fetch(ctx, sourceURL, outputDir, "cog.zip")
	if err != nil {
		return err
	}
	defer cleanup()

	var regions, departments, communes string
	for _, path := range files {
		base := strings.ToLower(filepath.Base(path))
		switch {
		case strings.HasPrefix(base, "v_region"):
			regions = path
		case strings.HasPrefix(base, "v_departement"):
			departments = path
		case strings.HasPrefix(base, "v_commune") && !strings.HasPrefix(base, "v_commune_depuis"):
			communes = path
		}
	}
	if regions == "" || departments == "" || communes == "" {
		return fmt.Errorf("archive lacks region, departement or commune file: %v", files)
	}

	places, err := buildCOG(regions, departments, communes)
	if err != nil {
		return err
	}
	return writeDataset(filepath.Join(outputDir, a.DatasetID()), indexPlaces(places), &gazetteer.Manifest{
		ID:        a.DatasetID(),
		Version:   "2024",
		Source:    "INSEE COG",
		SourceURL: sourceURL,
		License:   a.License(),
	})
}

func buildCOG(regionsPath, departmentsPath, communesPath string) (map[int]*gazetteer.Place, error) {
	places := map[int]*gazetteer.Place{
		cogFranceID: {ID: cogFranceID, Name: "France", Types: []string{"Country"}, Level: 1, Country: cogFranceID},
	}
	attach := func(p *gazetteer.Place, parent int) {
		p.LocatedInID = parent
		p.Level = places[parent].Level + 1
		p.Country = cogFranceID
		places[p.ID] = p
	}

	regions, err := readCOG(regionsPath, "REG")
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	regionIDs := make(map[string]int, len(regions))
	for i, row := range regions {
		id := cogRegionBase + i
		regionIDs[row.code] = id
		attach(&gazetteer.Place{ID: id, Name: row.name, Types: []string{"Region"}}, cogFranceID)
	}

	departments, err := readCOG(departmentsPath, "DEP")
	if err != nil {
		return nil, fmt.Errorf("departements: %w", err)
	}
	departmentIDs := make(map[string]int, len(departments))
	for i, row := range departments {
		id := cogDepartmentBase + i
		departmentIDs[row.code] = id
		parent, ok := regionIDs[row.cols["REG"]]
		if !ok {
			parent = cogFranceID
		}
		attach(&gazetteer.Place{ID: id, Name: row.name, Types: []string{"Department"}}, parent)
	}

	communes, err := readCOG(communesPath, "COM")
	if err != nil {
		return nil, fmt.Errorf("communes: %w", err)
	}
	n := 0
	for _, row := range communes {
		// Only keep actual communes (TYPECOM = COM), not their districts.
		if tc := row.cols["TYPECOM"]; tc != "" && tc != "COM" {
			continue
		}
		parent, ok := departmentIDs[row.cols["DEP"]]
		if !ok {
			if parent, ok = regionIDs[row.cols["REG"]]; !ok {
				parent = cogFranceID
			}
		}
		attach(&gazetteer.Place{ID: cogCommuneBase + n, Name: row.name, Types: []string{"Commune"}}, parent)
		n++
	}
	return places, nil
}

type cogRow struct {
	code string
	name string
	cols map[string]string
}

// readCOG reads a COG CSV file keyed by codeCol, sorted by code. Rows
// sharing a code (a commune and its districts) keep file order.
func readCOG(path, codeCol string) ([]cogRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ','
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.ToUpper(strings.TrimPrefix(h, "\ufeff")))
	}
	if !slices.Contains(header, codeCol) {
		return nil, fmt.Errorf("no %s column in header %v", codeCol, header)
	}

	var rows []cogRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cols := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				cols[h] = strings.TrimSpace(record[i])
			}
		}
		name := cols["LIBELLE"]
		if name == "" {
			name = cols["NCCENR"]
		}
		if cols[codeCol] == "" || name == "" {
			continue
		}
		rows = append(rows, cogRow{code: cols[codeCol], name: name, cols: cols})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].code < rows[j].code })
	return rows, nil
}
