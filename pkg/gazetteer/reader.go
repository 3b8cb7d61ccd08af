package gazetteer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Minimum number of fields on a place line; latitude and longitude are optional.
const placeMinFields = 8

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// ReadWordIndex parses "token|id,id,..." lines.
func ReadWordIndex(r io.Reader) (map[string][]int, error) {
	cr := newReader(r)
	words := make(map[string][]int)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read word index: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("word index line %d: expected token|ids, got %d fields", line, len(record))
		}
		token := strings.TrimSpace(record[0])
		if token == "" {
			continue
		}
		ids, err := parseIDs(record[1])
		if err != nil {
			return nil, fmt.Errorf("word index line %d: %w", line, err)
		}
		words[token] = ids
	}
	return words, nil
}

// ReadPlaceIndex parses place lines:
//
//	id|name|alt,alt|type,type|locatedInId|alsoId,alsoId|level|country|lat|lon
func ReadPlaceIndex(r io.Reader) (map[int]*Place, error) {
	cr := newReader(r)
	places := make(map[int]*Place)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read place index: %w", err)
		}
		line, _ := cr.FieldPos(0)
		p, err := parsePlace(record)
		if err != nil {
			return nil, fmt.Errorf("place index line %d: %w", line, err)
		}
		places[p.ID] = p
	}
	return places, nil
}

func parsePlace(f []string) (*Place, error) {
	if len(f) < placeMinFields {
		return nil, fmt.Errorf("expected at least %d fields, got %d", placeMinFields, len(f))
	}
	var (
		p   Place
		err error
	)
	if p.ID, err = parseInt("id", f[0]); err != nil {
		return nil, err
	}
	if p.ID <= 0 {
		return nil, fmt.Errorf("id must be positive, got %d", p.ID)
	}
	p.Name = strings.TrimSpace(f[1])
	p.AltNames = splitList(f[2])
	p.Types = splitList(f[3])
	if p.LocatedInID, err = parseInt("locatedInId", f[4]); err != nil {
		return nil, err
	}
	if p.AlsoLocatedInIDs, err = parseIDs(f[5]); err != nil {
		return nil, err
	}
	if p.Level, err = parseInt("level", f[6]); err != nil {
		return nil, err
	}
	if p.Country, err = parseInt("country", f[7]); err != nil {
		return nil, err
	}
	if len(f) > 8 {
		if p.Latitude, err = parseFloat("latitude", f[8]); err != nil {
			return nil, err
		}
	}
	if len(f) > 9 {
		if p.Longitude, err = parseFloat("longitude", f[9]); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func parseInt(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return n, nil
}

func parseFloat(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func parseIDs(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("id list %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
