package gazetteer

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// Manifest describes a gazetteer dataset directory.
type Manifest struct {
	ID        string `yaml:"id" json:"id"`
	Version   string `yaml:"version" json:"version"`
	Source    string `yaml:"source" json:"source"`
	SourceURL string `yaml:"source_url" json:"source_url,omitempty"`
	License   string `yaml:"license" json:"license"`
	WordFile  string `yaml:"word_file" json:"word_file"`
	PlaceFile string `yaml:"place_file" json:"place_file"`
	Encoding  string `yaml:"encoding" json:"encoding,omitempty"`
}

// Dataset is a loaded gazetteer with its manifest.
type Dataset struct {
	Manifest *Manifest
	Index    *MemoryIndex
}

const (
	manifestFile = "manifest.yaml"
	snapshotFile = "data.gob"
)

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if m.WordFile == "" {
		m.WordFile = "place_words.txt"
	}
	if m.PlaceFile == "" {
		m.PlaceFile = "places.txt"
	}
	return &m, nil
}

// LoadDataset reads manifest.yaml from dir and loads the index from data.gob
// when present, otherwise from the word and place files. The index is
// validated before it is returned. LoadDataset does not log; callers report
// the dataset with their own logger.
func LoadDataset(dir string) (*Dataset, error) {
	manifest, err := LoadManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Manifest: manifest}

	// Gob takes priority over the flat files.
	gobPath := filepath.Join(dir, snapshotFile)
	if _, err := os.Stat(gobPath); err == nil {
		if ds.Index, err = LoadGob(gobPath); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", manifest.ID, err)
		}
	} else {
		words, err := readFile(filepath.Join(dir, manifest.WordFile), manifest.Encoding, ReadWordIndex)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", manifest.ID, err)
		}
		places, err := readFile(filepath.Join(dir, manifest.PlaceFile), manifest.Encoding, ReadPlaceIndex)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", manifest.ID, err)
		}
		ds.Index = NewMemoryIndex(words, places)
	}

	if err := ds.Index.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", manifest.ID, err)
	}
	return ds, nil
}

// readFile opens path, transcoding it to UTF-8 when the manifest declares
// another encoding, and hands it to parse.
func readFile[T any](path, encoding string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if encoding != "" && !isUTF8(encoding) {
		e, err := htmlindex.Get(encoding)
		if err != nil {
			return zero, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
		}
		r = transform.NewReader(f, e.NewDecoder())
	}
	out, err := parse(r)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}

type snapshot struct {
	Words  map[string][]int
	Places map[int]*Place
}

// LoadGob decodes an index snapshot written by SaveGob.
func LoadGob(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var s snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return NewMemoryIndex(s.Words, s.Places), nil
}

// SaveGob serializes the index to a gob-encoded file at path.
func SaveGob(idx *MemoryIndex, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(snapshot{Words: idx.Words, Places: idx.Places}); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
