package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/normalize"
	"github.com/hazyhaar/placestd/pkg/standardize"
	"gopkg.in/yaml.v3"
)

// downloadFile downloads url to dest with retries and timeout.
func downloadFile(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("create file: %w", err)
		}

		_, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		closeErr := f.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return closeErr
		}
		return nil
	}
	return fmt.Errorf("download %s failed after 3 attempts: %w", url, lastErr)
}

// unzipFile extracts a ZIP archive to destDir and returns the extracted file
// paths. Entries are flattened to their base name.
func unzipFile(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var paths []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		if err := extractEntry(f, destPath); err != nil {
			return nil, err
		}
		paths = append(paths, destPath)
	}
	return paths, nil
}

func extractEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// fetch downloads sourceURL into a scratch directory under outputDir and
// returns the local files, unzipped when the source is a ZIP archive. The
// returned cleanup removes the scratch directory.
func fetch(ctx context.Context, sourceURL, outputDir, name string) (files []string, cleanup func(), err error) {
	dlDir := filepath.Join(outputDir, "_download")
	if err := ensureDir(dlDir); err != nil {
		return nil, nil, err
	}
	cleanup = func() { os.RemoveAll(dlDir) }

	dest := filepath.Join(dlDir, name)
	slog.Info("downloading", "url", sourceURL)
	if err := downloadFile(ctx, sourceURL, dest); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("download: %w", err)
	}
	if filepath.Ext(name) != ".zip" {
		return []string{dest}, cleanup, nil
	}
	if files, err = unzipFile(dest, dlDir); err != nil {
		cleanup()
		return nil, nil, err
	}
	return files, cleanup, nil
}

// writeManifest writes m as YAML to dir/manifest.yaml.
func writeManifest(dir string, m *gazetteer.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0o644)
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// indexPlaces builds the word index of places. Every name and alternate
// name is normalized into one token pointing at the place; names ending in
// type words ("Sangamon County") are also indexed without them, since the
// standardizer splits trailing type words off before the lookup. Ids under a
// token are sorted.
func indexPlaces(places map[int]*gazetteer.Place) *gazetteer.MemoryIndex {
	norm := normalize.New(normalize.DefaultReplacements(), normalize.WithLogger(slog.New(slog.DiscardHandler)))
	typeWords := make(map[string]bool)
	for _, w := range standardize.DefaultConfig().TypeWords {
		typeWords[w] = true
	}

	words := make(map[string][]int)
	add := func(token string, id int) {
		if token == "" || slices.Contains(words[token], id) {
			return
		}
		words[token] = append(words[token], id)
	}
	addName := func(name string, id int) {
		var all []string
		for _, level := range norm.Tokenize(name).Levels {
			all = append(all, level...)
		}
		add(strings.Join(all, ""), id)
		end := len(all)
		for end > 0 && typeWords[all[end-1]] {
			end--
		}
		if end > 0 && end < len(all) {
			add(strings.Join(all[:end], ""), id)
		}
	}
	for id, p := range places {
		addName(p.Name, id)
		for _, alt := range p.AltNames {
			addName(alt, id)
		}
	}
	for _, ids := range words {
		slices.Sort(ids)
	}
	return gazetteer.NewMemoryIndex(words, places)
}

// writeDataset validates idx and writes it as a dataset directory.
func writeDataset(dir string, idx *gazetteer.MemoryIndex, m *gazetteer.Manifest) error {
	if err := idx.Validate(); err != nil {
		return err
	}
	if err := ensureDir(dir); err != nil {
		return err
	}
	if err := gazetteer.SaveGob(idx, filepath.Join(dir, "data.gob")); err != nil {
		return fmt.Errorf("save gob: %w", err)
	}
	words, places := idx.Stats()
	slog.Info("dataset written", "dir", dir, "words", words, "places", places)
	return writeManifest(dir, m)
}
