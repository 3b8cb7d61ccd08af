package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/placestd/pkg/api"
	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/mcpquic"
	"github.com/hazyhaar/placestd/pkg/standardize"
	"github.com/redis/go-redis/v9"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clearEnv unsets the variables that override the config file.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PLACESTD_DB_DRIVER", "PLACESTD_DB_DSN", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
}

func testIndex() *gazetteer.MemoryIndex {
	places := map[int]*gazetteer.Place{
		1: {ID: 1, Name: "United States", Level: 1, Country: 1},
		2: {ID: 2, Name: "Illinois", LocatedInID: 1, Level: 2, Country: 1},
		3: {ID: 3, Name: "Sangamon", Types: []string{"County"}, LocatedInID: 2, Level: 3, Country: 1},
		4: {ID: 4, Name: "Springfield", Types: []string{"City"}, LocatedInID: 3, Level: 4, Country: 1},
	}
	words := map[string][]int{
		"unitedstates": {1},
		"illinois":     {2},
		"sangamon":     {3},
		"springfield":  {4},
	}
	return gazetteer.NewMemoryIndex(words, places)
}

// writeTestDataset writes a gob dataset and returns its directory.
func writeTestDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := gazetteer.SaveGob(testIndex(), filepath.Join(dir, "data.gob")); err != nil {
		t.Fatal(err)
	}
	manifest := "id: test-us\nversion: \"1\"\nsource: test\nlicense: none\n"
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "placestd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8420" || cfg.DB.Driver != "sqlite" || cfg.Cache.TTL != time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
addr: ":9000"
dataset_dir: /srv/gazetteer
cache:
  size: 10
check_interval: 6h
db:
  driver: postgres
`)
	t.Setenv("PLACESTD_DB_DSN", "postgres://localhost/places")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" || cfg.DatasetDir != "/srv/gazetteer" {
		t.Errorf("cfg = %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Cache.Size != 10 || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.CheckInterval != 6*time.Hour {
		t.Errorf("check_interval = %v", cfg.CheckInterval)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://localhost/places" {
		t.Errorf("db = %+v", cfg.DB)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	if _, err := loadConfig(writeConfig(t, "addr: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoader_Dataset(t *testing.T) {
	clearEnv(t)
	cfg := defaultConfig()
	cfg.DatasetDir = writeTestDataset(t)

	l := newLoader(cfg, quietLogger())
	defer l.Close()
	s, info, err := l.load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.DatasetID != "test-us" || info.Backend != "memory" || info.Places != 4 {
		t.Errorf("info = %+v", info)
	}
	p, err := s.Standardize(context.Background(), "Springfield, Illinois")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.ID != 4 {
		t.Errorf("place = %+v", p)
	}
}

func TestLoader_SQLite(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "gazetteer.db")

	db, err := gazetteer.OpenDB(gazetteer.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := gazetteer.WriteSQL(ctx, db, gazetteer.DriverSQLite, testIndex()); err != nil {
		t.Fatal(err)
	}
	db.Close()

	cfg := defaultConfig()
	cfg.DatasetDir = ""
	cfg.DB.DSN = dsn
	l := newLoader(cfg, quietLogger())
	defer l.Close()

	s, info, err := l.load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Backend != "sql+cache" {
		t.Errorf("backend = %q", info.Backend)
	}
	for range 2 {
		p, err := s.Standardize(ctx, "Springfield, Sangamon County, Illinois")
		if err != nil {
			t.Fatal(err)
		}
		if p == nil || p.ID != 4 {
			t.Errorf("place = %+v", p)
		}
	}
}

func TestLoader_ReloadSeesNewGazetteer(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "gazetteer.db")
	write := func(idx *gazetteer.MemoryIndex) {
		t.Helper()
		db, err := gazetteer.OpenDB(gazetteer.DriverSQLite, dsn)
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		if err := gazetteer.WriteSQL(ctx, db, gazetteer.DriverSQLite, idx); err != nil {
			t.Fatal(err)
		}
	}
	resolve := func(l *loader) int {
		t.Helper()
		s, _, err := l.load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		p, err := s.Standardize(ctx, "Springfield, Illinois")
		if err != nil {
			t.Fatalf("Standardize: %v", err)
		}
		if p == nil {
			t.Fatal("no match")
		}
		return p.ID
	}

	write(testIndex())
	cfg := defaultConfig()
	cfg.DB.DSN = dsn
	l := newLoader(cfg, quietLogger())
	defer l.Close()
	if got := resolve(l); got != 4 {
		t.Fatalf("first load: place %d, want 4", got)
	}

	// The new gazetteer renumbers Springfield; the shared LRU still holds
	// the old ids.
	next := testIndex()
	delete(next.Places, 4)
	next.Places[7] = &gazetteer.Place{ID: 7, Name: "Springfield", Types: []string{"City"}, LocatedInID: 3, Level: 4, Country: 1}
	next.Words["springfield"] = []int{7}
	write(next)

	if got := resolve(l); got != 7 {
		t.Errorf("after reload: place %d, want 7", got)
	}
}

func TestLoader_CloseReleasesRedis(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	cfg := defaultConfig()
	cfg.DatasetDir = writeTestDataset(t)

	l := newLoader(cfg, quietLogger())
	if _, _, err := l.load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.redis == nil {
		t.Fatal("redis client not opened")
	}
	l.Close()
	if err := l.redis.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
		t.Errorf("Ping after Close: err = %v, want redis.ErrClosed", err)
	}
}

func TestLoader_MissingDataset(t *testing.T) {
	clearEnv(t)
	cfg := defaultConfig()
	cfg.DatasetDir = filepath.Join(t.TempDir(), "none")
	l := newLoader(cfg, quietLogger())
	if _, _, err := l.load(context.Background()); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func testApp(t *testing.T) *app {
	t.Helper()
	clearEnv(t)
	cfgPath := writeConfig(t, "dataset_dir: "+writeTestDataset(t)+"\n")
	return &app{logger: quietLogger(), cfgPath: &cfgPath}
}

func TestStandardizeCmd_Text(t *testing.T) {
	cmd := testApp(t).standardizeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--text", "Springfield, Sangamon, Illinois"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Springfield, Sangamon, Illinois, United States") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStandardizeCmd_File(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, []byte("Springfield, Illinois\nAtlantis\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out.txt")
	reports := filepath.Join(dir, "reports")

	cmd := a.standardizeCmd()
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{in, "--out", outPath, "--reports-dir", reports})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Springfield, Illinois | Springfield, Sangamon, Illinois, United States\n"; string(got) != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	notFound, err := os.ReadFile(filepath.Join(reports, "notfound.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(notFound), "Atlantis") {
		t.Errorf("notfound = %q", notFound)
	}
	for _, name := range []string{"ambiguous.txt", "missing.txt", "phrases.txt", "types.txt", "skipped.txt"} {
		if _, err := os.Stat(filepath.Join(reports, name)); err != nil {
			t.Errorf("report %s: %v", name, err)
		}
	}
}

func TestStandardizeCmd_NoInput(t *testing.T) {
	cmd := testApp(t).standardizeCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without --text or file")
	}
}

func TestCompareCmd(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	data := "Springfield, Illinois|Springfield, Sangamon, Illinois, United States\n" +
		"Sangamon|Sangamon County, Illinois\n"
	if err := os.WriteFile(in, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "diff.txt")

	cmd := a.compareCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{in, "--out", outPath})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "total 2, same 1, different 1") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestAnalyzePlacesCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "places.txt")
	if err := os.WriteFile(in, []byte("Dover, Kent, England\nLot 4, Dover, Kent, England\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "analysis")

	cmd := (&app{logger: quietLogger()}).analyzePlacesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{in, "--out-dir", outDir, "--reverse-every", "1"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "words: 7 total, 4 unique") {
		t.Errorf("summary = %q", out.String())
	}
	endings, err := os.ReadFile(filepath.Join(outDir, "endings.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(endings) != "england\t2\n" {
		t.Errorf("endings.txt = %q", endings)
	}
	for _, name := range []string{"places.txt", "words.txt", "numbers.txt", "reversed.txt"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestQueryCmd(t *testing.T) {
	a := testApp(t)
	cfg, err := a.config()
	if err != nil {
		t.Fatal(err)
	}
	l := newLoader(cfg, a.logger)
	defer l.Close()
	reg := standardize.NewRegistry(l.load)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := reg.Load(ctx); err != nil {
		t.Fatal(err)
	}
	tlsCfg, err := mcpquic.SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	ln, err := mcpquic.NewListener("127.0.0.1:0", tlsCfg, api.NewMCPServer(reg, "test", a.logger), a.logger)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go ln.Serve(ctx)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"standardize", []string{"Springfield, Sangamon, Illinois"}, "Springfield, Sangamon, Illinois, United States"},
		{"place", []string{"--place", "3"}, "3\tSangamon, Illinois, United States"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := a.queryCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(append([]string{"--quic", ln.Addr().String(), "--insecure"}, tt.args...))
			if err := cmd.ExecuteContext(ctx); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestQueryCmd_NoText(t *testing.T) {
	cmd := testApp(t).queryCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"--quic", "127.0.0.1:1"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without text or --place")
	}
}
