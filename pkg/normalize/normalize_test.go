package normalize

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenize(t *testing.T) {
	n := New(DefaultReplacements(), WithLogger(quietLogger()))

	tests := []struct {
		input string
		want  Levels
	}{
		{"Springfield, Mass.", Levels{{"springfield"}, {"mass"}}},
		{"Paris Township, Ohio", Levels{{"paris", "township"}, {"ohio"}}},
		{",,Springfield,,  ,Illinois,", Levels{{"springfield"}, {"illinois"}}},
		{"Saint-Étienne, Loire", Levels{{"saintetienne"}, {"loire"}}},
		{"Ørsted, Danmark", Levels{{"orsted"}, {"danmark"}}},
		{"Straße 12", Levels{{"strasse", "12"}}},
		{"Æbeltoft", Levels{{"aebeltoft"}}},
		{"St. Mary's   Church", Levels{{"st", "marys", "church"}}},
		{"東京, Japan", Levels{{"japan"}}},
		{"", nil},
		{" , , ", nil},
	}
	for _, tt := range tests {
		got := n.Tokenize(tt.input)
		if !reflect.DeepEqual(got.Levels, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got.Levels, tt.want)
		}
	}
}

func TestTokenize_Untokenized(t *testing.T) {
	n := New(nil, WithLogger(quietLogger()))

	res := n.Tokenize("Café, 1ª Sección, Москва")
	want := Levels{{"caf"}, {"1", "seccin"}}
	if !reflect.DeepEqual(res.Levels, want) {
		t.Errorf("levels = %v, want %v", res.Levels, want)
	}
	// é and ó lack a replacement; ª is quiet; Cyrillic is above the Latin range.
	if !reflect.DeepEqual(res.Untokenized, []rune{'é', 'ó'}) {
		t.Errorf("untokenized = %q, want [é ó]", res.Untokenized)
	}
}

func TestTokenize_ReplacementOverride(t *testing.T) {
	n := New(map[rune]string{'ü': "UE", '&': "and"}, WithLogger(quietLogger()))

	got := n.Tokenize("Müller & Sons").Levels
	want := Levels{{"mueller", "and", "sons"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenize_RenderIdempotent(t *testing.T) {
	n := New(DefaultReplacements(), WithLogger(quietLogger()))

	for _, input := range []string{
		"springfield, greene county, missouri",
		"Zürich ,  Schweiz",
		"a b c,d,,e f",
		"",
	} {
		first := n.Tokenize(input).Levels
		again := n.Tokenize(Render(first)).Levels
		if !reflect.DeepEqual(first, again) {
			t.Errorf("Tokenize(Render(%v)) = %v", first, again)
		}
	}
}

func TestNormalize(t *testing.T) {
	n := New(DefaultReplacements(), WithLogger(quietLogger()))

	tests := []struct {
		input, want string
	}{
		{"New York", "newyork"},
		{"St. Louis County", "stlouiscounty"},
		{"Île-de-France", "iledefrance"},
		{"Wrocław, Polska", "wroclawpolska"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultReplacements(t *testing.T) {
	table := DefaultReplacements()

	for r, want := range map[rune]string{
		'é': "e", 'Ñ': "n", 'ß': "ss", 'ø': "o", 'Ł': "l", 'æ': "ae", 'ŏ': "o",
	} {
		if got := table[r]; got != want {
			t.Errorf("table[%q] = %q, want %q", r, got, want)
		}
	}
	if _, ok := table['×']; ok {
		t.Error("multiplication sign must not be in the table")
	}

	// Callers get a copy.
	table['é'] = "x"
	if DefaultReplacements()['é'] != "e" {
		t.Error("DefaultReplacements returned a shared map")
	}
}

func TestLevelsClone(t *testing.T) {
	orig := Levels{{"a", "b"}, {"c"}}
	c := orig.Clone()
	c[0][0] = "z"
	c = append(c, []string{"d"})
	if orig[0][0] != "a" || len(orig) != 2 {
		t.Errorf("Clone shares storage with the original: %v", orig)
	}
}
