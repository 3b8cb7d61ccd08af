package standardize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
)

// Country ids. 1500 is the reference (and large) country.
const (
	usa     = 1500
	france  = 2000
	england = 3000
)

// fixturePlaces:
//
//	United States > Illinois > Sangamon > Springfield(30), Oak Hill(32)
//	                         > Greene(22) > Paris Township(50), Paris City(51)
//	              > Missouri > Greene(21) > Springfield(31)
//	France > Ile-de-France > Paris(2020)
//	England > Kent(3010) > Kent(3012), Dover(3020)
//	        > Sussex(3011)
//	        > London(3030)
func fixturePlaces() map[int]*gazetteer.Place {
	return map[int]*gazetteer.Place{
		usa: {ID: usa, Name: "United States", AltNames: []string{"USA"}, Level: 1, Country: usa},
		10:  {ID: 10, Name: "Illinois", Types: []string{"State"}, LocatedInID: usa, Level: 2, Country: usa},
		11:  {ID: 11, Name: "Missouri", Types: []string{"State"}, LocatedInID: usa, Level: 2, Country: usa},
		20:  {ID: 20, Name: "Sangamon", Types: []string{"County"}, LocatedInID: 10, Level: 3, Country: usa},
		21:  {ID: 21, Name: "Greene", Types: []string{"County"}, LocatedInID: 11, Level: 3, Country: usa},
		22:  {ID: 22, Name: "Greene", Types: []string{"County"}, LocatedInID: 10, Level: 3, Country: usa},
		30:  {ID: 30, Name: "Springfield", Types: []string{"City"}, LocatedInID: 20, Level: 4, Country: usa},
		31:  {ID: 31, Name: "Springfield", Types: []string{"City"}, LocatedInID: 21, Level: 4, Country: usa},
		32:  {ID: 32, Name: "Oak Hill", Types: []string{"Cemetery"}, LocatedInID: 20, Level: 4, Country: usa},
		50:  {ID: 50, Name: "Paris", Types: []string{"Township"}, LocatedInID: 22, Level: 4, Country: usa},
		51:  {ID: 51, Name: "Paris", Types: []string{"City"}, LocatedInID: 22, Level: 4, Country: usa},

		france: {ID: france, Name: "France", Level: 1, Country: france},
		2010:   {ID: 2010, Name: "Île-de-France", Types: []string{"Region"}, LocatedInID: france, Level: 2, Country: france},
		2020:   {ID: 2020, Name: "Paris", Types: []string{"City"}, LocatedInID: 2010, Level: 3, Country: france},

		england: {ID: england, Name: "England", Level: 1, Country: england},
		3010:    {ID: 3010, Name: "Kent", Types: []string{"County"}, LocatedInID: england, Level: 2, Country: england},
		3011:    {ID: 3011, Name: "Sussex", Types: []string{"County"}, LocatedInID: england, Level: 2, Country: england},
		3012:    {ID: 3012, Name: "Kent", Types: []string{"Town"}, LocatedInID: 3010, Level: 3, Country: england},
		3020:    {ID: 3020, Name: "Dover", Types: []string{"Town"}, LocatedInID: 3010, Level: 3, Country: england},
		3030:    {ID: 3030, Name: "London", Types: []string{"City"}, LocatedInID: england, Level: 2, Country: england},
	}
}

func fixtureWords() map[string][]int {
	return map[string][]int{
		"unitedstates": {usa},
		"usa":          {usa},
		"illinois":     {10},
		"ill":          {10},
		"missouri":     {11},
		"sangamon":     {20},
		"greene":       {21, 22},
		"springfield":  {30, 31},
		"oakhill":      {32},
		"paris":        {50, 51, 2020},
		"france":       {france},
		"iledefrance":  {2010},
		"england":      {england},
		"kent":         {3010, 3012},
		"sussex":       {3011},
		"dover":        {3020},
		"london":       {3030},
	}
}

func fixtureIndex() *gazetteer.MemoryIndex {
	return gazetteer.NewMemoryIndex(fixtureWords(), fixturePlaces())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStandardizer(t *testing.T, opts ...Option) *Standardizer {
	t.Helper()
	s, err := New(fixtureIndex(), nil, append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func ids(res []PlaceScore) []int {
	out := make([]int, len(res))
	for i, ps := range res {
		out[i] = ps.Place.ID
	}
	return out
}
