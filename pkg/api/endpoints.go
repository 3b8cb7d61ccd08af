// Package api exposes the standardizer over HTTP and MCP. Both transports
// decode their arguments into the same request types and dispatch to the
// same kit.Endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/kit"
	"github.com/hazyhaar/placestd/pkg/standardize"
)

// MaxBatch is the largest number of texts accepted by one batch call.
const MaxBatch = 100

// ErrBadRequest marks invalid arguments.
var ErrBadRequest = errors.New("bad request")

// Match is one ranked result with its rendered hierarchy.
type Match struct {
	Place    *gazetteer.Place `json:"place"`
	FullName string           `json:"full_name"`
	Score    float64          `json:"score"`
}

// StandardizeResponse is the result of one text.
type StandardizeResponse struct {
	Text        string              `json:"text"`
	Matches     []Match             `json:"matches"`
	Diagnostics []standardize.Event `json:"diagnostics,omitempty"`
}

type BatchResponse struct {
	Results []*StandardizeResponse `json:"results"`
}

type PlaceResponse struct {
	Place    *gazetteer.Place `json:"place"`
	FullName string           `json:"full_name"`
}

// options shared by single and batch requests.
type options struct {
	Mode        standardize.Mode
	N           int
	Country     string
	Diagnostics bool
}

type standardizeReq struct {
	Text string
	options
}

type batchReq struct {
	Texts []string
	options
}

type placeReq struct {
	ID int
}

// Endpoints are the actions of the API, each taking one Standardizer
// snapshot from the registry per call.
type Endpoints struct {
	Standardize kit.Endpoint
	Batch       kit.Endpoint
	Place       kit.Endpoint
}

// NewEndpoints builds the endpoints over reg, wrapped in logging.
func NewEndpoints(reg *standardize.Registry, logger *slog.Logger) Endpoints {
	if logger == nil {
		logger = slog.Default()
	}
	return Endpoints{
		Standardize: kit.Logging(logger, "standardize")(standardizeEndpoint(reg)),
		Batch:       kit.Logging(logger, "standardize_batch")(batchEndpoint(reg)),
		Place:       kit.Logging(logger, "get_place")(placeEndpoint(reg)),
	}
}

func standardizeEndpoint(reg *standardize.Registry) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*standardizeReq)
		s, err := reg.Current()
		if err != nil {
			return nil, err
		}
		return standardizeOne(ctx, s, req.Text, req.options)
	}
}

func batchEndpoint(reg *standardize.Registry) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*batchReq)
		if len(req.Texts) == 0 {
			return nil, fmt.Errorf("%w: texts array is empty", ErrBadRequest)
		}
		if len(req.Texts) > MaxBatch {
			return nil, fmt.Errorf("%w: too many texts (max %d, got %d)", ErrBadRequest, MaxBatch, len(req.Texts))
		}
		s, err := reg.Current()
		if err != nil {
			return nil, err
		}
		resp := BatchResponse{Results: make([]*StandardizeResponse, len(req.Texts))}
		for i, text := range req.Texts {
			if resp.Results[i], err = standardizeOne(ctx, s, text, req.options); err != nil {
				return nil, err
			}
		}
		return resp, nil
	}
}

func placeEndpoint(reg *standardize.Registry) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*placeReq)
		s, err := reg.Current()
		if err != nil {
			return nil, err
		}
		p, err := s.Place(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		full, err := s.FullName(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("place %d: %w: %w", req.ID, standardize.ErrDataIntegrity, err)
		}
		return PlaceResponse{Place: p, FullName: full}, nil
	}
}

func standardizeOne(ctx context.Context, s *standardize.Standardizer, text string, opts options) (*StandardizeResponse, error) {
	req := standardize.Request{
		Text:           text,
		DefaultCountry: opts.Country,
		Mode:           opts.Mode,
		MaxResults:     opts.N,
	}
	var rec *standardize.Recorder
	if opts.Diagnostics {
		rec = &standardize.Recorder{}
		req.Handler = rec
		// Keep the server-wide handler (diagnostic logging) running too.
		if h := s.Handler(); h != nil {
			req.Handler = standardize.MultiHandler{rec, h}
		}
	}

	scores, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := &StandardizeResponse{Text: text, Matches: make([]Match, 0, len(scores))}
	for _, ps := range scores {
		full, err := s.FullName(ctx, ps.Place)
		if err != nil {
			return nil, err
		}
		resp.Matches = append(resp.Matches, Match{Place: ps.Place, FullName: full, Score: ps.Score})
	}
	if rec != nil {
		resp.Diagnostics = rec.Events()
	}
	return resp, nil
}

// parseOptions validates the textual options shared by both transports.
func parseOptions(mode string, n int, country string, diagnostics bool) (options, error) {
	m, err := standardize.ParseMode(mode)
	if err != nil {
		return options{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if n < 0 {
		return options{}, fmt.Errorf("%w: n must not be negative", ErrBadRequest)
	}
	if n == 0 {
		n = 1
	}
	return options{Mode: m, N: n, Country: country, Diagnostics: diagnostics}, nil
}
