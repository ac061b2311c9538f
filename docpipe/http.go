package docpipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/docharvest/kit"
	"github.com/hazyhaar/docharvest/safepath"
	"github.com/hazyhaar/docharvest/shield"
)

const maxRequestBody = 64 << 10

// Router returns the HTTP API:
//
//	GET  /api/v1/formats
//	POST /api/v1/detect   {"path": "..."}
//	POST /api/v1/extract  {"path": "..."}
func (p *Pipeline) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders(shield.APIHeaders()))
	r.Use(shield.MaxBody(maxRequestBody))
	r.Use(kit.HTTPMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/formats", p.serve(formatsEndpoint, nil))
		r.Post("/detect", p.serve(p.detectEndpoint(), func(r *http.Request) (any, error) {
			var req detectReq
			return &req, decodeBody(r, &req)
		}))
		r.Post("/extract", p.serve(p.extractEndpoint(), func(r *http.Request) (any, error) {
			var req extractReq
			return &req, decodeBody(r, &req)
		}))
	})
	return r
}

func decodeBody(r *http.Request, v interface{ path() string }) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	if v.path() == "" {
		return errors.New("path is required")
	}
	return nil
}

func (r *extractReq) path() string { return r.Path }
func (r *detectReq) path() string  { return r.Path }

func (p *Pipeline) serve(ep kit.Endpoint, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req any
		if decode != nil {
			var err error
			if req, err = decode(r); err != nil {
				code := http.StatusBadRequest
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					code = http.StatusRequestEntityTooLarge
				}
				kit.WriteError(w, code, fmt.Errorf("invalid request: %w", err))
				return
			}
		}
		resp, err := ep(r.Context(), req)
		if err != nil {
			kit.WriteError(w, StatusCode(err), err)
			return
		}
		kit.WriteJSON(w, 200, resp)
	}
}

// StatusCode maps an extraction error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, safepath.ErrPathTraversal):
		return http.StatusForbidden
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrCorrupted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
