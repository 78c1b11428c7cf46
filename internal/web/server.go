// Package web serves the single-page promo form and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"pajangan-promoshot/internal/batch"
	"pajangan-promoshot/internal/normalize"
	"pajangan-promoshot/internal/preview"
)

const defaultMaxUploadBytes = 25 << 20

// Generator runs one batch.
type Generator interface {
	Generate(ctx context.Context, req batch.Request) ([]string, error)
}

type Options struct {
	Generator      Generator
	Logger         *slog.Logger
	Static         fs.FS
	MaxUploadBytes int64
}

type Server struct {
	gen            Generator
	logger         *slog.Logger
	static         fs.FS
	maxUploadBytes int64
}

type apiError struct {
	Error string `json:"error"`
}

type optionsResponse struct {
	Backgrounds  []option `json:"backgrounds"`
	AspectRatios []option `json:"aspectRatios"`
	BatchSize    int      `json:"batchSize"`
}

type option struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type normalizeResponse struct {
	PreviewURL string `json:"previewUrl"`
	MimeType   string `json:"mimeType"`
}

type generateResponse struct {
	Images []string `json:"images"`
}

func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Server{
		gen:            opts.Generator,
		logger:         logger,
		static:         opts.Static,
		maxUploadBytes: maxUpload,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, middleware.RealIP, AccessLog(s.logger), middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Post("/normalize", s.handleNormalize)
		r.Post("/generate", s.handleGenerate)
	})

	if s.static != nil {
		r.Handle("/*", http.FileServer(http.FS(s.static)))
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	toOption := func(o preview.NamedOption, _ int) option { return option{Key: o.Key, Name: o.Name} }
	writeJSON(w, http.StatusOK, optionsResponse{
		Backgrounds:  lo.Map(preview.Backgrounds(), toOption),
		AspectRatios: lo.Map(preview.AspectRatios(), toOption),
		BatchSize:    preview.BatchSize,
	})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	ratio, err := preview.ParseAspectRatio(r.FormValue("aspect_ratio"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	img, ok, err := readUpload(r, "image", ratio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing image"})
		return
	}

	writeJSON(w, http.StatusOK, normalizeResponse{PreviewURL: img.PreviewURL, MimeType: img.MediaType})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	ratio, err := preview.ParseAspectRatio(r.FormValue("aspect_ratio"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	background := strings.TrimSpace(r.FormValue("background"))
	if background != "" {
		if _, ok := preview.BackgroundByKey(background); !ok {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown background"})
			return
		}
	}

	modelImg, okModel, err := readUpload(r, "model_image", ratio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "model image: " + err.Error()})
		return
	}
	productImg, okProduct, err := readUpload(r, "product_image", ratio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "product image: " + err.Error()})
		return
	}
	if !okModel || !okProduct {
		writeJSON(w, http.StatusBadRequest, apiError{Error: batch.ErrMissingImage.Error()})
		return
	}

	// A batch runs to the end of its retries even if the client goes away.
	images, err := s.gen.Generate(context.WithoutCancel(r.Context()), batch.Request{
		ModelImage:   modelImg,
		ProductImage: productImg,
		Background:   background,
		AspectRatio:  ratio,
	})
	if err != nil {
		status := statusFor(err)
		s.logger.Error("generate failed",
			"status", status,
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeJSON(w, status, apiError{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Images: images})
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "upload too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return false
	}
	return true
}

// readUpload normalizes the named file field. ok is false when the field is absent.
func readUpload(r *http.Request, field string, ratio preview.AspectRatio) (preview.ImagePayload, bool, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return preview.ImagePayload{}, false, nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return preview.ImagePayload{}, false, errors.New("failed to read image")
	}
	if len(data) == 0 {
		return preview.ImagePayload{}, false, nil
	}

	img, err := normalize.Normalize(data, header.Header.Get("Content-Type"), ratio)
	if err != nil {
		return preview.ImagePayload{}, false, err
	}
	return img, true, nil
}

// statusFor maps orchestrator errors: bad input is the caller's fault, a
// deadline is a gateway timeout and anything else is an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrMissingImage), errors.Is(err, batch.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
