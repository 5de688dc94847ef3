package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"tvcatalog/internal/cache"
	"tvcatalog/internal/model"
	"tvcatalog/internal/repository"
)

// Catalog is the read side the handlers serve from.
type Catalog interface {
	List(ctx context.Context, req repository.ListRequest) (model.Page, error)
	FindByURL(ctx context.Context, value string) (model.Product, error)
	Brands(ctx context.Context, limit int) ([]model.BrandCount, error)
	Panels(ctx context.Context) ([]model.PanelCount, error)
	Stats(ctx context.Context, brand string) (model.Stats, error)
	Ping(ctx context.Context) error
}

// Handler serves the catalog over HTTP.
type Handler struct {
	catalog     Catalog
	cache       *cache.Cache
	logger      *slog.Logger
	validate    *validator.Validate
	driver      string
	table       string
	maxPageSize int
}

type HandlerConfig struct {
	Driver      string
	Table       string
	MaxPageSize int
}

func NewHandler(catalog Catalog, c *cache.Cache, logger *slog.Logger, cfg HandlerConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 200
	}
	return &Handler{
		catalog:     catalog,
		cache:       c,
		logger:      logger.With(slog.String("component", "api")),
		validate:    newValidator(),
		driver:      cfg.Driver,
		table:       cfg.Table,
		maxPageSize: cfg.MaxPageSize,
	}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Route("/meta", func(r chi.Router) {
		r.Get("/brands", h.brands)
		r.Get("/panels", h.panels)
		r.Get("/stats", h.stats)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Ping(r.Context()); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"driver": h.driver,
		"table":  h.table,
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	req, err := parseList(r.URL.Query(), h.validate, h.maxPageSize)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	page, err := h.catalog.List(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// getProduct looks a product up by its (path-escaped) product_url.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, errValidation)
		return
	}
	product, err := h.catalog.FindByURL(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) brands(w http.ResponseWriter, r *http.Request) {
	limit, err := parseBrandLimit(r.URL.Query(), h.validate)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var out []model.BrandCount
	err = h.cache.FetchJSON(r.Context(), cache.Key("brands", "limit="+strconv.Itoa(limit)), &out,
		func(ctx context.Context) (any, error) {
			return h.catalog.Brands(ctx, limit)
		})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) panels(w http.ResponseWriter, r *http.Request) {
	var out []model.PanelCount
	err := h.cache.FetchJSON(r.Context(), cache.Key("panels", ""), &out,
		func(ctx context.Context) (any, error) {
			return h.catalog.Panels(ctx)
		})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	brand := strings.TrimSpace(r.URL.Query().Get("brand"))
	var out model.Stats
	err := h.cache.FetchJSON(r.Context(), cache.Key("stats", "brand="+brand), &out,
		func(ctx context.Context) (any, error) {
			return h.catalog.Stats(ctx, brand)
		})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
