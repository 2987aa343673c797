package storefront

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"MiniCart/pkg/kit"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// ImagesDir holds product photos served under /images/. Files missing
	// there fall back to the bundled icons.
	ImagesDir string

	// CartRateLimit caps cart and order actions per client IP per minute;
	// zero disables it.
	CartRateLimit int
}

const rateWindow = 60 * time.Second

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

func NewHandler(s *Server, deps HTTPDeps) (http.Handler, error) {
	if s.tmpl == nil {
		t, err := parseTemplates()
		if err != nil {
			return nil, err
		}
		s.tmpl = t
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = deps.Log
	}

	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)
	setupRoutes(r, s, deps)

	return r, nil
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps) {
	limit := func(next http.Handler) http.Handler { return next }
	if deps.CartRateLimit > 0 {
		limit = kit.NewIPRateLimiter(deps.CartRateLimit, rateWindow).Middleware
	}

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.FS(imagesFS(deps.ImagesDir)))))

	r.Get("/healthz", healthz)
	r.Get("/readyz", s.handleReady)

	r.Get("/", s.handlePage)
	r.Get("/fragment", s.handleFragment)

	r.Group(func(gr chi.Router) {
		gr.Use(limit)
		gr.Post("/cart/{id}/{action}", s.handleAction)
		gr.Post("/orders/confirm", s.handleConfirm)
		gr.Post("/orders/{id}/new", s.handleNewOrder)
	})

	r.Route("/api", func(ar chi.Router) {
		if s.Catalog != nil {
			ar.Mount("/products", s.Catalog.Routes())
		}
		ar.Get("/cart", s.apiCart)
		ar.Get("/page", s.apiPage)

		ar.Group(func(gr chi.Router) {
			gr.Use(limit)
			gr.Post("/cart/{id}/{action}", s.apiAction)
			gr.Post("/orders", s.apiConfirm)
			gr.Post("/orders/{id}/reset", s.apiNewOrder)
		})
	})
}

// layeredFS opens name from the first layer that has it.
type layeredFS []fs.FS

func (l layeredFS) Open(name string) (f fs.File, err error) {
	err = fs.ErrNotExist
	for _, layer := range l {
		if f, err = layer.Open(name); err == nil {
			return f, nil
		}
	}
	return nil, err
}

func imagesFS(dir string) fs.FS {
	icons, _ := fs.Sub(staticFS, "static/images")
	if dir == "" {
		return icons
	}
	return layeredFS{os.DirFS(dir), icons}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
