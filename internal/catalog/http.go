package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCart/pkg/kit"
)

// Server exposes the product table read-only as JSON. Routes are relative
// to wherever the caller mounts them, e.g. /api/products.
type Server struct {
	Store Store
	Log   *zap.Logger
}

type productResp struct {
	Product
	Price string `json:"price"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.list)
	r.Get("/{id}", s.get)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		if s.Log != nil {
			s.Log.Error("list products failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, productResp{Product: p, Price: FormatCents(p.PriceCents)})
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return
	}

	p, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("get product failed", zap.Error(err), zap.Int64("id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, productResp{Product: p, Price: FormatCents(p.PriceCents)})
}
