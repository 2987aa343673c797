package storefront

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
	"MiniCart/internal/order"
	"MiniCart/pkg/kit"
)

const (
	fragmentHeader = "X-Fragment"
	readyTimeout   = 1 * time.Second
)

type Server struct {
	Cart    *cart.Controller
	Catalog *catalog.Server
	Store   catalog.Store
	Log     *zap.Logger

	tmpl *template.Template
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "page")
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "app")
}

// render rebuilds the whole view from the store on every call.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string) {
	page, err := s.Cart.Page(r.Context())
	if err != nil {
		s.Log.Error("render failed", zap.Error(err), zap.String("template", name))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if err := kit.WriteHTML(w, http.StatusOK, s.tmpl, name, page); err != nil {
		s.Log.Error("template failed", zap.Error(err), zap.String("template", name))
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

// respond answers a form post: the fresh #app fragment for the delegated
// script, a redirect back to the page for plain forms.
func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(fragmentHeader) != "" {
		s.render(w, r, "app")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, action, err := parseActionParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.Cart.Apply(r.Context(), id, action); err != nil {
		if !errors.Is(err, cart.ErrProductNotFound) {
			s.Log.Error("cart action failed", zap.Error(err), zap.Int64("product_id", id), zap.String("action", string(action)))
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		s.Log.Warn("cart action on unknown product", zap.Int64("product_id", id))
	}

	s.respond(w, r)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Cart.Confirm(r.Context()); err != nil {
		s.Log.Error("confirm failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	s.respond(w, r)
}

func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Cart.StartNewOrder(r.Context(), id); err != nil {
		if !errors.Is(err, order.ErrNotFound) {
			s.Log.Error("start new order failed", zap.Error(err), zap.String("order_id", id))
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		s.Log.Warn("start new order: unknown order", zap.String("order_id", id))
	}
	s.respond(w, r)
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	v, err := s.Cart.Cart(r.Context())
	if err != nil {
		s.Log.Error("cart failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) apiPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.Cart.Page(r.Context())
	if err != nil {
		s.Log.Error("page failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) apiAction(w http.ResponseWriter, r *http.Request) {
	id, action, err := parseActionParams(r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	p, err := s.Cart.Apply(r.Context(), id, action)
	switch {
	case errors.Is(err, cart.ErrProductNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	case err != nil:
		s.Log.Error("cart action failed", zap.Error(err), zap.Int64("product_id", id), zap.String("action", string(action)))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	v, err := s.Cart.Cart(r.Context())
	if err != nil {
		s.Log.Error("cart failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"product": cart.NewProductView(p),
		"cart":    v,
	})
}

func (s *Server) apiConfirm(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Cart.Confirm(r.Context())
	if err != nil {
		s.Log.Error("confirm failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, cart.NewOrderView(sum))
}

func (s *Server) apiNewOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.Cart.StartNewOrder(r.Context(), id)
	switch {
	case errors.Is(err, order.ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	case err != nil:
		s.Log.Error("start new order failed", zap.Error(err), zap.String("order_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errBadID = errors.New("bad product id")

func parseActionParams(r *http.Request) (int64, cart.Action, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", errBadID
	}

	action, err := cart.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		return 0, "", err
	}
	return id, action, nil
}
