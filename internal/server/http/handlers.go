package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/counter-orion/internal/convert"
	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/and161185/counter-orion/internal/service"
)

// Handler wires services into HTTP handlers.
type Handler struct {
	auth      service.AuthService
	catalog   service.CatalogService
	inventory service.InventoryService
	log       *zap.Logger

	appName    string
	appVersion string
}

// NewHandler constructs a Handler with injected services.
func NewHandler(
	auth service.AuthService,
	catalog service.CatalogService,
	inventory service.InventoryService,
	log *zap.Logger,
	appName, appVersion string,
) *Handler {
	return &Handler{
		auth:       auth,
		catalog:    catalog,
		inventory:  inventory,
		log:        log,
		appName:    appName,
		appVersion: appVersion,
	}
}

// --- meta ---

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"app": h.appName, "version": h.appVersion})
}

// --- auth ---

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req convert.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	u, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToRegisterResponse(u))
}

// remoteIP drops the port; RealIP may already have replaced RemoteAddr with a bare address.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req convert.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	tok, _, err := h.auth.Login(r.Context(), req.Email, req.Password, remoteIP(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTokenResponse(tok))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req convert.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	tok, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTokenResponse(tok))
}

// mustUser is only used behind Authenticate.
func mustUser(r *http.Request) *model.User {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		panic("httpserver: protected handler without authenticated user")
	}
	return u
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, convert.ToUserProfile(*mustUser(r)))
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	if err := h.auth.Delete(r.Context(), u.ID); err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.DeleteResponse{Deleted: true, ID: u.ID.String()})
}

// --- catalog ---

// intParam returns def when name is absent and a validation error when it is not an integer.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrValidation, name)
	}
	return v, nil
}

func (h *Handler) CatalogList(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	pageSize, err := intParam(r, "page_size", service.DefaultPageSize)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	f := model.CatalogFilter{Weapon: q.Get("weapon"), Rarity: q.Get("rarity"), Query: q.Get("q")}

	p, err := h.catalog.List(r.Context(), f, page, pageSize)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToCatalogPage(p))
}

func (h *Handler) CatalogSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", service.DefaultSearchLimit)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	items, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.CatalogItems{Items: convert.ToCatalogItems(items)})
}

// --- owned entries ---

// entryID parses {id}; a malformed id is reported like an unknown entry.
func entryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", errs.ErrNotFound, msgNoEntry)
	}
	return id, nil
}

func (h *Handler) ListSkins(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.ListForOwner(r.Context(), mustUser(r).ID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToEntryList(list))
}

func (h *Handler) AddSkin(w http.ResponseWriter, r *http.Request) {
	var req convert.AddEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	in, err := convert.FromAddEntryRequest(req)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	e, err := h.inventory.Add(r.Context(), mustUser(r).ID, in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToEntry(*e))
}

func (h *Handler) UpdateSkin(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	patch, err := convert.DecodeEntryPatch(body)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	e, err := h.inventory.Update(r.Context(), mustUser(r).ID, id, patch)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToEntry(*e))
}

func (h *Handler) DeleteSkin(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.inventory.Remove(r.Context(), mustUser(r).ID, id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.DeleteResponse{Deleted: true, ID: id.String()})
}

// NotFound answers unknown routes with the JSON error shape.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
