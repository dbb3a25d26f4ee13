package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/fedshell/adapters/accessor"
	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/adapters/idgen"
	remoteclient "github.com/artpar/fedshell/adapters/remote"
	"github.com/artpar/fedshell/app"
	"github.com/artpar/fedshell/core/events"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// HostDeps contains dependencies for the host router.
type HostDeps struct {
	Shell     *app.Shell
	Balance   *app.BalanceService
	Channel   *events.Channel
	Directory *app.RemoteDirectory
	Accessors *accessor.Registry
	Fragments ports.ManifestSource // Fetches fragments for registered accessors
	IDs       ports.IDGenerator    // Bridge delivery ids; defaults to UUIDs
	Logger    zerolog.Logger
	Metrics   *metrics.Collector // optional

	Title          string
	Version        string
	BridgeSecret   string
	MetricsHandler http.Handler // optional, served at MetricsPath
	MetricsPath    string
	MountTimeout   time.Duration // bounds ?wait=true mounts; 0 means 30s
}

// HostHandler serves the composed page and the host API.
type HostHandler struct {
	deps   HostDeps
	secret []byte
	logger zerolog.Logger
}

// RemoteView describes a declared remote.
type RemoteView struct {
	Name          string `json:"name"`
	ManifestURL   string `json:"manifest_url"`
	ExposedModule string `json:"exposed_module"`
	Accessor      string `json:"accessor"`
	Registered    bool   `json:"accessor_registered"`
}

// SlotDetail is a slot view with its current content.
type SlotDetail struct {
	app.SlotView
	Content string `json:"content"`
}

// MountRequest optionally names the remote to mount.
type MountRequest struct {
	Remote string `json:"remote"`
}

// EventAccepted is returned once a bridged event was delivered.
type EventAccepted struct {
	DeliveryID string `json:"delivery_id"`
	Kind       string `json:"kind"`
}

// NewHostRouter creates the host HTTP router.
func NewHostRouter(deps HostDeps) chi.Router {
	if deps.Title == "" {
		deps.Title = "Banca en Línea"
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	if deps.MountTimeout <= 0 {
		deps.MountTimeout = 30 * time.Second
	}
	if deps.IDs == nil {
		deps.IDs = idgen.UUID{}
	}
	h := &HostHandler{
		deps:   deps,
		secret: []byte(deps.BridgeSecret),
		logger: deps.Logger.With().Str("component", "host_http").Logger(),
	}

	r := newBaseRouter(h.logger, deps.Metrics)
	r.Get("/version", VersionHandler("fedshell", deps.Version))
	if deps.MetricsHandler != nil {
		r.Handle(deps.MetricsPath, deps.MetricsHandler)
	}

	r.Get("/", h.Page)
	r.Route("/api", func(r chi.Router) {
		r.Get("/slots", h.ListSlots)
		r.Get("/slots/{slot}", h.GetSlot)
		r.Post("/slots/{slot}/mount", h.MountSlot)
		r.Get("/balance", h.GetBalance)
		r.Post("/events", h.ReceiveEvent)
		r.Get("/remotes", h.ListRemotes)
		r.Post("/remotes/{name}/accessor", h.RegisterAccessor)
		r.Delete("/remotes/{name}/accessor", h.UnregisterAccessor)
	})
	return r
}

// Page renders the composed host page.
func (h *HostHandler) Page(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:   h.deps.Title,
		Balance: h.deps.Balance.Formatted(),
		Notice:  noticeFromQuery(r.URL.Query()),
	}
	for _, view := range h.deps.Shell.Views() {
		sd := slotData{
			Name:   view.Slot,
			Remote: view.Remote,
			Phase:  view.State.Phase.String(),
			Err:    view.State.Err,
		}
		if c, err := h.deps.Shell.Controller(view.Slot); err == nil {
			sd.Content = c.Slot().Content()
		}
		data.Slots = append(data.Slots, sd)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("render page")
	}
}

func noticeFromQuery(q url.Values) *notice {
	switch q.Get("transfer") {
	case "ok":
		text := "Transferencia exitosa"
		if tx := q.Get("tx"); tx != "" {
			text += ". ID: " + tx
		}
		return &notice{Kind: "success", Text: text}
	case "failed":
		text := q.Get("message")
		if text == "" {
			text = "Error al procesar la transferencia"
		}
		return &notice{Kind: "error", Text: text}
	}
	return nil
}

// ListSlots lists every slot with its mount state.
func (h *HostHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"slots": h.deps.Shell.Views()})
}

// GetSlot returns one slot including its content.
func (h *HostHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	detail, err := h.slotDetail(chi.URLParam(r, "slot"))
	if err != nil {
		h.slotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// MountSlot starts a mount. With ?wait=true the response is sent once the
// mount settles.
func (h *HostHandler) MountSlot(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	var req MountRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
	}
	if q := r.URL.Query().Get("remote"); q != "" {
		req.Remote = q
	}

	// The mount outlives the request unless the caller waits for it.
	ctx := context.WithoutCancel(r.Context())
	done, err := h.deps.Shell.Mount(ctx, slot, req.Remote)
	if err != nil {
		h.slotError(w, err)
		return
	}

	status := http.StatusAccepted
	if r.URL.Query().Get("wait") == "true" {
		select {
		case <-done:
			status = http.StatusOK
		case <-time.After(h.deps.MountTimeout):
		case <-r.Context().Done():
			return
		}
	}

	detail, err := h.slotDetail(slot)
	if err != nil {
		h.slotError(w, err)
		return
	}
	writeJSON(w, status, detail)
}

func (h *HostHandler) slotDetail(slot string) (SlotDetail, error) {
	view, err := h.deps.Shell.View(slot)
	if err != nil {
		return SlotDetail{}, err
	}
	c, err := h.deps.Shell.Controller(slot)
	if err != nil {
		return SlotDetail{}, err
	}
	return SlotDetail{SlotView: view, Content: string(c.Slot().Content())}, nil
}

func (h *HostHandler) slotError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrUnknownSlot) {
		writeError(w, http.StatusNotFound, "unknown_slot", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

// GetBalance returns the current balance.
func (h *HostHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Balance.View())
}

// ReceiveEvent decodes a bridged event and publishes it on the host channel.
func (h *HostHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	if len(h.secret) > 0 {
		if err := events.Verify(h.secret, body, r.Header.Get(events.SignatureHeader)); err != nil {
			h.reject("signature", err)
			writeError(w, http.StatusUnauthorized, "bad_signature", err.Error())
			return
		}
	}

	payload, err := events.Decode(body)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrUnknownKind):
			h.reject("unknown_kind", err)
			writeError(w, http.StatusUnprocessableEntity, "unknown_kind", err.Error())
		case errors.Is(err, events.ErrUnsupportedVersion):
			h.reject("version", err)
			writeError(w, http.StatusUnprocessableEntity, "unsupported_version", err.Error())
		default:
			h.reject("invalid", err)
			writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		}
		return
	}

	deliveryID := h.deps.IDs.New()
	if err := h.deps.Channel.Publish(r.Context(), payload); err != nil {
		h.reject("publish", err)
		writeError(w, http.StatusConflict, "publish_failed", err.Error())
		return
	}

	h.logger.Info().
		Str("delivery_id", deliveryID).
		Str("event", string(payload.Kind())).
		Msg("bridged event delivered")
	writeJSON(w, http.StatusAccepted, EventAccepted{DeliveryID: deliveryID, Kind: string(payload.Kind())})
}

func (h *HostHandler) reject(reason string, err error) {
	h.logger.Warn().Err(err).Str("reason", reason).Msg("bridged event rejected")
	if h.deps.Metrics != nil {
		h.deps.Metrics.BridgeRejected.WithLabelValues(reason).Inc()
	}
}

// ListRemotes lists declared remotes and whether an accessor is published.
func (h *HostHandler) ListRemotes(w http.ResponseWriter, r *http.Request) {
	reg := h.deps.Directory.Registry()
	views := make([]RemoteView, 0, reg.Len())
	for _, name := range reg.Names() {
		d, err := reg.Resolve(name)
		if err != nil {
			continue
		}
		_, registered := h.deps.Accessors.Lookup(name)
		views = append(views, RemoteView{
			Name:          d.Name,
			ManifestURL:   d.ManifestURL,
			ExposedModule: d.ExposedModule,
			Accessor:      remote.AccessorName(d.Name),
			Registered:    registered,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remotes":   views,
		"accessors": h.deps.Accessors.List(),
	})
}

// RegisterAccessor publishes a fragment-backed accessor for a declared remote.
func (h *HostHandler) RegisterAccessor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.deps.Directory.Resolve(name); err != nil {
		writeError(w, http.StatusNotFound, "unknown_remote", err.Error())
		return
	}

	var req remoteclient.AccessorRegistration
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	u, err := url.Parse(req.FragmentURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		writeError(w, http.StatusUnprocessableEntity, "invalid_fragment_url", "fragment_url must be an absolute http(s) URL")
		return
	}

	entry := h.deps.Accessors.RegisterFragment(name, u.String(), h.deps.Fragments)
	writeJSON(w, http.StatusCreated, remoteclient.AccessorResponse{
		Remote:   entry.Remote,
		Accessor: entry.Accessor,
		ID:       entry.ID,
	})
}

// UnregisterAccessor removes a published accessor.
func (h *HostHandler) UnregisterAccessor(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Accessors.Unregister(chi.URLParam(r, "name")) {
		writeError(w, http.StatusNotFound, "accessor_not_found", "no accessor registered")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
