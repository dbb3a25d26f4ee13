package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/artpar/fedshell/adapters/metrics"
	"github.com/artpar/fedshell/app"
	"github.com/artpar/fedshell/domain/remote"
	"github.com/artpar/fedshell/domain/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Paths served by the transfers remote.
const (
	ManifestPath         = "/remoteEntry.json"
	TransferFragmentPath = "/fragments/transfer"
	TransfersPath        = "/transfers"
	TransferModule       = "./TransferComponent"
)

// TransfersDeps contains dependencies for the transfers remote router.
type TransfersDeps struct {
	Name      string // Logical remote name, e.g. "mfe-transfers"
	Version   string
	PublicURL string // Base URL the host reaches this remote at
	HostURL   string // Where form submissions redirect back to
	Transfers *app.TransferService
	Logger    zerolog.Logger
	Metrics   *metrics.Collector // optional

	MetricsHandler http.Handler // optional
}

// TransfersHandler serves the transfers remote: its manifest, the transfer
// form fragment and the transfer endpoint.
type TransfersHandler struct {
	deps   TransfersDeps
	logger zerolog.Logger
}

// TransferErrorResponse is returned when a transfer cannot be completed.
type TransferErrorResponse struct {
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// NewTransfersRouter creates the transfers remote router.
func NewTransfersRouter(deps TransfersDeps) chi.Router {
	deps.PublicURL = strings.TrimSuffix(deps.PublicURL, "/")
	deps.HostURL = strings.TrimSuffix(deps.HostURL, "/")
	h := &TransfersHandler{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "transfers_http").Str("remote", deps.Name).Logger(),
	}

	r := newBaseRouter(h.logger, deps.Metrics)
	r.Get("/version", VersionHandler(deps.Name, deps.Version))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get(ManifestPath, h.Manifest)
	r.Get(TransferFragmentPath, h.Fragment)
	r.Post(TransfersPath, h.Transfer)
	return r
}

// Manifest publishes the exposed modules.
func (h *TransfersHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, remote.Manifest{
		Name:    h.deps.Name,
		Version: h.deps.Version,
		Exposes: map[string]remote.ModuleRef{
			TransferModule: {URL: TransferFragmentPath, Title: "Transferencias"},
		},
	})
}

// Fragment renders the transfer form.
func (h *TransfersHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := transferFormTemplate.Execute(w, transferFormData{
		Action:    h.deps.PublicURL + TransfersPath,
		MinAmount: transfer.MinAmount.String(),
		MaxAmount: transfer.MaxAmount.String(),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("render transfer fragment")
	}
}

// Transfer executes a transfer. JSON requests get a JSON answer; form posts
// are redirected back to the host page with the outcome.
func (h *TransfersHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	isForm := false
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		isForm = ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
	}

	var (
		req transfer.Request
		err error
	)
	if isForm {
		req, err = requestFromForm(r)
	} else {
		err = json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	}
	if err != nil {
		h.respondFailure(w, r, isForm, http.StatusBadRequest, TransferErrorResponse{Message: err.Error()})
		return
	}

	result, err := h.deps.Transfers.Execute(r.Context(), req)
	if err != nil {
		status, body := transferFailure(err)
		h.respondFailure(w, r, isForm, status, body)
		return
	}

	if isForm {
		q := url.Values{"transfer": {"ok"}, "tx": {result.TransactionID}}
		http.Redirect(w, r, h.deps.HostURL+"/?"+q.Encode(), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func requestFromForm(r *http.Request) (transfer.Request, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return transfer.Request{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.PostForm.Get("amount")))
	if err != nil {
		return transfer.Request{}, &transfer.FieldError{Field: "amount", Err: err}
	}
	return transfer.Request{
		SourceAccount:      strings.TrimSpace(r.PostForm.Get("sourceAccount")),
		DestinationAccount: strings.TrimSpace(r.PostForm.Get("destinationAccount")),
		Amount:             amount,
		Description:        r.PostForm.Get("description"),
	}, nil
}

func transferFailure(err error) (int, TransferErrorResponse) {
	var failed *transfer.FailedError
	if errors.As(err, &failed) {
		return http.StatusBadGateway, TransferErrorResponse{Message: failed.Error(), Attempts: failed.Attempts}
	}
	var field *transfer.FieldError
	if errors.As(err, &field) {
		return http.StatusUnprocessableEntity, TransferErrorResponse{Message: field.Error(), Field: field.Field}
	}
	return http.StatusInternalServerError, TransferErrorResponse{Message: "Error al procesar la transferencia"}
}

func (h *TransfersHandler) respondFailure(w http.ResponseWriter, r *http.Request, isForm bool, status int, body TransferErrorResponse) {
	h.logger.Warn().Int("status", status).Str("message", body.Message).Msg("transfer rejected")
	if isForm {
		q := url.Values{"transfer": {"failed"}, "message": {body.Message}}
		http.Redirect(w, r, h.deps.HostURL+"/?"+q.Encode(), http.StatusSeeOther)
		return
	}
	writeJSON(w, status, body)
}
