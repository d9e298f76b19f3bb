package handler

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/config"
	"github.com/auth-fusion/authfusion/handler/schema"
	"github.com/auth-fusion/authfusion/internal/execution"
	"github.com/auth-fusion/authfusion/internal/pipeline"
	"github.com/auth-fusion/authfusion/internal/rawhttp"
	"github.com/auth-fusion/authfusion/internal/replay"
	"github.com/auth-fusion/authfusion/internal/report"
)

// maxBodySize bounds the scan request body.
const maxBodySize = 4 << 20

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	Request       string `json:"request"`
	RequestBase64 string `json:"request_base64"`
	AttackerToken string `json:"attacker_token"`
	TargetHost    string `json:"target_host"`
	HTTPS         *bool  `json:"https"`
	Proxy         string `json:"proxy"`
	Baseline      bool   `json:"baseline"`
	StrictLength  bool   `json:"strict_length"`
}

// Input converts the request into pipeline input.
func (r ScanRequest) Input() (pipeline.Input, error) {
	raw := []byte(r.Request)
	if r.RequestBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(r.RequestBase64)
		if err != nil {
			return pipeline.Input{}, errors.New("request_base64 is not valid base64")
		}
		raw = decoded
	}

	https := true
	if r.HTTPS != nil {
		https = *r.HTTPS
	}

	policy := rawhttp.LengthPreserve
	if r.StrictLength {
		policy = rawhttp.LengthStrict
	}

	return pipeline.Input{
		Raw:        raw,
		Credential: r.AttackerToken,
		Target: replay.Target{
			Host:  strings.TrimSuffix(r.TargetHost, "/"),
			HTTPS: https,
			Proxy: r.Proxy,
		},
		Baseline:     r.Baseline,
		LengthPolicy: policy,
	}, nil
}

type ScanHandlerParams struct {
	fx.In

	Dispatcher execution.Dispatcher
	Schema     *schema.Schema
	Config     config.Config
	Log        *zap.Logger
}

func NewScanHandler(params ScanHandlerParams) *ScanHandler {
	return &ScanHandler{
		dispatcher: params.Dispatcher,
		schema:     params.Schema,
		config:     params.Config,
		log:        params.Log.Named("scan_handler"),
	}
}

type ScanHandler struct {
	dispatcher execution.Dispatcher
	schema     *schema.Schema
	config     config.Config
	log        *zap.Logger
}

func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Check for authorization
	if !h.authorized(r) {
		log.Debug("unauthorized request")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.Debug("failed to read body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.schema.Validate(body); err != nil {
		log.Debug("invalid scan request", zap.Error(err))
		var validationErr *schema.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, "invalid scan request", validationErr.Details...)
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	var req ScanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := req.Input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.dispatcher.Send(r.Context(), in)
	if err != nil {
		log.Warn("failed to dispatch scan", zap.Error(err))
		switch {
		case errors.Is(err, execution.ErrBusy), errors.Is(err, execution.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to dispatch scan")
		}
		return
	}

	status := http.StatusOK
	if res.Stage() == pipeline.StageFailed {
		status = http.StatusUnprocessableEntity
	}

	if v, ok := pipeline.VerdictOf(res); ok {
		log.Info("scan finished",
			zap.String("run_id", res.RunID()),
			zap.String("outcome", string(v.Outcome())),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	writer := &report.Writer{Out: w, Format: report.FormatJSON}
	if err := writer.Report(res); err != nil {
		log.Debug("failed to write response", zap.Error(err))
	}
}

func (h *ScanHandler) authorized(r *http.Request) bool {
	key := h.config.Auth.Key
	if key == "" {
		return true
	}

	return subtle.ConstantTimeCompare([]byte(r.Header.Get("api-key")), []byte(key)) == 1
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: msg, Details: details})
}

type healthBody struct {
	Status   string `json:"status"`
	InFlight int    `json:"in_flight"`
}

func NewHealthHandler(dispatcher execution.Dispatcher) *HealthHandler {
	return &HealthHandler{dispatcher: dispatcher}
}

type HealthHandler struct {
	dispatcher execution.Dispatcher
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthBody{Status: "ok", InFlight: h.dispatcher.InFlight()})
}
