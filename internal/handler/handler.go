package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/internal/network"
	"github.com/harliandi/artpress/internal/worker"
	"github.com/harliandi/artpress/pkg/bridge"
	"github.com/harliandi/artpress/pkg/edition"
)

const maxJSONBody = 1 << 20

// Submitter runs a compression, normally a *worker.Pool.
type Submitter interface {
	Submit(ctx context.Context, req worker.Request) (compressor.Result, error)
}

// Handler handles HTTP requests for artwork compression and bridge helpers
type Handler struct {
	pool        Submitter
	networks    *network.Store
	defaults    compressor.Options
	maxUploadMB int
	logger      *zap.Logger
}

// New creates a new Handler. defaults apply when a request leaves a limit out.
func New(pool Submitter, networks *network.Store, defaults compressor.Options, maxUploadMB int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pool:        pool,
		networks:    networks,
		defaults:    defaults,
		maxUploadMB: maxUploadMB,
		logger:      logger.Named("handler"),
	}
}

// Compress handles the /compress endpoint
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Parse multipart form with size limit
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxUploadMB)<<20+1<<20)
	if err := r.ParseMultipartForm(int64(h.maxUploadMB) << 20); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			writeError(w, http.StatusBadRequest, "Content-Type must be multipart/form-data")
		} else {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read upload")
		return
	}
	if codec.GetFileType(data) == codec.UNKNOWN {
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported image format")
		return
	}

	opts, err := h.options(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	log := h.logger.With(zap.String("request_id", id), zap.String("filename", header.Filename))

	res, err := h.pool.Submit(r.Context(), worker.Request{
		Data:    data,
		Options: opts,
		Source:  "http",
		ID:      id,
	})
	if err != nil {
		switch {
		case errors.Is(err, worker.ErrPoolBusy), errors.Is(err, worker.ErrPoolStopped):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "Server busy, please retry later")
		case r.Context().Err() != nil:
			log.Debug("client went away", zap.Error(err))
		default:
			log.Error("submit failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Compression failed")
		}
		return
	}

	if !res.Success {
		h.sendFailure(w, res)
		return
	}

	if r.URL.Query().Get("response") == "raw" {
		h.sendBinaryResponse(w, res)
		return
	}

	uri, err := edition.DataURI(res.Format, res.Data)
	if err != nil {
		log.Error("result not embeddable", zap.Stringer("format", res.Format), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Compression produced an unknown format")
		return
	}
	resp := compressResponse{Result: res, Data: uri}
	if name := r.FormValue("name"); name != "" {
		e, err := edition.FromResult(res, edition.Meta{
			Name:        name,
			Description: r.FormValue("description"),
			Artist:      r.FormValue("artist"),
			Supply:      atoiOrZero(r.FormValue("supply")),
		})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		resp.Edition = &e
	}
	h.sendJSONResponse(w, http.StatusOK, resp)
}

type compressResponse struct {
	Result  compressor.Result `json:"result"`
	Data    string            `json:"data,omitempty"`
	Edition *edition.Edition  `json:"edition,omitempty"`
}

// options builds the compression options from query parameters
func (h *Handler) options(r *http.Request) (compressor.Options, error) {
	opts := h.defaults
	q := r.URL.Query()

	if f := q.Get("format"); f != "" {
		opts.PreferredFormat = codec.ParseFormat(f)
	}
	if v := q.Get("max_dimension"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, errors.New("max_dimension must be a positive integer")
		}
		opts.MaxDimension = n
	}
	if v := q.Get("target_kb"); v != "" {
		kb, err := strconv.ParseFloat(v, 64)
		if err != nil || kb <= 0 {
			return opts, errors.New("target_kb must be a positive number")
		}
		opts.TargetSizeKB = kb
	}
	if v := q.Get("ceiling_bytes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("ceiling_bytes must be a non-negative integer")
		}
		opts.HardCeilingBytes = n
	}
	return opts, nil
}

func (h *Handler) sendFailure(w http.ResponseWriter, res compressor.Result) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(res.Err, codec.ErrFileTooLarge), errors.Is(res.Err, codec.ErrImageTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(res.Err, compressor.ErrDecode):
		status = http.StatusUnsupportedMediaType
	case errors.Is(res.Err, compressor.ErrInvalidOptions):
		status = http.StatusBadRequest
	case errors.Is(res.Err, compressor.ErrHardLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	h.sendJSONResponse(w, status, compressResponse{Result: res})
}

func (h *Handler) sendBinaryResponse(w http.ResponseWriter, res compressor.Result) {
	w.Header().Set("Content-Type", res.Format.MimeType())
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Header().Set("X-Target-Reached", strconv.FormatBool(res.TargetReached))
	w.Header().Set("X-Compressed-Size-KB", strconv.FormatFloat(res.CompressedSizeKB, 'f', 2, 64))
	w.Header().Set("X-Image-Quality", strconv.Itoa(res.Quality))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func (h *Handler) sendJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response failed", zap.Error(err))
	}
}

// BridgeAlias handles GET /bridge/alias?address=0x..[&direction=undo]
func (h *Handler) BridgeAlias(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("address"))
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "address must be a 20-byte hex address")
		return
	}
	addr := common.HexToAddress(raw)

	resp := struct {
		Address common.Address `json:"address"`
		L1      common.Address `json:"l1Address"`
		L2      common.Address `json:"l2Address"`
	}{Address: addr}
	if r.URL.Query().Get("direction") == "undo" {
		resp.L1, resp.L2 = bridge.UndoL1ToL2Alias(addr), addr
	} else {
		resp.L1, resp.L2 = addr, bridge.ApplyL1ToL2Alias(addr)
	}
	h.sendJSONResponse(w, http.StatusOK, resp)
}

// BridgeEstimate handles POST /bridge/estimate with a RetryableParams body
func (h *Handler) BridgeEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var p bridge.RetryableParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	est, err := bridge.EstimateRetryable(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sendJSONResponse(w, http.StatusOK, est)
}

type networksResponse struct {
	Current  string            `json:"current"`
	Networks []network.Network `json:"networks"`
}

// Networks handles GET /networks and POST /networks to switch the current one
func (h *Handler) Networks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		n, err := h.networks.SwitchNetwork(body.Name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Info("switched network", zap.String("network", n.Name), zap.Uint64("chain_id", n.ChainID))
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.sendJSONResponse(w, http.StatusOK, networksResponse{
		Current:  h.networks.Current().Name,
		Networks: h.networks.Networks(),
	})
}

// Health handles the /health endpoint for readiness/liveness probes
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
