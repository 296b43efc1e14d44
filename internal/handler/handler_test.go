package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/internal/network"
	"github.com/harliandi/artpress/internal/worker"
)

// stubPool records the last request and replies with a canned result.
type stubPool struct {
	mu   sync.Mutex
	last worker.Request
	res  compressor.Result
	err  error
}

func (s *stubPool) Submit(ctx context.Context, req worker.Request) (compressor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = req
	return s.res, s.err
}

var okResult = compressor.Result{
	Success:          true,
	TargetReached:    true,
	Format:           codec.WebP,
	Quality:          74,
	Width:            32,
	Height:           32,
	CompressedSizeKB: 0.01,
	Data:             []byte("RIFF0000WEBP"),
	Attempts:         7,
}

func testDefaults() compressor.Options {
	return compressor.Options{
		PreferredFormat:  codec.WebP,
		MaxDimension:     2048,
		TargetSizeKB:     43,
		HardCeilingBytes: compressor.DefaultHardCeilingBytes,
	}
}

func newTestHandler(t *testing.T, pool Submitter) *Handler {
	t.Helper()
	store, err := network.LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	return New(pool, store, testDefaults(), 10, nil)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, url, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandler_Compress_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})

	req := httptest.NewRequest(http.MethodGet, "/compress", nil)
	w := httptest.NewRecorder()

	h.Compress(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandler_Compress_NoFile(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})

	req := httptest.NewRequest(http.MethodPost, "/compress", nil)
	w := httptest.NewRecorder()

	h.Compress(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandler_Compress_NotMultipart(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})

	req := httptest.NewRequest(http.MethodPost, "/compress", strings.NewReader("test"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Compress(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandler_Compress_UnsupportedFormat(t *testing.T) {
	pool := &stubPool{res: okResult}
	h := newTestHandler(t, pool)

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress", "art.png", []byte("NOTANIMAGEATALL"), nil))

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected status 415, got %d", w.Code)
	}
	if pool.last.Data != nil {
		t.Error("unsupported upload should not reach the pool")
	}
}

func TestHandler_Compress_JSON(t *testing.T) {
	pool := &stubPool{res: okResult}
	h := newTestHandler(t, pool)

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress", "art.png", pngBytes(t), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}

	var resp struct {
		Result  map[string]any `json:"result"`
		Data    string         `json:"data"`
		Edition map[string]any `json:"edition"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !strings.HasPrefix(resp.Data, "data:image/webp;base64,") {
		t.Errorf("unexpected data URI %q", resp.Data)
	}
	if resp.Result["format"] != "webp" || resp.Result["target_reached"] != true {
		t.Errorf("unexpected result %v", resp.Result)
	}
	if resp.Edition != nil {
		t.Error("edition should only be built when a name is given")
	}
	if pool.last.Source != "http" || pool.last.ID == "" {
		t.Errorf("unexpected request metadata %+v", pool.last)
	}
	if pool.last.Options != testDefaults() {
		t.Errorf("Options = %+v, want defaults", pool.last.Options)
	}
}

func TestHandler_Compress_Edition(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress", "art.png", pngBytes(t), map[string]string{
		"name":   "Dusk",
		"artist": "0xabc",
		"supply": "25",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Edition struct {
			Name     string `json:"name"`
			Supply   int    `json:"supply"`
			MimeType string `json:"mime_type"`
			Image    string `json:"image"`
		} `json:"edition"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Edition.Name != "Dusk" || resp.Edition.Supply != 25 || resp.Edition.MimeType != "image/webp" {
		t.Errorf("unexpected edition %+v", resp.Edition)
	}
	if !strings.HasPrefix(resp.Edition.Image, "data:image/webp;base64,") {
		t.Errorf("unexpected edition image %q", resp.Edition.Image)
	}
}

func TestHandler_Compress_Raw(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress?response=raw", "art.png", pngBytes(t), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	headers := map[string]string{
		"Content-Type":         "image/webp",
		"X-Target-Reached":     "true",
		"X-Compressed-Size-KB": "0.01",
		"X-Image-Quality":      "74",
		"Cache-Control":        "public, max-age=31536000",
	}
	for k, want := range headers {
		if got := w.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if !bytes.Equal(w.Body.Bytes(), okResult.Data) {
		t.Error("Response body should be the encoded image")
	}
}

func TestHandler_Compress_QueryParameters(t *testing.T) {
	pool := &stubPool{res: okResult}
	h := newTestHandler(t, pool)

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress?format=AVIF&max_dimension=512&target_kb=12.5&ceiling_bytes=0", "art.png", pngBytes(t), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	want := compressor.Options{
		PreferredFormat:  codec.AVIF,
		MaxDimension:     512,
		TargetSizeKB:     12.5,
		HardCeilingBytes: 0,
	}
	if pool.last.Options != want {
		t.Errorf("Options = %+v, want %+v", pool.last.Options, want)
	}
}

func TestHandler_Compress_InvalidQuery(t *testing.T) {
	tests := []string{
		"max_dimension=0",
		"max_dimension=big",
		"target_kb=-1",
		"target_kb=abc",
		"ceiling_bytes=-5",
	}

	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			h := newTestHandler(t, &stubPool{res: okResult})
			w := httptest.NewRecorder()
			h.Compress(w, uploadRequest(t, "/compress?"+q, "art.png", pngBytes(t), nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestHandler_Compress_PoolBusy(t *testing.T) {
	h := newTestHandler(t, &stubPool{err: worker.ErrPoolBusy})

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress", "art.png", pngBytes(t), nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestHandler_Compress_FailedResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Decode", fmt.Errorf("%w: bad", compressor.ErrDecode), http.StatusUnsupportedMediaType},
		{"Image too large", fmt.Errorf("%w: %w", compressor.ErrDecode, codec.ErrImageTooLarge), http.StatusRequestEntityTooLarge},
		{"File too large", fmt.Errorf("%w: %w", compressor.ErrDecode, codec.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{"Hard limit", fmt.Errorf("%w: 50000 bytes", compressor.ErrHardLimitExceeded), http.StatusUnprocessableEntity},
		{"Encode", compressor.ErrEncode, http.StatusInternalServerError},
		{"Cancelled", context.Canceled, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubPool{res: compressor.Result{Err: tt.err}})
			w := httptest.NewRecorder()
			h.Compress(w, uploadRequest(t, "/compress", "art.png", pngBytes(t), nil))

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("Expected an error in body, got %s", w.Body.String())
			}
		})
	}
}

func TestHandler_Compress_UnknownResultFormat(t *testing.T) {
	res := okResult
	res.Format = codec.Format("bmp")
	h := newTestHandler(t, &stubPool{res: res})

	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress", "art.png", pngBytes(t), nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), `"data"`) {
		t.Errorf("Expected no data URI in body, got %s", w.Body.String())
	}
}

func TestHandler_Compress_RequestTooLarge(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})

	largeData := make([]byte, 12*1024*1024)
	w := httptest.NewRecorder()
	h.Compress(w, uploadRequest(t, "/compress", "art.png", largeData, nil))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestHandler_BridgeAlias(t *testing.T) {
	h := newTestHandler(t, &stubPool{})

	tests := []struct {
		name   string
		query  string
		status int
		want   string
	}{
		{"Apply", "address=0x0000000000000000000000000000000000000001", http.StatusOK,
			`"l2Address":"0x1111000000000000000000000000000000001112"`},
		{"Undo", "address=0x1111000000000000000000000000000000001112&direction=undo", http.StatusOK,
			`"l1Address":"0x0000000000000000000000000000000000000001"`},
		{"Invalid", "address=0x1234", http.StatusBadRequest, `"error"`},
		{"Missing", "", http.StatusBadRequest, `"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bridge/alias?"+tt.query, nil)
			w := httptest.NewRecorder()

			h.BridgeAlias(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("Expected body to contain %s, got %s", tt.want, w.Body.String())
			}
		})
	}
}

func TestHandler_BridgeEstimate(t *testing.T) {
	h := newTestHandler(t, &stubPool{})

	body := `{"callDataLength":"0x64","l1BaseFee":"0xa","gasLimit":"0x5208","maxFeePerGas":"0x2","callValue":"0x5","marginPercent":0}`
	req := httptest.NewRequest(http.MethodPost, "/bridge/estimate", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.BridgeEstimate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	// 20000 + 42000 + 5
	if !strings.Contains(w.Body.String(), `"deposit":"0xf235"`) {
		t.Errorf("unexpected estimate %s", w.Body.String())
	}

	for name, bad := range map[string]string{
		"Malformed": `{"l1BaseFee":`,
		"No fee":    `{"gasLimit":"0x1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.BridgeEstimate(w, httptest.NewRequest(http.MethodPost, "/bridge/estimate", strings.NewReader(bad)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestHandler_Networks(t *testing.T) {
	h := newTestHandler(t, &stubPool{})

	w := httptest.NewRecorder()
	h.Networks(w, httptest.NewRequest(http.MethodGet, "/networks", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"current":"arbitrum-sepolia"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.Networks(w, httptest.NewRequest(http.MethodPost, "/networks", strings.NewReader(`{"name":"arbitrum-one"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"current":"arbitrum-one"`) {
		t.Errorf("switch not applied: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.Networks(w, httptest.NewRequest(http.MethodPost, "/networks", strings.NewReader(`{"name":"solana"}`)))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Networks(w, httptest.NewRequest(http.MethodDelete, "/networks", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandler_Health(t *testing.T) {
	h := newTestHandler(t, &stubPool{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
	}

	body := w.Body.String()
	if body != `{"status":"ok"}` {
		t.Errorf("Expected body {\"status\":\"ok\"}, got %s", body)
	}
}

func TestHandler_Compress_ConcurrentRequests(t *testing.T) {
	h := newTestHandler(t, &stubPool{res: okResult})
	data := pngBytes(t)

	reqs := make([]*http.Request, 10)
	for i := range reqs {
		reqs[i] = uploadRequest(t, "/compress", "art.png", data, nil)
	}

	var wg sync.WaitGroup
	codes := make([]int, len(reqs))
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *http.Request) {
			defer wg.Done()
			w := httptest.NewRecorder()
			h.Compress(w, req)
			codes[i] = w.Code
		}(i, req)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i, code)
		}
	}
}
