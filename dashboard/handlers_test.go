package dashboard

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

func newTestHandler(t *testing.T, model Predictor) (http.Handler, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	svc, err := NewService(model, testDataset(t), "test-model", logger)
	if err != nil {
		t.Fatal(err)
	}
	return NewHandler(svc, "", logger), logger
}

func TestIndex(t *testing.T) {
	h, logger := newTestHandler(t, &fakeModel{price: 1})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"AI House Price Prediction System",
		`name="area" min="500" max="5000" step="1" value="1500"`,
		`name="parking" min="0" max="4" step="1" value="1"`,
		"/charts/price-distribution.svg",
		"/charts/area-vs-price.svg",
		"/charts/feature-correlation.svg",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Predicted House Price") {
		t.Error("index should not show a prediction")
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if !logger.ContainsField(log.HTTPStatusKey, float64(200)) {
		t.Error("request was not logged")
	}
}

func TestPredictForm(t *testing.T) {
	model := &fakeModel{price: 4550000}
	h, _ := newTestHandler(t, model)

	form := url.Values{"area": {"2000"}, "bedrooms": {"3"}, "bathrooms": {"2"}, "stories": {"1"}, "parking": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "₹ 4,550,000") {
		t.Error("page does not show the formatted price")
	}
	if !strings.Contains(body, `name="area" min="500" max="5000" step="1" value="2000"`) {
		t.Error("slider does not keep the submitted value")
	}
	if len(model.rows) != 1 {
		t.Errorf("model called with %d rows", len(model.rows))
	}
}

func TestPredictForm_Invalid(t *testing.T) {
	model := &fakeModel{price: 1}
	h, _ := newTestHandler(t, model)

	form := url.Values{"bedrooms": {"many"}}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bedrooms") {
		t.Error("error message should name the field")
	}
	if len(model.rows) != 0 {
		t.Error("model must not run for invalid input")
	}
}

func TestPredictAPI(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantArea    int
	}{
		{name: "json", contentType: "application/json", body: `{"area":2000,"bedrooms":3,"bathrooms":2,"stories":1,"parking":1}`, wantStatus: 200, wantArea: 2000},
		{name: "json partial", contentType: "application/json; charset=utf-8", body: `{"bedrooms":4}`, wantStatus: 200, wantArea: 1500},
		{name: "json clamped", contentType: "application/json", body: `{"area":99999}`, wantStatus: 200, wantArea: 5000},
		{name: "empty json", contentType: "application/json", body: ``, wantStatus: 200, wantArea: 1500},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "area=3000", wantStatus: 200, wantArea: 3000},
		{name: "malformed json", contentType: "application/json", body: `{"area":`, wantStatus: 400},
		{name: "non-numeric", contentType: "application/json", body: `{"area":"big"}`, wantStatus: 400},
		{name: "wrong type", contentType: "application/json", body: `{"area":true}`, wantStatus: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &fakeModel{price: 1234567})
			req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var payload map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
					t.Errorf("expected JSON error body, got %q", w.Body.String())
				}
				return
			}

			var pred Prediction
			if err := json.Unmarshal(w.Body.Bytes(), &pred); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if pred.Price != 1234567 || pred.Formatted != "₹ 1,234,567" {
				t.Errorf("unexpected prediction %+v", pred)
			}
			if pred.Inputs.Area != tt.wantArea {
				t.Errorf("area = %d, want %d", pred.Inputs.Area, tt.wantArea)
			}
		})
	}
}

func TestPredictAPI_ModelFailure(t *testing.T) {
	for _, model := range []*fakeModel{{err: errors.New("boom")}, {panic: true}} {
		h, logger := newTestHandler(t, model)
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
		if !logger.ContainsMessage("Prediction failed.") {
			t.Error("model failure was not logged")
		}
	}
}

func TestCharts(t *testing.T) {
	h, _ := newTestHandler(t, &fakeModel{price: 1})

	for _, name := range []string{"price-distribution", "area-vs-price", "feature-correlation"} {
		req := httptest.NewRequest(http.MethodGet, "/charts/"+name+".svg", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", name, w.Code, w.Body.String())
			continue
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("%s: Content-Type = %q", name, ct)
		}
		if !strings.Contains(w.Body.String(), "<svg") {
			t.Errorf("%s: body is not SVG", name)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/charts/unknown.svg", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown chart: expected 404, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &fakeModel{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != "ok" || payload["model_id"] != "test-model" {
		t.Errorf("unexpected health payload %v", payload)
	}
}

func TestRecovery(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	h := Chain(Recovery(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !logger.ContainsMessage("Panic recovered.") {
		t.Error("panic was not logged")
	}
}

func TestRecovery_AfterPartialWrite(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("partial"))
		panic("late failure")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status changed after the response started: %d", w.Code)
	}
	if body := w.Body.String(); body != "partial" {
		t.Errorf("body = %q, want only the handler's output", body)
	}
	if !logger.ContainsMessage("Panic recovered.") {
		t.Error("panic was not logged")
	}
}

func TestLoadBackground(t *testing.T) {
	dir := t.TempDir()

	// Minimal PNG signature is enough for content sniffing.
	png := filepath.Join(dir, "bg.png")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600); err != nil {
		t.Fatal(err)
	}
	css, err := LoadBackground(png)
	if err != nil {
		t.Fatalf("LoadBackground() error = %v", err)
	}
	if !strings.HasPrefix(string(css), `background-image: url("data:image/png;base64,`) {
		t.Errorf("unexpected CSS %q", css)
	}

	txt := filepath.Join(dir, "bg.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBackground(txt); err == nil {
		t.Error("expected error for non-image file")
	}
	if _, err := LoadBackground(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestServer_StartStop(t *testing.T) {
	h, _ := newTestHandler(t, &fakeModel{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(ln.Addr().String(), h, 2*time.Second, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() returned %v after Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Serve() did not return after Stop")
	}
}
