package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/YuminosukeSato/houseprice/dashboard/charts"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// maxBodyBytes caps prediction request bodies.
const maxBodyBytes = 1 << 16

type handler struct {
	svc        *Service
	background template.CSS
	logger     log.Logger
}

// NewHandler returns the dashboard's HTTP handler with routing, request
// logging and panic recovery. background may be empty.
func NewHandler(svc *Service, background template.CSS, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.GetLogger()
	}
	logger = logger.With(log.ComponentKey, "dashboard")
	h := &handler{svc: svc, background: background, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/", h.index).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.predictForm).Methods(http.MethodPost)
	router.HandleFunc("/api/predict", h.predictAPI).Methods(http.MethodPost)
	router.HandleFunc("/charts/{name:[a-z-]+}.svg", h.chart).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	return Chain(Recovery(logger), RequestLogger(logger))(router)
}

// pageData is what index.html renders.
type pageData struct {
	Background template.CSS
	Sliders    []sliderView
	Prediction *Prediction
	Error      string
	Charts     []string
}

type sliderView struct {
	Slider
	Value int
}

func (h *handler) render(w http.ResponseWriter, status int, in Inputs, pred *Prediction, msg string) {
	data := pageData{
		Background: h.background,
		Prediction: pred,
		Error:      msg,
		Charts:     charts.Names,
	}
	for _, s := range Sliders {
		data.Sliders = append(data.Sliders, sliderView{Slider: s, Value: in.Value(s.Name)})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("Failed to render page.", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, DefaultInputs(), nil, "")
}

func (h *handler) predictForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, DefaultInputs(), nil, "malformed form: "+err.Error())
		return
	}
	in, err := ParseInputs(r.PostForm)
	if err != nil {
		h.render(w, http.StatusBadRequest, DefaultInputs(), nil, err.Error())
		return
	}
	pred, err := h.svc.Predict(in)
	if err != nil {
		h.logger.Error("Prediction failed.", err, log.OperationKey, log.OperationPredict)
		h.render(w, http.StatusInternalServerError, in, nil, "prediction failed")
		return
	}
	h.render(w, http.StatusOK, in, &pred, "")
}

// predictAPI accepts a JSON object or form values and answers with JSON.
func (h *handler) predictAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	values, err := requestValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := ParseInputs(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pred, err := h.svc.Predict(in)
	if err != nil {
		h.logger.Error("Prediction failed.", err, log.OperationKey, log.OperationPredict)
		writeError(w, http.StatusInternalServerError, errors.New("prediction failed"))
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// requestValues normalizes a JSON object or a form body into url.Values.
func requestValues(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, errors.Wrap(err, "malformed form")
		}
		return r.Form, nil
	}

	var body map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		if err == io.EOF {
			return url.Values{}, nil
		}
		return nil, errors.Wrap(err, "malformed JSON body")
	}
	values := url.Values{}
	for key, v := range body {
		switch v := v.(type) {
		case json.Number:
			values.Set(key, v.String())
		case string:
			values.Set(key, v)
		case nil:
		default:
			return nil, errors.NewValidationError(key, "must be a number", v)
		}
	}
	return values, nil
}

func (h *handler) chart(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	build, ok := charts.Builders[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.Newf("unknown chart %q", name))
		return
	}
	p, err := build(h.svc.Dataset())
	if err != nil {
		h.logger.Error("Failed to build chart.", err, "chart", name)
		writeError(w, http.StatusInternalServerError, errors.New("failed to build chart"))
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, p, charts.Width, charts.Height); err != nil {
		h.logger.Error("Failed to render chart.", err, "chart", name)
		writeError(w, http.StatusInternalServerError, errors.New("failed to render chart"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"model_id": h.svc.ModelID(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
