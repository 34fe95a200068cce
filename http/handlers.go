package http

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"busdelay/features"
	"busdelay/form"
	"busdelay/inference"
	"busdelay/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// HandlerConfig carries what the handlers need. Stop serves the implicit
// stop visit flow, Schedule the explicit schedule flow.
type HandlerConfig struct {
	Stop           *inference.Predictor
	Schedule       *inference.Predictor
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	AllowedOrigins []string
	// MaxMessageBytes caps one inbound live session message.
	MaxMessageBytes int64
}

type Handler struct {
	stop         *inference.Predictor
	schedule     *inference.Predictor
	stopForm     form.Form
	scheduleForm form.Form
	pages        *template.Template
	metrics      *metrics.Collector
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	maxMessage   int64
}

func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Stop == nil || cfg.Schedule == nil {
		return nil, errors.New("both predictors are required")
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxMessage := cfg.MaxMessageBytes
	if maxMessage <= 0 {
		maxMessage = 4096
	}
	origins := cfg.AllowedOrigins
	return &Handler{
		stop:         cfg.Stop,
		schedule:     cfg.Schedule,
		stopForm:     form.StopVisitForm(),
		scheduleForm: form.ScheduleDelayForm(),
		pages:        pages,
		metrics:      cfg.Metrics,
		logger:       logger,
		maxMessage:   maxMessage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origins, origin)
			},
		},
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /stop", h.handleStopPage)
	mux.HandleFunc("GET /schedule", h.handleSchedulePage)
	mux.HandleFunc("POST /schedule", h.handleSchedulePage)
	mux.HandleFunc("POST /api/predict/stop", h.handlePredictStop)
	mux.HandleFunc("POST /api/predict/schedule", h.handlePredictSchedule)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /ws/stop", h.handleStopLive)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/stop", http.StatusFound)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, []features.Schema{features.StopVisitSchema, features.ScheduleDelaySchema})
}

// fieldView is one widget with its current value.
type fieldView struct {
	form.Field
	Value    string
	Selected int
}

type pageView struct {
	Form       form.Form
	Fields     []fieldView
	Method     string
	Action     string
	Prediction *inference.Prediction
	Error      string
	Warning    string
	Derivation *features.Derivation
	TripID     string
}

func newPageView(f form.Form, sub form.Submission, method string) pageView {
	view := pageView{Form: f, Method: method, Action: "/" + f.Name}
	for _, field := range f.Fields {
		v, ok := sub.Value(field.Name)
		if !ok {
			v = field.Default
		}
		view.Fields = append(view.Fields, fieldView{
			Field:    field,
			Value:    field.Display(v),
			Selected: int(v.Number),
		})
	}
	return view
}

// handleStopPage evaluates the stop visit form on every request. There is
// no guard around inference: a failure aborts the response.
func (h *Handler) handleStopPage(w http.ResponseWriter, r *http.Request) {
	sub, err := h.stopForm.Collect(r.URL.Query())
	if err != nil {
		h.reject(w, h.stopForm, http.MethodGet, err)
		return
	}
	visit, err := features.FromStopVisitSubmission(sub)
	if err != nil {
		h.reject(w, h.stopForm, http.MethodGet, err)
		return
	}
	rec, err := visit.Assemble()
	if err != nil {
		h.reject(w, h.stopForm, http.MethodGet, err)
		return
	}

	pred, err := h.stop.Predict(r.Context(), rec)
	if err != nil {
		h.logger.Error("stop visit prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, "prediction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	view := newPageView(h.stopForm, sub, http.MethodGet)
	view.Prediction = &pred
	h.render(w, http.StatusOK, view)
}

// handleSchedulePage shows the schedule form; a POST evaluates it and
// renders whatever came out, failures included.
func (h *Handler) handleSchedulePage(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.render(w, http.StatusOK, newPageView(h.scheduleForm, h.scheduleForm.Defaults(), http.MethodPost))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.reject(w, h.scheduleForm, http.MethodPost, err)
		return
	}
	sub, err := h.scheduleForm.Collect(r.PostForm)
	if err != nil {
		h.reject(w, h.scheduleForm, http.MethodPost, err)
		return
	}
	sched, err := features.FromScheduleDelaySubmission(sub)
	if err != nil {
		h.reject(w, h.scheduleForm, http.MethodPost, err)
		return
	}
	rec, der, err := sched.Assemble()
	if err != nil {
		h.reject(w, h.scheduleForm, http.MethodPost, err)
		return
	}

	view := newPageView(h.scheduleForm, sub, http.MethodPost)
	view.Derivation = &der
	view.TripID = sched.TripID
	view.Warning = h.midnightWarning(r, der)

	out := h.schedule.Evaluate(r.Context(), rec)
	view.Prediction = out.Prediction
	view.Error = out.Error
	h.render(w, http.StatusOK, view)
}

type stopResponse struct {
	Record     features.Record      `json:"record"`
	Prediction inference.Prediction `json:"prediction"`
}

func (h *Handler) handlePredictStop(w http.ResponseWriter, r *http.Request) {
	visit := h.stopVisitDefaults()
	if err := decodeJSON(r.Body, &visit); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := h.checkStopVisit(visit)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	pred, err := h.stop.Predict(r.Context(), rec)
	if err != nil {
		h.logger.Error("stop visit prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stopResponse{Record: rec, Prediction: pred})
}

type scheduleResponse struct {
	OK         bool                  `json:"ok"`
	TripID     string                `json:"trip_id,omitempty"`
	Record     features.Record       `json:"record"`
	Derivation features.Derivation   `json:"derivation"`
	Prediction *inference.Prediction `json:"prediction,omitempty"`
	Error      string                `json:"error,omitempty"`
	Warning    string                `json:"warning,omitempty"`
}

func (h *Handler) handlePredictSchedule(w http.ResponseWriter, r *http.Request) {
	sched := h.scheduleDelayDefaults()
	if err := decodeJSON(r.Body, &sched); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	rec, der, err := h.checkScheduleDelay(sched)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	out := h.schedule.Evaluate(r.Context(), rec)
	h.respondJSON(w, http.StatusOK, scheduleResponse{
		OK:         out.OK(),
		TripID:     sched.TripID,
		Record:     rec,
		Derivation: der,
		Prediction: out.Prediction,
		Error:      out.Error,
		Warning:    h.midnightWarning(r, der),
	})
}

func (h *Handler) midnightWarning(r *http.Request, der features.Derivation) string {
	if !der.CrossedMidnight {
		return ""
	}
	h.logger.Warn("simulated arrival crosses midnight",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Int("scheduled_seconds", der.ScheduledSeconds),
		zap.Int("actual_seconds", der.ActualSeconds),
	)
	return MidnightWarning
}

// MidnightWarning accompanies schedule results whose arrival wrapped past
// midnight.
const MidnightWarning = "The simulated arrival falls on the next day; delay minutes are computed on the wrapped time of day and come out negative."

// reject re-renders the form with the input error and a 400.
func (h *Handler) reject(w http.ResponseWriter, f form.Form, method string, err error) {
	h.metrics.ObserveRejection(f.Name)
	view := newPageView(f, f.Defaults(), method)
	view.Error = err.Error()
	h.render(w, http.StatusBadRequest, view)
}

func (h *Handler) render(w http.ResponseWriter, status int, view pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.ExecuteTemplate(w, "page", view); err != nil {
		h.logger.Error("render page", zap.String("form", view.Form.Name), zap.Error(err))
	}
}

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}
