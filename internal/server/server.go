package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iwvelando/mortgage-forecast/internal/config"
	"github.com/iwvelando/mortgage-forecast/internal/metrics"
	"github.com/iwvelando/mortgage-forecast/internal/schedule"
	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
	"github.com/iwvelando/mortgage-forecast/pkg/constants"
	"github.com/iwvelando/mortgage-forecast/pkg/mathutil"
	"github.com/iwvelando/mortgage-forecast/pkg/output"
	"github.com/iwvelando/mortgage-forecast/pkg/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	metrics       *metrics.Recorder
}

// Options configures the schedule API router.
type Options struct {
	// MaxUploadSize caps JSON plans and uploaded plan files; non-positive
	// values select the default.
	MaxUploadSize int64
	Version       string
	// AllowedOrigins defaults to "*".
	AllowedOrigins []string
	// Recorder enables /metrics when non-nil.
	Recorder *metrics.Recorder
}

// NewHandler constructs the HTTP handler that serves the schedule API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	recorder := opts.Recorder
	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, metrics: recorder}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)

		// Schedule from a JSON plan
		r.Post("/schedule", h.handleSchedule)

		// Schedule from an uploaded YAML plan file
		r.Post("/schedule/upload", h.handleScheduleUpload)

		// YAML serialization of a JSON plan for downloads
		r.Post("/schedule/export", h.handleExport)
	})

	if recorder != nil {
		r.Method(http.MethodGet, "/metrics", recorder.Handler())
	}

	return r
}

type scheduleResponse struct {
	Loan     loanSummary          `json:"loan"`
	Rows     []periodRow          `json:"rows"`
	Summary  amortization.Summary `json:"summary"`
	CSV      string               `json:"csv"`
	Warnings []string             `json:"warnings,omitempty"`
	Duration string               `json:"duration"`
}

type loanSummary struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annualRatePercent"`
	TermYears         int     `json:"termYears"`
	StartYear         int     `json:"startYear"`
}

type periodRow struct {
	Year               int      `json:"year"`
	CalendarYear       int      `json:"calendarYear"`
	PrincipalBalance   float64  `json:"principalBalance"`
	RatePercent        float64  `json:"ratePercent"`
	MonthlyPayment     float64  `json:"monthlyPayment"`
	MonthlyPropertyTax float64  `json:"monthlyPropertyTax"`
	MonthlyInsurance   float64  `json:"monthlyInsurance"`
	TotalMonthlyCost   float64  `json:"totalMonthlyCost"`
	Notes              []string `json:"notes,omitempty"`
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.decodePlan(w, r, "server.handleSchedule")
	if !ok {
		return
	}
	h.runSchedule(w, conf, "server.handleSchedule")
}

// decodePlan reads a JSON plan capped at maxUploadSize, rejecting unknown
// fields. It writes the error response itself and reports whether to go on.
func (h *handler) decodePlan(w http.ResponseWriter, r *http.Request, op string) (config.Configuration, bool) {
	var conf config.Configuration
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadSize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&conf); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("plan exceeds limit of %d bytes", h.maxUploadSize), op)
			h.metrics.ObserveFailure("too_large")
			return conf, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode plan: %v", err), op)
		h.metrics.ObserveFailure("decode")
		return conf, false
	}
	return conf, true
}

func (h *handler) handleScheduleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), "server.handleScheduleUpload")
			h.metrics.ObserveFailure("too_large")
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), "server.handleScheduleUpload")
		h.metrics.ObserveFailure("decode")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing plan file", "server.handleScheduleUpload")
		h.metrics.ObserveFailure("decode")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.handleScheduleUpload"),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read plan: %v", err), "server.handleScheduleUpload")
		return
	}

	conf, err := config.LoadConfigurationFromReader(&buf)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleScheduleUpload")
		h.metrics.ObserveFailure("decode")
		return
	}

	h.runSchedule(w, *conf, "server.handleScheduleUpload")
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.decodePlan(w, r, "server.handleExport")
	if !ok {
		return
	}

	if _, _, _, err := conf.Inputs(); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleExport")
		return
	}

	yamlBytes, err := yaml.Marshal(conf)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode plan: %v", err), "server.handleExport")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *handler) runSchedule(w http.ResponseWriter, conf config.Configuration, op string) {
	start := time.Now()
	result, err := schedule.GetSchedule(h.logger, conf)
	if err != nil {
		if isPlanError(err) {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			h.metrics.ObserveFailure("invalid_plan")
			return
		}
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute schedule: %v", err), op)
		h.metrics.ObserveFailure("internal")
		return
	}

	elapsed := time.Since(start)
	h.metrics.ObserveSchedule(result.Loan.TermYears, elapsed)
	warnings := conf.ScheduleWarnings(result.Records)

	response := scheduleResponse{
		Loan: loanSummary{
			Principal:         result.Loan.Principal,
			AnnualRatePercent: result.Loan.AnnualRatePercent,
			TermYears:         result.Loan.TermYears,
			StartYear:         result.Loan.StartYear,
		},
		Rows:     buildRows(result),
		Summary:  roundSummary(result.Summary),
		CSV:      output.CsvString(result),
		Warnings: warnings,
		Duration: elapsed.String(),
	}

	h.logger.Info("schedule computed",
		zap.String("op", op),
		zap.Int("years", len(response.Rows)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func isPlanError(err error) bool {
	for _, target := range []error{
		amortization.ErrInvalidTerm,
		amortization.ErrInvalidPrincipal,
		amortization.ErrInvalidRate,
		amortization.ErrInvalidExpense,
		amortization.ErrInvalidEvent,
		validation.ErrUnknownEventType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func buildRows(result *amortization.Schedule) []periodRow {
	rows := make([]periodRow, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, periodRow{
			Year:               record.Year,
			CalendarYear:       amortization.CalendarYear(result.Loan, record.Year),
			PrincipalBalance:   mathutil.Round(record.PrincipalBalance),
			RatePercent:        record.RatePercent,
			MonthlyPayment:     mathutil.Round(record.MonthlyPayment),
			MonthlyPropertyTax: mathutil.Round(record.MonthlyPropertyTax),
			MonthlyInsurance:   mathutil.Round(record.MonthlyInsurance),
			TotalMonthlyCost:   mathutil.Round(record.TotalMonthlyCost),
			Notes:              normalizeNotes(result.Notes[record.Year]),
		})
	}
	return rows
}

func roundSummary(summary amortization.Summary) amortization.Summary {
	summary.TotalMortgagePaid = mathutil.Round(summary.TotalMortgagePaid)
	summary.TotalInterest = mathutil.Round(summary.TotalInterest)
	summary.TotalLumpSums = mathutil.Round(summary.TotalLumpSums)
	summary.TotalExpenses = mathutil.Round(summary.TotalExpenses)
	summary.EndingBalance = mathutil.Round(summary.EndingBalance)
	return summary
}

func normalizeNotes(notes []string) []string {
	if len(notes) == 0 {
		return nil
	}

	filtered := make([]string, 0, len(notes))
	for _, note := range notes {
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			filtered = append(filtered, trimmed)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func (h *handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, r.Method, status)

		h.logger.Debug("request handled",
			zap.String("op", "server.loggingMiddleware"),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("schedule request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
