package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/assessment"
	"github.com/iwvelando/solarfarm-site/internal/leads"
	"github.com/iwvelando/solarfarm-site/internal/notify"
	"github.com/iwvelando/solarfarm-site/internal/ratelimit"
	"github.com/iwvelando/solarfarm-site/internal/report"
	"github.com/iwvelando/solarfarm-site/internal/store"
	"github.com/iwvelando/solarfarm-site/internal/store/memory"
	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

// Report sensitivity range in EUR/kWh.
const (
	sensitivityFrom = 0.10
	sensitivityTo   = 0.30
	sensitivityStep = 0.05
)

const healthTimeout = 2 * time.Second

var errMalformedBody = errors.New("malformed request body")

// Dependencies are the services behind the HTTP API. Nil members fall back to
// in-process defaults: default assumptions and coefficients, no rate limiting
// and no notifications. A nil Store keeps leads and assessments in process
// memory, skips calculation logging since nothing purges it, and is reported
// as disabled by /healthz.
type Dependencies struct {
	Engine    *finance.Engine
	Estimator *assessment.Estimator
	Store     store.Store
	Notifier  notify.Notifier
	Limiter   ratelimit.Limiter
}

type handler struct {
	logger       *zap.Logger
	engine       *finance.Engine
	estimator    *assessment.Estimator
	leads        *leads.Service
	store        store.Store
	storeEnabled bool
	notifier     notify.Notifier
	maxBodySize  int64
	version      string
}

// NewHandler constructs the HTTP handler that serves the site pages and JSON API.
func NewHandler(logger *zap.Logger, deps Dependencies, maxBodySize int64, version string) http.Handler {
	return newHandler(logger, deps, maxBodySize, version).routes(deps.Limiter)
}

func newHandler(logger *zap.Logger, deps Dependencies, maxBodySize int64, version string) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:       logger,
		engine:       deps.Engine,
		estimator:    deps.Estimator,
		store:        deps.Store,
		storeEnabled: deps.Store != nil,
		notifier:     deps.Notifier,
		maxBodySize:  maxBodySize,
		version:      trimmedVersion,
	}
	if h.engine == nil {
		engine, err := finance.NewEngine(finance.DefaultAssumptions())
		if err != nil {
			panic(fmt.Sprintf("failed to build default projection engine: %v", err))
		}
		h.engine = engine
	}
	if h.estimator == nil {
		estimator, err := assessment.NewEstimator(assessment.DefaultCoefficients())
		if err != nil {
			panic(fmt.Sprintf("failed to build default land estimator: %v", err))
		}
		h.estimator = estimator
	}
	if h.store == nil {
		h.store = memory.New()
	}
	if h.notifier == nil {
		h.notifier = notify.Multi{}
	}
	h.leads = leads.NewService(h.store, h.notifier, logger)
	return h
}

func (h *handler) routes(limiter ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	// Financial projection and its printable report
	mux.HandleFunc("/api/calculator", h.handleCalculator)
	mux.HandleFunc("/api/calculator/report", h.handleCalculatorReport)

	// Lead capture forms
	mux.HandleFunc("/api/contact", h.handleContact)
	mux.HandleFunc("/api/newsletter", h.handleNewsletter)
	mux.HandleFunc("/api/land-assessment", h.handleLandAssessment)

	// Metadata and probes
	mux.HandleFunc("/api/version", h.handleVersion)
	mux.HandleFunc("/healthz", h.handleHealth)

	// Static assets (informational pages)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	mux.Handle("/", http.FileServer(http.FS(sub)))

	var root http.Handler = mux
	root = RateLimitMiddleware(limiter, h.logger, root)
	root = accessLog(h.logger, root)
	return requestID(root)
}

// calculatorResponse mirrors finance.Result. Metrics that are undefined for a
// degenerate projection are encoded as null.
type calculatorResponse struct {
	RequestID            string                   `json:"requestId"`
	CapacityClass        finance.CapacityClass    `json:"capacityClass"`
	CapacityMW           float64                  `json:"capacityMW"`
	Location             string                   `json:"location,omitempty"`
	Investment           float64                  `json:"investment"`
	InvestmentSource     string                   `json:"investmentSource"`
	ElectricityRate      float64                  `json:"electricityRate"`
	OperatingCostPercent float64                  `json:"operatingCostPercent"`
	AnnualEnergyMWh      float64                  `json:"annualEnergyMWh"`
	AnnualRevenue        float64                  `json:"annualRevenue"`
	AnnualOperatingCosts float64                  `json:"annualOperatingCosts"`
	AnnualProfit         float64                  `json:"annualProfit"`
	MonthlyProfit        float64                  `json:"monthlyProfit"`
	ROIPercent           *float64                 `json:"roiPercent"`
	PaybackYears         *float64                 `json:"paybackYears"`
	BreakEvenMonth       *int                     `json:"breakEvenMonth"`
	BreakEvenDate        string                   `json:"breakEvenDate,omitempty"`
	HorizonYears         int                      `json:"horizonYears"`
	NPV                  float64                  `json:"npv"`
	IRRPercent           *float64                 `json:"irrPercent"`
	IRRMethod            finance.IRRMethod        `json:"irrMethod"`
	Schedule             []finance.YearProjection `json:"schedule"`
	Degenerate           bool                     `json:"degenerate"`
	CalculatedAt         time.Time                `json:"calculatedAt"`
	Message              string                   `json:"message,omitempty"`
}

func newCalculatorResponse(requestID string, result finance.Result) calculatorResponse {
	resp := calculatorResponse{
		RequestID:            requestID,
		CapacityClass:        result.CapacityClass,
		CapacityMW:           result.CapacityMW,
		Location:             result.Location,
		Investment:           result.Investment,
		InvestmentSource:     result.InvestmentSource,
		ElectricityRate:      result.ElectricityRate,
		OperatingCostPercent: result.OperatingCostPercent,
		AnnualEnergyMWh:      result.AnnualEnergyMWh,
		AnnualRevenue:        result.AnnualRevenue,
		AnnualOperatingCosts: result.AnnualOperatingCosts,
		AnnualProfit:         result.AnnualProfit,
		MonthlyProfit:        result.MonthlyProfit,
		BreakEvenDate:        result.BreakEvenDate,
		HorizonYears:         result.HorizonYears,
		NPV:                  result.NPV,
		IRRMethod:            result.IRRMethod,
		Schedule:             result.Schedule,
		Degenerate:           result.Degenerate,
		CalculatedAt:         result.CalculatedAt,
	}
	if result.Degenerate {
		resp.Message = "Operating costs consume the entire revenue. Raise the electricity rate or lower the operating cost percentage."
		return resp
	}
	roi, payback, irr, month := result.ROIPercent, result.PaybackYears, result.IRRPercent, result.BreakEvenMonth
	resp.ROIPercent = &roi
	resp.PaybackYears = &payback
	resp.IRRPercent = &irr
	resp.BreakEvenMonth = &month
	return resp
}

type errorResponse struct {
	Error     string                  `json:"error"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
	RequestID string                  `json:"requestId,omitempty"`
}

type assessmentResponse struct {
	RequestID string `json:"requestId"`
	ID        string `json:"id,omitempty"`
	assessment.Estimate
}

// calculatorDefaults describes the form ranges and the per-class investments
// used when no override is given.
type calculatorDefaults struct {
	Bounds             finance.InputBounds       `json:"bounds"`
	DefaultInvestments []finance.ClassInvestment `json:"defaultInvestments"`
	HorizonYears       int                       `json:"horizonYears"`
	IRRMethod          finance.IRRMethod         `json:"irrMethod"`
}

func (h *handler) handleCalculator(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a := h.engine.Assumptions()
		h.writeJSON(w, http.StatusOK, calculatorDefaults{
			Bounds:             a.Bounds,
			DefaultInvestments: a.DefaultInvestmentTable(),
			HorizonYears:       a.HorizonYears,
			IRRMethod:          a.IRRMethod,
		})
		return
	case http.MethodPost:
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleCalculator"
	in, result, err := h.project(w, r)
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	id := RequestIDFromContext(r.Context())
	if h.storeEnabled {
		if _, err := h.leads.RecordCalculation(r.Context(), id, in, result); err != nil {
			h.logger.Warn("failed to record calculation",
				zap.String("op", op),
				zap.String("requestId", id),
				zap.Error(err),
			)
		}
	}

	resp := newCalculatorResponse(id, result)
	if result.Degenerate {
		h.logger.Info("degenerate projection",
			zap.String("op", op),
			zap.String("capacityClass", string(result.CapacityClass)),
			zap.Float64("electricityRate", result.ElectricityRate),
			zap.Float64("operatingCostPercent", result.OperatingCostPercent),
			zap.String("requestId", id),
		)
		h.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleCalculatorReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleCalculatorReport"
	in, result, err := h.project(w, r)
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	points, err := h.engine.Sensitivity(in, h.sensitivityRates())
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	page, err := report.HTML(result, points)
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		h.logger.Error("failed to write report", zap.String("op", op), zap.Error(err))
	}
}

// project decodes and validates the body and runs the projection. A degenerate
// projection is returned without error; its result carries Degenerate.
func (h *handler) project(w http.ResponseWriter, r *http.Request) (finance.Input, finance.Result, error) {
	var params finance.InputParams
	if err := h.decodeJSON(w, r, &params); err != nil {
		return finance.Input{}, finance.Result{}, err
	}

	in, err := h.engine.NewInput(params)
	if err != nil {
		return finance.Input{}, finance.Result{}, err
	}

	result, err := h.engine.Project(in)
	if err != nil && !errors.Is(err, finance.ErrDegenerateProjection) {
		return finance.Input{}, finance.Result{}, err
	}
	return in, result, nil
}

func (h *handler) sensitivityRates() []float64 {
	bounds := h.engine.Bounds()
	var rates []float64
	for _, rate := range finance.RateSteps(sensitivityFrom, sensitivityTo, sensitivityStep) {
		if rate >= bounds.MinElectricityRate && rate <= bounds.MaxElectricityRate {
			rates = append(rates, rate)
		}
	}
	return rates
}

func (h *handler) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleContact"
	var req leads.ContactRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	id := RequestIDFromContext(r.Context())
	lead, err := h.leads.SubmitContact(r.Context(), id, req)
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"id":        lead.ID,
		"requestId": id,
	})
}

func (h *handler) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleNewsletter"
	var req leads.SubscribeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	id := RequestIDFromContext(r.Context())
	sub, created, err := h.leads.Subscribe(r.Context(), id, req)
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]interface{}{
		"id":        sub.ID,
		"created":   created,
		"requestId": id,
	})
}

func (h *handler) handleLandAssessment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleLandAssessment"
	var req assessment.Request
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	est, err := h.estimator.Estimate(req)
	if err != nil {
		h.respondErrorWithOp(w, r, err, op)
		return
	}

	id := RequestIDFromContext(r.Context())
	resp := assessmentResponse{RequestID: id, Estimate: est}
	if saved, err := h.saveAssessment(r.Context(), id, est); err != nil {
		h.logger.Warn("failed to record land assessment",
			zap.String("op", op),
			zap.String("requestId", id),
			zap.Error(err),
		)
	} else {
		resp.ID = saved.ID
		h.notifyAssessment(r.Context(), id, saved, est)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) saveAssessment(ctx context.Context, requestID string, est assessment.Estimate) (store.Assessment, error) {
	doc, err := json.Marshal(est)
	if err != nil {
		return store.Assessment{}, fmt.Errorf("failed to encode estimate: %w", err)
	}
	return h.store.SaveAssessment(ctx, store.Assessment{
		RequestID:    requestID,
		AreaHectares: est.AreaHectares,
		Terrain:      string(est.Terrain),
		PotentialMW:  est.PotentialMW,
		Score:        est.Score,
		Rating:       string(est.Rating),
		Result:       doc,
	})
}

func (h *handler) notifyAssessment(ctx context.Context, requestID string, saved store.Assessment, est assessment.Estimate) {
	event := notify.Event{
		Kind:      notify.KindAssessmentCreated,
		RequestID: requestID,
		Subject:   fmt.Sprintf("Land assessment: %g ha rated %s", est.AreaHectares, est.Rating),
		Payload: map[string]string{
			"assessmentId": saved.ID,
			"score":        strconv.Itoa(est.Score),
			"rating":       string(est.Rating),
			"potentialMW":  strconv.FormatFloat(est.PotentialMW, 'f', 2, 64),
			"location":     est.Location,
		},
		At: saved.CreatedAt,
	}
	if err := h.notifier.Notify(ctx, event); err != nil {
		h.logger.Warn("failed to deliver notification",
			zap.String("op", "server.notifyAssessment"),
			zap.String("kind", event.Kind),
			zap.Error(err),
		)
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if !h.storeEnabled {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed",
			zap.String("op", "server.handleHealth"),
			zap.Error(err),
		)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

// decodeJSON reads exactly one JSON object from the size-limited body.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body is empty", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if decoder.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errMalformedBody)
	}
	return nil
}

// respondErrorWithOp maps err to a status code and writes the JSON error body.
func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, err error, op string) {
	resp := errorResponse{RequestID: RequestIDFromContext(r.Context())}
	status := http.StatusInternalServerError

	var (
		fields      validation.Errors
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
		resp.Error = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
	case errors.Is(err, errMalformedBody):
		status = http.StatusBadRequest
		resp.Error = err.Error()
	case errors.Is(err, finance.ErrInvalidInput),
		errors.Is(err, leads.ErrInvalidSubmission),
		errors.Is(err, assessment.ErrInvalidRequest):
		status = http.StatusBadRequest
		resp.Error = validationMessage(err)
		if errors.As(err, &fields) {
			resp.Fields = fields
		}
	default:
		resp.Error = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("requestId", resp.RequestID),
			zap.Error(err),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("requestId", resp.RequestID),
			zap.Strings("fields", fields.Fields()),
			zap.String("error", err.Error()),
		)
	}

	h.writeJSON(w, status, resp)
}

func validationMessage(err error) string {
	for _, sentinel := range []error{finance.ErrInvalidInput, leads.ErrInvalidSubmission, assessment.ErrInvalidRequest} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
