// Package leads handles contact requests, newsletter signups and the
// calculation log that feeds the sales pipeline.
package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/notify"
	"github.com/iwvelando/solarfarm-site/internal/store"
	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
	"go.uber.org/zap"
)

// ErrInvalidSubmission marks form submissions with invalid fields.
var ErrInvalidSubmission = errors.New("invalid submission")

// Interest values accepted besides the capacity classes.
const (
	InterestLandLease = "land-lease"
	InterestGeneral   = "general"
)

// Contact form limits.
const (
	MaxNameLength    = 100
	MinMessageLength = 10
	MaxMessageLength = 5000
	maxShortField    = 200
)

// ContactRequest is the contact form payload.
type ContactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	Message  string `json:"message"`
	Interest string `json:"interest,omitempty"`
	Source   string `json:"source,omitempty"`
}

// SubscribeRequest is the newsletter signup payload.
type SubscribeRequest struct {
	Email  string `json:"email"`
	Locale string `json:"locale,omitempty"`
}

// Service validates submissions, persists them and notifies the sales team.
type Service struct {
	store    store.Store
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a Service. A nil notifier or logger disables that concern.
func NewService(s store.Store, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &Service{store: s, notifier: notifier, logger: logger, now: time.Now}
}

// SubmitContact validates and stores a contact request, then emits lead.created.
// A failed notification is logged and does not fail the submission.
func (s *Service) SubmitContact(ctx context.Context, requestID string, req ContactRequest) (store.Lead, error) {
	req = req.normalized()
	if err := req.Validate(); err != nil {
		return store.Lead{}, err
	}

	lead, err := s.store.SaveLead(ctx, store.Lead{
		RequestID: requestID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Message:   req.Message,
		Interest:  req.Interest,
		Source:    req.Source,
	})
	if err != nil {
		return store.Lead{}, fmt.Errorf("failed to store lead: %w", err)
	}

	s.logger.Info("contact request received",
		zap.String("op", "leads.SubmitContact"),
		zap.String("leadId", lead.ID),
		zap.String("interest", lead.Interest),
		zap.String("requestId", requestID),
	)
	s.notify(ctx, notify.Event{
		Kind:      notify.KindLeadCreated,
		RequestID: requestID,
		Subject:   "New contact request from " + lead.Name,
		Payload: map[string]string{
			"leadId":   lead.ID,
			"email":    lead.Email,
			"interest": lead.Interest,
			"company":  lead.Company,
		},
	})
	return lead, nil
}

// Subscribe registers an email for the newsletter. Repeated signups return the
// existing subscriber with created=false.
func (s *Service) Subscribe(ctx context.Context, requestID string, req SubscribeRequest) (store.Subscriber, bool, error) {
	var errs validation.Errors
	validation.Email(&errs, "email", req.Email)
	locale := strings.TrimSpace(req.Locale)
	validation.Length(&errs, "locale", locale, 0, 16)
	if err := errs.Err(); err != nil {
		return store.Subscriber{}, false, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}

	sub, created, err := s.store.SaveSubscriber(ctx, store.Subscriber{
		Email:  validation.NormalizeEmail(req.Email),
		Locale: locale,
	})
	if err != nil {
		return store.Subscriber{}, false, fmt.Errorf("failed to store subscriber: %w", err)
	}

	s.logger.Info("newsletter signup",
		zap.String("op", "leads.Subscribe"),
		zap.String("subscriberId", sub.ID),
		zap.Bool("created", created),
		zap.String("requestId", requestID),
	)
	if created {
		s.notify(ctx, notify.Event{
			Kind:      notify.KindSubscriberCreated,
			RequestID: requestID,
			Subject:   "New newsletter subscriber",
			Payload:   map[string]string{"subscriberId": sub.ID, "locale": sub.Locale},
		})
	}
	return sub, created, nil
}

// RecordCalculation appends a calculator run to the calculation log.
func (s *Service) RecordCalculation(ctx context.Context, requestID string, in finance.Input, result finance.Result) (store.Calculation, error) {
	doc, err := json.Marshal(result)
	if err != nil {
		return store.Calculation{}, fmt.Errorf("failed to encode result: %w", err)
	}

	calc, err := s.store.SaveCalculation(ctx, store.Calculation{
		RequestID:            requestID,
		CapacityClass:        string(in.CapacityClass()),
		ElectricityRate:      in.ElectricityRate(),
		OperatingCostPercent: in.OperatingCostPercent(),
		Investment:           result.Investment,
		NPV:                  result.NPV,
		IRRPercent:           result.IRRPercent,
		Degenerate:           result.Degenerate,
		Result:               doc,
		CreatedAt:            result.CalculatedAt,
	})
	if err != nil {
		return store.Calculation{}, fmt.Errorf("failed to store calculation: %w", err)
	}

	s.logger.Debug("calculation recorded",
		zap.String("op", "leads.RecordCalculation"),
		zap.String("calculationId", calc.ID),
		zap.String("capacityClass", calc.CapacityClass),
		zap.String("requestId", requestID),
	)
	return calc, nil
}

func (s *Service) notify(ctx context.Context, event notify.Event) {
	if event.At.IsZero() {
		event.At = s.now().UTC()
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("failed to deliver notification",
			zap.String("op", "leads.notify"),
			zap.String("kind", event.Kind),
			zap.Error(err),
		)
	}
}

func (r ContactRequest) normalized() ContactRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = validation.NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Company = strings.TrimSpace(r.Company)
	r.Message = strings.TrimSpace(r.Message)
	if class, err := finance.ParseCapacityClass(r.Interest); err == nil {
		r.Interest = string(class)
	} else {
		r.Interest = strings.ToLower(strings.TrimSpace(r.Interest))
	}
	r.Source = strings.TrimSpace(r.Source)
	return r
}

// Validate reports every invalid field of r.
func (r ContactRequest) Validate() error {
	var errs validation.Errors

	if validation.Required(&errs, "name", r.Name) {
		validation.Length(&errs, "name", r.Name, 1, MaxNameLength)
	}
	validation.Email(&errs, "email", r.Email)
	validation.Phone(&errs, "phone", r.Phone)
	validation.Length(&errs, "company", r.Company, 0, maxShortField)
	if validation.Required(&errs, "message", r.Message) {
		validation.Length(&errs, "message", r.Message, MinMessageLength, MaxMessageLength)
	}
	validation.OneOf(&errs, "interest", r.Interest, interests()...)
	validation.Length(&errs, "source", r.Source, 0, maxShortField)

	if err := errs.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return nil
}

func interests() []string {
	var out []string
	for _, class := range finance.CapacityClasses() {
		out = append(out, string(class))
	}
	return append(out, InterestLandLease, InterestGeneral)
}
