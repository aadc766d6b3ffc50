// Package ingest validates free-text reports and stores them, reporting an
// explicit outcome for every submission.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/internal/database"
	"github.com/energimultiguna/cngops/internal/report"
	"github.com/energimultiguna/cngops/pkg/models"
)

// Status is the outcome of a submission
type Status string

const (
	StatusInserted  Status = "inserted"
	StatusDuplicate Status = "duplicate"
	StatusMalformed Status = "malformed"
	StatusFailed    Status = "failed"
)

// Report kinds
const (
	KindDelivery = "delivery"
	KindRestock  = "restock"
)

// Result describes what happened to a submitted report
type Result struct {
	Kind   string `json:"kind"`
	Status Status `json:"status"`
	ID     string `json:"id,omitempty"`
	Plate  string `json:"transport_plate_number,omitempty"`
}

// Store is the subset of the database submissions write to
type Store interface {
	InsertDelivery(ctx context.Context, d *models.DeliveryReading) error
	InsertRestock(ctx context.Context, r *models.RestockEvent) error
}

// Invalidator drops derived data of a transport after new input arrives
type Invalidator interface {
	Invalidate(ctx context.Context, plate string)
}

// Notifier is told about every stored report
type Notifier interface {
	Notify(r Result)
}

// Recorder counts submissions by kind and status
type Recorder interface {
	ReportSubmitted(kind string, status Status)
}

// Submitter ingests reports into the store
type Submitter struct {
	store       Store
	invalidator Invalidator
	notifier    Notifier
	recorder    Recorder
	logger      *zap.Logger
}

// Option configures a Submitter
type Option func(*Submitter)

// WithInvalidator sets the cache invalidated on insert
func WithInvalidator(i Invalidator) Option {
	return func(s *Submitter) { s.invalidator = i }
}

// WithNotifier sets the change listener
func WithNotifier(n Notifier) Option {
	return func(s *Submitter) { s.notifier = n }
}

// WithRecorder sets the submission metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Submitter) { s.recorder = r }
}

// NewSubmitter creates a submitter
func NewSubmitter(store Store, logger *zap.Logger, opts ...Option) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Submitter{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitDelivery parses and stores a delivery report
func (s *Submitter) SubmitDelivery(ctx context.Context, text string) (Result, error) {
	reading, err := report.ParseDelivery(text)
	if err != nil {
		return s.finish(ctx, Result{Kind: KindDelivery, Status: StatusMalformed}, err)
	}
	return s.StoreDelivery(ctx, reading)
}

// StoreDelivery stores an already parsed delivery
func (s *Submitter) StoreDelivery(ctx context.Context, d *models.DeliveryReading) (Result, error) {
	res := Result{Kind: KindDelivery, ID: d.DeliveryID, Plate: d.PlateNumber}
	return s.finish(ctx, res, s.store.InsertDelivery(ctx, d))
}

// SubmitRestock parses and stores a restock report
func (s *Submitter) SubmitRestock(ctx context.Context, text string) (Result, error) {
	event, err := report.ParseRestock(text)
	if err != nil {
		return s.finish(ctx, Result{Kind: KindRestock, Status: StatusMalformed}, err)
	}
	return s.StoreRestock(ctx, event)
}

// StoreRestock stores an already parsed restock
func (s *Submitter) StoreRestock(ctx context.Context, r *models.RestockEvent) (Result, error) {
	res := Result{Kind: KindRestock, ID: r.RestockID, Plate: r.PlateNumber}
	return s.finish(ctx, res, s.store.InsertRestock(ctx, r))
}

// finish classifies the store outcome and runs the side effects of an insert
func (s *Submitter) finish(ctx context.Context, res Result, err error) (Result, error) {
	switch {
	case res.Status == StatusMalformed:
		s.logger.Info("rejected malformed report", zap.String("kind", res.Kind), zap.Error(err))
	case errors.Is(err, database.ErrDuplicate):
		res.Status = StatusDuplicate
		err = &report.DuplicateKeyError{Kind: res.Kind, ID: res.ID}
		s.logger.Info("rejected duplicate report", zap.String("kind", res.Kind), zap.String("id", res.ID))
	case err != nil:
		res.Status = StatusFailed
		err = fmt.Errorf("storing %s %s: %w", res.Kind, res.ID, err)
		s.logger.Error("storing report failed", zap.String("kind", res.Kind), zap.String("id", res.ID), zap.Error(err))
	default:
		res.Status = StatusInserted
		s.logger.Info("stored report",
			zap.String("kind", res.Kind),
			zap.String("id", res.ID),
			zap.String("plate", res.Plate))
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx, res.Plate)
		}
		if s.notifier != nil {
			s.notifier.Notify(res)
		}
	}

	if s.recorder != nil {
		s.recorder.ReportSubmitted(res.Kind, res.Status)
	}
	return res, err
}
