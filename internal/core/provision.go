package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sergiomvj/faceblog/internal/engine"
	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/metrics"
	"github.com/sergiomvj/faceblog/internal/model"
	"github.com/sergiomvj/faceblog/internal/platform"
	"github.com/sergiomvj/faceblog/internal/provider"
)

// MaxBulkSpecs caps one bulk submission.
const MaxBulkSpecs = 10

// CancelledError is the failure reason recorded for operator cancellation.
const CancelledError = "cancelled by operator"

var (
	// ErrSubdomainTaken mirrors the store sentinel for callers outside core.
	ErrSubdomainTaken = jobstore.ErrSubdomainTaken
	// ErrUnknownTemplate is returned for a submission naming a template the
	// engine does not know.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrConfirmToken is returned when an administrative delete carries a
	// missing or mismatched confirmation token.
	ErrConfirmToken = errors.New("confirmation token mismatch")
	// ErrBulkLimit is returned when a bulk submission exceeds MaxBulkSpecs.
	ErrBulkLimit = fmt.Errorf("bulk submission exceeds %d specs", MaxBulkSpecs)
)

// Default spec values applied at submission.
const (
	DefaultTheme        = "modern"
	DefaultPrimaryColor = "#3B82F6"
)

// ProvisionService owns job submission, querying, cancellation, and
// retention for the provisioning subsystem.
type ProvisionService struct {
	store     jobstore.Store
	engine    *engine.Engine
	directory provider.TenantDirectory
	logger    zerolog.Logger
}

func NewProvisionService(store jobstore.Store, eng *engine.Engine, directory provider.TenantDirectory, logger zerolog.Logger) *ProvisionService {
	return &ProvisionService{
		store:     store,
		engine:    eng,
		directory: directory,
		logger:    logger.With().Str("component", "provision-service").Logger(),
	}
}

// Submit validates the spec against existing tenants and in-flight jobs,
// creates the job, and starts its workflow. It returns as soon as the job
// record exists; callers observe progress by polling.
func (s *ProvisionService) Submit(ctx context.Context, spec model.BlogSpec) (*model.ProvisioningJob, error) {
	if spec.Theme == "" {
		spec.Theme = DefaultTheme
	}
	if spec.PrimaryColor == "" {
		spec.PrimaryColor = DefaultPrimaryColor
	}
	if spec.Template == "" {
		spec.Template = engine.DefaultTemplateName
	}

	if s.engine.Template(spec.Template) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, spec.Template)
	}

	taken, err := s.directory.SubdomainTaken(ctx, spec.Subdomain)
	if err != nil {
		return nil, fmt.Errorf("check tenant directory: %w", err)
	}
	if taken {
		return nil, ErrSubdomainTaken
	}

	now := time.Now()
	job := &model.ProvisioningJob{
		ID:        platform.NewID(),
		TenantRef: platform.NewID(),
		Spec:      spec,
		Status:    model.StatusInitializing,
		StartedAt: now,
		UpdatedAt: now,
	}

	// Create is the check-and-reserve: concurrent submissions for the same
	// subdomain race here and exactly one wins.
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	metrics.JobsStarted.Inc()
	metrics.JobsActive.Inc()
	s.logger.Info().Str("job_id", job.ID).Str("subdomain", spec.Subdomain).Msg("provisioning job accepted")

	s.engine.Start(job.ID)
	return job, nil
}

// BulkStarted is one successfully enqueued spec of a bulk submission.
type BulkStarted struct {
	Subdomain string `json:"subdomain"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
}

// BulkFailed is one rejected spec of a bulk submission.
type BulkFailed struct {
	Subdomain string `json:"subdomain"`
	Error     string `json:"error"`
}

// BulkResult partitions a bulk submission's outcome.
type BulkResult struct {
	Successful     []BulkStarted `json:"successful"`
	Failed         []BulkFailed  `json:"failed"`
	TotalRequested int           `json:"total_requested"`
	TotalStarted   int           `json:"total_started"`
	TotalFailed    int           `json:"total_failed"`
}

// SubmitBulk enqueues each spec independently; one spec's failure never
// blocks the others. Exceeding MaxBulkSpecs rejects the whole batch before
// any job is created.
func (s *ProvisionService) SubmitBulk(ctx context.Context, specs []model.BlogSpec) (*BulkResult, error) {
	if len(specs) > MaxBulkSpecs {
		return nil, ErrBulkLimit
	}

	started := make([]*model.ProvisioningJob, len(specs))
	failures := make([]error, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			job, err := s.Submit(gctx, spec)
			if err != nil {
				failures[i] = err
				return nil
			}
			started[i] = job
			return nil
		})
	}
	// Workers record failures instead of returning them.
	_ = g.Wait()

	result := &BulkResult{TotalRequested: len(specs)}
	for i, spec := range specs {
		if job := started[i]; job != nil {
			result.Successful = append(result.Successful, BulkStarted{
				Subdomain: job.Spec.Subdomain,
				JobID:     job.ID,
				Status:    job.Status,
			})
			continue
		}
		result.Failed = append(result.Failed, BulkFailed{
			Subdomain: spec.Subdomain,
			Error:     failures[i].Error(),
		})
	}
	result.TotalStarted = len(result.Successful)
	result.TotalFailed = len(result.Failed)
	return result, nil
}

func (s *ProvisionService) Get(ctx context.Context, id string) (*model.ProvisioningJob, error) {
	return s.store.Get(ctx, id)
}

func (s *ProvisionService) List(ctx context.Context, status, tenantRef string) ([]model.ProvisioningJob, error) {
	return s.store.List(ctx, jobstore.Filter{Status: status, TenantRef: tenantRef})
}

// Cancel is the administrative delete. The confirmation token must equal the
// job id. A non-terminal job is marked failed (so late callbacks stay
// resolvable as no-ops and retention's terminal-only invariant holds); a
// terminal job's record is removed.
func (s *ProvisionService) Cancel(ctx context.Context, id, confirm string) error {
	if confirm != id {
		return ErrConfirmToken
	}

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if model.IsTerminal(job.Status) {
		if _, err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}
		s.logger.Info().Str("job_id", id).Msg("deleted finished job")
		return nil
	}

	_, err = s.store.Update(ctx, id, func(j *model.ProvisioningJob) error {
		j.Fail(CancelledError, time.Now())
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}

	metrics.JobsFailed.WithLabelValues(metrics.ReasonCancel).Inc()
	metrics.JobsActive.Dec()
	s.logger.Info().Str("job_id", id).Msg("job cancelled by operator")
	return nil
}

// Cleanup deletes terminal jobs whose last update is older than the
// retention window. Running and initializing jobs are never touched.
func (s *ProvisionService) Cleanup(ctx context.Context, window time.Duration) (cleaned, remaining int, err error) {
	jobs, err := s.store.List(ctx, jobstore.Filter{})
	if err != nil {
		return 0, 0, err
	}

	cutoff := time.Now().Add(-window)
	for _, job := range jobs {
		if !model.IsTerminal(job.Status) || job.UpdatedAt.After(cutoff) {
			continue
		}
		ok, err := s.store.Delete(ctx, job.ID)
		if err != nil {
			return cleaned, len(jobs) - cleaned, err
		}
		if ok {
			cleaned++
		}
	}

	remaining = len(jobs) - cleaned
	s.logger.Info().Int("cleaned", cleaned).Int("remaining", remaining).Msg("retention cleanup")
	return cleaned, remaining, nil
}

// RunRetention runs Cleanup on the given interval until ctx is done.
func (s *ProvisionService) RunRetention(ctx context.Context, interval, window time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := s.Cleanup(ctx, window); err != nil {
				s.logger.Error().Err(err).Msg("retention cleanup failed")
			}
		}
	}
}
