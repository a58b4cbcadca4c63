// Package engine drives provisioning jobs through their ordered step list.
// Each job runs on its own goroutine; asynchronous steps record the awaited
// external reference on the job and suspend until callback ingestion or the
// timeout sweep resolves them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/metrics"
	"github.com/sergiomvj/faceblog/internal/model"
	"github.com/sergiomvj/faceblog/internal/platform"
	"github.com/sergiomvj/faceblog/internal/provider"
)

// errStale marks an update that found the job already terminal or no longer
// awaiting the caller's reference. Such updates are silent no-ops.
var errStale = errors.New("job state stale")

// Providers bundles the external collaborators the engine calls.
type Providers struct {
	DNS       provider.DNSRegistrar
	Builder   provider.SiteBuilder
	Deployer  provider.DeployPlatform
	Verifier  provider.DomainVerifier
	Mailer    provider.Mailer
	Artifacts provider.ArtifactStore
}

// Options holds engine tunables.
type Options struct {
	BaseDomain      string
	CallbackBaseURL string
	AwaitTimeout    time.Duration
}

type Engine struct {
	store     jobstore.Store
	providers Providers
	templates map[string]*Template
	opts      Options
	logger    zerolog.Logger
}

func New(store jobstore.Store, providers Providers, templates map[string]*Template, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		providers: providers,
		templates: templates,
		opts:      opts,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// Template returns the named step template, or nil.
func (e *Engine) Template(name string) *Template {
	return e.templates[name]
}

// Start launches the job's workflow on its own goroutine and returns
// immediately.
func (e *Engine) Start(jobID string) {
	go e.run(jobID, 0)
}

// runState carries intermediate step outputs within one run segment. A
// suspension ends the segment; steps after a resume only rely on fields
// persisted on the job itself.
type runState struct {
	artifactURL string
	deployRef   string
}

func (e *Engine) run(jobID string, startIdx int) {
	ctx := context.Background()

	job, err := e.store.Get(ctx, jobID)
	if err != nil {
		e.logger.Error().Err(err).Str("job_id", jobID).Msg("run: job lookup failed")
		return
	}

	tpl := e.Template(job.Spec.Template)
	if tpl == nil {
		e.failJob(jobID, fmt.Sprintf("unknown template %q", job.Spec.Template), metrics.ReasonStep)
		return
	}

	if job.Status == model.StatusInitializing {
		job, err = e.store.Update(ctx, jobID, func(j *model.ProvisioningJob) error {
			if model.IsTerminal(j.Status) {
				return errStale
			}
			j.Status = model.StatusRunning
			j.AppendStep("provisioning started", time.Now())
			return nil
		})
		if err != nil {
			e.logStaleOrError(err, jobID, "start transition")
			return
		}
	}

	st := &runState{}
	for i := startIdx; i < len(tpl.Steps); i++ {
		step := tpl.Steps[i]

		message, await, err := e.executeStep(ctx, job, step, st)
		if err != nil {
			e.failJob(jobID, fmt.Sprintf("%s: %s", step.Name, err.Error()), metrics.ReasonStep)
			return
		}

		if await != nil {
			_, err = e.store.Update(ctx, jobID, func(j *model.ProvisioningJob) error {
				if model.IsTerminal(j.Status) {
					return errStale
				}
				j.Awaiting = await
				j.AppendStep(fmt.Sprintf("awaiting %s (ref %s)", step.Name, await.ExternalRef), time.Now())
				return nil
			})
			if err != nil {
				e.logStaleOrError(err, jobID, "suspend")
			}
			return
		}

		// The terminal transition rides the final step's update so no reader
		// ever observes progress at 100 on a job still marked running.
		last := i == len(tpl.Steps)-1
		job, err = e.store.Update(ctx, jobID, func(j *model.ProvisioningJob) error {
			if model.IsTerminal(j.Status) {
				return errStale
			}
			j.Progress += step.Weight
			j.AppendStep(message, time.Now())
			if last {
				markCompleted(j)
			}
			return nil
		})
		if err != nil {
			e.logStaleOrError(err, jobID, step.Name)
			return
		}
		if last {
			e.noteCompleted(jobID)
			return
		}
	}

	e.complete(jobID)
}

func (e *Engine) executeStep(ctx context.Context, job *model.ProvisioningJob, step Step, st *runState) (message string, await *model.Await, err error) {
	if !step.Async {
		start := time.Now()
		defer func() {
			metrics.StepDuration.WithLabelValues(step.Name).Observe(time.Since(start).Seconds())
		}()
	}

	hostname := job.Spec.Subdomain + "." + e.opts.BaseDomain

	switch step.Name {
	case StepValidateSubdomain:
		free, err := e.providers.DNS.Available(ctx, hostname)
		if err != nil {
			return "", nil, err
		}
		if !free {
			return "", nil, fmt.Errorf("hostname %s already registered", hostname)
		}
		return "validated subdomain " + hostname, nil, nil

	case StepRegisterDNS:
		if err := e.providers.DNS.Register(ctx, hostname); err != nil {
			return "", nil, err
		}
		return "registered DNS record for " + hostname, nil, nil

	case StepScaffoldSite:
		artifact, err := e.providers.Builder.Scaffold(ctx, job.Spec)
		if err != nil {
			return "", nil, err
		}
		url, err := e.providers.Artifacts.Put(ctx, job.ID+"/"+artifact.Name, artifact.Archive)
		if err != nil {
			return "", nil, err
		}
		st.artifactURL = url
		return fmt.Sprintf("scaffolded site content (%d bytes)", len(artifact.Archive)), nil, nil

	case StepRequestDeploy:
		st.deployRef = platform.NewRef("bld-")
		err := e.providers.Deployer.StartDeploy(ctx, provider.DeployRequest{
			ExternalRef: st.deployRef,
			Hostname:    hostname,
			ArtifactURL: st.artifactURL,
			Theme:       job.Spec.Theme,
			CallbackURL: e.opts.CallbackBaseURL + "/api/v1/provisioning/callbacks/deploy",
		})
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("requested deploy (ref %s)", st.deployRef), nil, nil

	case StepAwaitDeploy:
		if st.deployRef == "" {
			return "", nil, fmt.Errorf("no deploy request in flight")
		}
		return "", &model.Await{Step: step.Name, ExternalRef: st.deployRef, Since: time.Now()}, nil

	case StepVerifyDomain:
		domain := hostname
		hosted := true
		if job.Spec.CustomDomain != "" {
			domain = job.Spec.CustomDomain
			hosted = false
		}
		verified, err := e.providers.Verifier.RequestVerification(ctx, domain, hosted,
			e.opts.CallbackBaseURL+"/api/v1/provisioning/callbacks/domain-verification")
		if err != nil {
			return "", nil, err
		}
		if verified {
			return "verified domain and SSL for " + domain, nil, nil
		}
		return "", &model.Await{Step: step.Name, ExternalRef: domain, Since: time.Now()}, nil

	case StepSendWelcome:
		blogURL := job.DeployURL
		if blogURL == "" {
			blogURL = "https://" + hostname
		}
		if err := e.providers.Mailer.SendWelcome(ctx, job.Spec, blogURL); err != nil {
			return "", nil, err
		}
		return "sent welcome notification to " + job.Spec.OwnerEmail, nil, nil

	default:
		return "", nil, fmt.Errorf("unknown step %q", step.Name)
	}
}

// HandleDeployResult resolves a suspended deploy step from an external
// callback. Unknown references and terminal jobs are logged no-ops.
func (e *Engine) HandleDeployResult(ctx context.Context, res model.DeployResult) error {
	job, err := e.store.FindByExternalRef(ctx, res.ExternalRef)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			e.logger.Info().Str("external_ref", res.ExternalRef).Msg("deploy callback for unknown reference")
			return nil
		}
		return err
	}

	if res.Status != model.DeployStatusSuccess {
		reason := res.Error
		if reason == "" {
			reason = "deployment failed"
		}
		e.failJob(job.ID, reason, metrics.ReasonCallback)
		return nil
	}

	e.resolveAwait(ctx, job, res.ExternalRef, func(j *model.ProvisioningJob) {
		j.DeployURL = res.URL
		j.AppendStep("deployment confirmed: "+res.URL, time.Now())
	})
	return nil
}

// HandleDomainVerified resolves a suspended domain-verification step. The
// external reference for this callback is the domain name itself.
func (e *Engine) HandleDomainVerified(ctx context.Context, v model.DomainVerification) error {
	job, err := e.store.FindByExternalRef(ctx, v.Domain)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			e.logger.Info().Str("domain", v.Domain).Msg("domain callback for unknown reference")
			return nil
		}
		return err
	}

	if v.Status != "verified" {
		e.failJob(job.ID, fmt.Sprintf("domain verification for %s reported %q", v.Domain, v.Status), metrics.ReasonCallback)
		return nil
	}

	e.resolveAwait(ctx, job, v.Domain, func(j *model.ProvisioningJob) {
		j.AppendStep("verified domain and SSL for "+v.Domain, time.Now())
	})
	return nil
}

// resolveAwait credits the suspended step's weight, applies extra mutations,
// and resumes the workflow at the following step.
func (e *Engine) resolveAwait(ctx context.Context, job *model.ProvisioningJob, ref string, apply func(*model.ProvisioningJob)) {
	tpl := e.Template(job.Spec.Template)
	if tpl == nil {
		e.logger.Error().Str("job_id", job.ID).Str("template", job.Spec.Template).Msg("resolve: unknown template")
		return
	}

	var nextIdx int
	_, err := e.store.Update(ctx, job.ID, func(j *model.ProvisioningJob) error {
		if model.IsTerminal(j.Status) {
			return errStale
		}
		if j.Awaiting == nil || j.Awaiting.ExternalRef != ref {
			return errStale
		}

		idx := tpl.StepIndex(j.Awaiting.Step)
		if idx < 0 {
			return fmt.Errorf("awaited step %q not in template %s", j.Awaiting.Step, tpl.Name)
		}
		nextIdx = idx + 1

		j.Progress += tpl.Steps[idx].Weight
		j.Awaiting = nil
		apply(j)
		if nextIdx == len(tpl.Steps) {
			markCompleted(j)
		}
		return nil
	})
	if err != nil {
		e.logStaleOrError(err, job.ID, "resolve await")
		return
	}

	if nextIdx == len(tpl.Steps) {
		e.noteCompleted(job.ID)
		return
	}
	go e.run(job.ID, nextIdx)
}

func markCompleted(j *model.ProvisioningJob) {
	j.Status = model.StatusCompleted
	j.Progress = 100
	j.AppendStep("provisioning complete", time.Now())
}

// complete terminates a run segment that started past the final step.
func (e *Engine) complete(jobID string) {
	_, err := e.store.Update(context.Background(), jobID, func(j *model.ProvisioningJob) error {
		if model.IsTerminal(j.Status) {
			return errStale
		}
		markCompleted(j)
		return nil
	})
	if err != nil {
		e.logStaleOrError(err, jobID, "complete")
		return
	}
	e.noteCompleted(jobID)
}

func (e *Engine) noteCompleted(jobID string) {
	metrics.JobsCompleted.Inc()
	metrics.JobsActive.Dec()
	e.logger.Info().Str("job_id", jobID).Msg("provisioning complete")
}

func (e *Engine) failJob(jobID, reason, reasonClass string) {
	_, err := e.store.Update(context.Background(), jobID, func(j *model.ProvisioningJob) error {
		if model.IsTerminal(j.Status) {
			return errStale
		}
		j.Fail(reason, time.Now())
		return nil
	})
	if err != nil {
		e.logStaleOrError(err, jobID, "fail")
		return
	}

	metrics.JobsFailed.WithLabelValues(reasonClass).Inc()
	metrics.JobsActive.Dec()
	e.logger.Warn().Str("job_id", jobID).Str("reason", reason).Msg("provisioning failed")
}

func (e *Engine) logStaleOrError(err error, jobID, op string) {
	if errors.Is(err, errStale) {
		e.logger.Info().Str("job_id", jobID).Str("op", op).Msg("skipped update on terminal or stale job")
		return
	}
	e.logger.Error().Err(err).Str("job_id", jobID).Str("op", op).Msg("job update failed")
}
