package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/model"
	"github.com/sergiomvj/faceblog/internal/platform"
)

func testOptions() Options {
	return Options{
		BaseDomain:      "faceblog.site",
		CallbackBaseURL: "http://localhost:8090",
		AwaitTimeout:    15 * time.Minute,
	}
}

func newTestEngine(t *testing.T, fake *fakeCollaborators) (*Engine, *jobstore.MemoryStore) {
	t.Helper()
	store := jobstore.NewMemoryStore()
	eng := New(store, fake.providers(), DefaultTemplates(), testOptions(), zerolog.Nop())
	return eng, store
}

func seedJob(t *testing.T, store jobstore.Store, spec model.BlogSpec) *model.ProvisioningJob {
	t.Helper()
	if spec.Template == "" {
		spec.Template = DefaultTemplateName
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
	require.NoError(t, store.Create(context.Background(), job))
	return job
}

func waitForAwait(t *testing.T, store jobstore.Store, id string) *model.ProvisioningJob {
	t.Helper()
	var job *model.ProvisioningJob
	require.Eventually(t, func() bool {
		j, err := store.Get(context.Background(), id)
		if err != nil {
			return false
		}
		job = j
		return j.Awaiting != nil || model.IsTerminal(j.Status)
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func waitForStatus(t *testing.T, store jobstore.Store, id, status string) *model.ProvisioningJob {
	t.Helper()
	var job *model.ProvisioningJob
	require.Eventually(t, func() bool {
		j, err := store.Get(context.Background(), id)
		if err != nil {
			return false
		}
		job = j
		return j.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestEngine_RunToCompletion(t *testing.T) {
	fake := newFakeCollaborators()
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{
		BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com",
	})

	eng.Start(job.ID)

	// The workflow suspends on the deploy confirmation.
	suspended := waitForAwait(t, store, job.ID)
	require.NotNil(t, suspended.Awaiting)
	assert.Equal(t, model.StatusRunning, suspended.Status)
	assert.Equal(t, StepAwaitDeploy, suspended.Awaiting.Step)
	assert.Equal(t, fake.lastDeployRef(), suspended.Awaiting.ExternalRef)
	// Progress so far: validate(5) + dns(15) + scaffold(20) + request(10).
	assert.Equal(t, 50, suspended.Progress)

	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: suspended.Awaiting.ExternalRef,
		Status:      model.DeployStatusSuccess,
		URL:         "https://acme.faceblog.site",
	}))

	done := waitForStatus(t, store, job.ID, model.StatusCompleted)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "https://acme.faceblog.site", done.DeployURL)
	assert.Nil(t, done.Awaiting)
	assert.Empty(t, done.Error)
	assert.Equal(t, 1, fake.welcomedCount())
	assert.Contains(t, fake.registered, "acme.faceblog.site")

	// Hosted subdomain verified inline, no second suspension.
	assert.Contains(t, fake.verifications, "acme.faceblog.site")
}

func TestEngine_StepLogIsOrderedAndAppendOnly(t *testing.T) {
	fake := newFakeCollaborators()
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})
	eng.Start(job.ID)

	suspended := waitForAwait(t, store, job.ID)
	prefix := make([]model.StepEntry, len(suspended.Steps))
	copy(prefix, suspended.Steps)

	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: suspended.Awaiting.ExternalRef,
		Status:      model.DeployStatusSuccess,
		URL:         "https://acme.faceblog.site",
	}))
	done := waitForStatus(t, store, job.ID, model.StatusCompleted)

	require.GreaterOrEqual(t, len(done.Steps), len(prefix))
	for i := range prefix {
		assert.Equal(t, prefix[i].Message, done.Steps[i].Message)
	}
	for i := 1; i < len(done.Steps); i++ {
		assert.False(t, done.Steps[i].Timestamp.Before(done.Steps[i-1].Timestamp))
	}
}

func TestEngine_SubdomainCollisionFailsJob(t *testing.T) {
	fake := newFakeCollaborators()
	fake.dnsTaken = true
	eng, store := newTestEngine(t, fake)

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})
	eng.Start(job.ID)

	failed := waitForStatus(t, store, job.ID, model.StatusFailed)
	assert.Contains(t, failed.Error, "already registered")
	assert.Equal(t, 0, failed.Progress)
}

func TestEngine_SyncStepErrorFailsJobAndFreezesProgress(t *testing.T) {
	fake := newFakeCollaborators()
	fake.scaffoldErr = errBoom
	eng, store := newTestEngine(t, fake)

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})
	eng.Start(job.ID)

	failed := waitForStatus(t, store, job.ID, model.StatusFailed)
	assert.Contains(t, failed.Error, StepScaffoldSite)
	// Progress frozen after validate(5) + register-dns(15).
	assert.Equal(t, 20, failed.Progress)
	// Earlier steps are preserved, not rolled back.
	assert.Contains(t, fake.registered, "acme.faceblog.site")
}

func TestEngine_DeployCallbackFailure(t *testing.T) {
	fake := newFakeCollaborators()
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})
	eng.Start(job.ID)
	suspended := waitForAwait(t, store, job.ID)

	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: suspended.Awaiting.ExternalRef,
		Status:      model.DeployStatusFailed,
		Error:       "build exploded",
	}))

	failed := waitForStatus(t, store, job.ID, model.StatusFailed)
	assert.Equal(t, "build exploded", failed.Error)
	assert.Equal(t, 50, failed.Progress)
	assert.Equal(t, 0, fake.welcomedCount())
}

func TestEngine_UnknownReferenceCallbackIsNoop(t *testing.T) {
	fake := newFakeCollaborators()
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})

	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: "bld-never-issued",
		Status:      model.DeployStatusSuccess,
	}))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInitializing, got.Status)
	assert.Empty(t, got.Steps)
}

func TestEngine_CallbackAfterTerminalStateIsNoop(t *testing.T) {
	fake := newFakeCollaborators()
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})

	// Force a terminal job that still carries an awaiting reference, the
	// worst case for a late callback.
	_, err := store.Update(ctx, job.ID, func(j *model.ProvisioningJob) error {
		j.Status = model.StatusFailed
		j.Error = "cancelled by operator"
		j.Awaiting = &model.Await{Step: StepAwaitDeploy, ExternalRef: "bld-late", Since: time.Now()}
		return nil
	})
	require.NoError(t, err)

	before, err := store.Get(ctx, job.ID)
	require.NoError(t, err)

	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: "bld-late",
		Status:      model.DeployStatusSuccess,
		URL:         "https://late.example.com",
	}))

	after, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Progress, after.Progress)
	assert.Equal(t, before.DeployURL, after.DeployURL)
	assert.Len(t, after.Steps, len(before.Steps))
}

func TestEngine_CustomDomainVerifiesAsynchronously(t *testing.T) {
	fake := newFakeCollaborators()
	fake.verifyInline = false
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{
		BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com",
		CustomDomain: "blog.acme.com",
	})
	eng.Start(job.ID)

	suspended := waitForAwait(t, store, job.ID)
	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: suspended.Awaiting.ExternalRef,
		Status:      model.DeployStatusSuccess,
		URL:         "https://blog.acme.com",
	}))

	// Now it suspends again on domain verification, keyed by the domain.
	var verifying *model.ProvisioningJob
	require.Eventually(t, func() bool {
		j, err := store.Get(ctx, job.ID)
		if err != nil {
			return false
		}
		verifying = j
		return j.Awaiting != nil && j.Awaiting.Step == StepVerifyDomain
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "blog.acme.com", verifying.Awaiting.ExternalRef)

	require.NoError(t, eng.HandleDomainVerified(ctx, model.DomainVerification{
		Domain: "blog.acme.com", Status: "verified", TenantRef: job.TenantRef,
	}))

	done := waitForStatus(t, store, job.ID, model.StatusCompleted)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 1, fake.welcomedCount())
}

// snapshotStore records every committed update so tests can assert over each
// state a concurrent reader could have observed.
type snapshotStore struct {
	*jobstore.MemoryStore
	mu        sync.Mutex
	snapshots []model.ProvisioningJob
}

func (s *snapshotStore) Update(ctx context.Context, id string, mutate func(*model.ProvisioningJob) error) (*model.ProvisioningJob, error) {
	job, err := s.MemoryStore.Update(ctx, id, mutate)
	if err == nil {
		s.mu.Lock()
		s.snapshots = append(s.snapshots, *job)
		s.mu.Unlock()
	}
	return job, err
}

func TestEngine_FullProgressImpliesCompleted(t *testing.T) {
	fake := newFakeCollaborators()
	store := &snapshotStore{MemoryStore: jobstore.NewMemoryStore()}
	eng := New(store, fake.providers(), DefaultTemplates(), testOptions(), zerolog.Nop())
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})
	eng.Start(job.ID)

	suspended := waitForAwait(t, store, job.ID)
	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: suspended.Awaiting.ExternalRef,
		Status:      model.DeployStatusSuccess,
		URL:         "https://acme.faceblog.site",
	}))
	waitForStatus(t, store, job.ID, model.StatusCompleted)

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, s := range store.snapshots {
		if s.Progress == 100 {
			assert.Equal(t, model.StatusCompleted, s.Status,
				"a job must never be observable at full progress while still running")
		}
	}
}

func TestEngine_AwaitAsFinalStepCompletesOnResolve(t *testing.T) {
	fake := newFakeCollaborators()
	store := &snapshotStore{MemoryStore: jobstore.NewMemoryStore()}

	tpl := &Template{
		Name: "deploy-only",
		Steps: []Step{
			{Name: StepValidateSubdomain, Weight: 10},
			{Name: StepRegisterDNS, Weight: 20},
			{Name: StepScaffoldSite, Weight: 20},
			{Name: StepRequestDeploy, Weight: 20},
			{Name: StepAwaitDeploy, Weight: 30, Async: true},
		},
	}
	require.NoError(t, tpl.Validate())
	eng := New(store, fake.providers(), map[string]*Template{tpl.Name: tpl}, testOptions(), zerolog.Nop())
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{
		BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com", Template: "deploy-only",
	})
	eng.Start(job.ID)

	suspended := waitForAwait(t, store, job.ID)
	require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
		ExternalRef: suspended.Awaiting.ExternalRef,
		Status:      model.DeployStatusSuccess,
		URL:         "https://acme.faceblog.site",
	}))

	done := waitForStatus(t, store, job.ID, model.StatusCompleted)
	assert.Equal(t, 100, done.Progress)
	assert.Nil(t, done.Awaiting)

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, s := range store.snapshots {
		if s.Progress == 100 {
			assert.Equal(t, model.StatusCompleted, s.Status)
		}
	}
}

func TestEngine_ProgressNeverDecreases(t *testing.T) {
	fake := newFakeCollaborators()
	eng, store := newTestEngine(t, fake)
	ctx := context.Background()

	job := seedJob(t, store, model.BlogSpec{BlogName: "Acme", Subdomain: "acme", OwnerEmail: "a@x.com"})
	eng.Start(job.ID)

	last := 0
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, j.Progress, last)
		last = j.Progress
		if j.Awaiting != nil {
			require.NoError(t, eng.HandleDeployResult(ctx, model.DeployResult{
				ExternalRef: j.Awaiting.ExternalRef,
				Status:      model.DeployStatusSuccess,
				URL:         "https://acme.faceblog.site",
			}))
		}
		if j.Status == model.StatusCompleted {
			assert.Equal(t, 100, j.Progress)
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("job did not complete in time")
}
