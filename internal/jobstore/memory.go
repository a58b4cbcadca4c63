package jobstore

import (
	"context"
	"sync"

	"github.com/sergiomvj/faceblog/internal/model"
)

// MemoryStore is the in-process Store implementation: a map of jobs guarded
// by a registry lock, with a per-job lock serializing Update calls so
// concurrent mutators of the same id never interleave.
type MemoryStore struct {
	mu         sync.RWMutex
	jobs       map[string]*memEntry
	subdomains map[string]string // subdomain -> job id
}

type memEntry struct {
	mu  sync.Mutex
	job *model.ProvisioningJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:       make(map[string]*memEntry),
		subdomains: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, job *model.ProvisioningJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.subdomains[job.Spec.Subdomain]; taken {
		return ErrSubdomainTaken
	}
	s.subdomains[job.Spec.Subdomain] = job.ID
	s.jobs[job.ID] = &memEntry{job: job.Clone()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.ProvisioningJob, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, mutate func(*model.ProvisioningJob) error) (*model.ProvisioningJob, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Mutate a copy so a failing mutator leaves the stored record untouched.
	next := e.job.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	e.job = next
	return next.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]model.ProvisioningJob, error) {
	s.mu.RLock()
	entries := make([]*memEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []model.ProvisioningJob
	for _, e := range entries {
		e.mu.Lock()
		job := e.job.Clone()
		e.mu.Unlock()

		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.TenantRef != "" && job.TenantRef != filter.TenantRef {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return false, nil
	}
	delete(s.jobs, id)
	if owner, reserved := s.subdomains[e.job.Spec.Subdomain]; reserved && owner == id {
		delete(s.subdomains, e.job.Spec.Subdomain)
	}
	return true, nil
}

func (s *MemoryStore) FindByExternalRef(_ context.Context, ref string) (*model.ProvisioningJob, error) {
	s.mu.RLock()
	entries := make([]*memEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		job := e.job
		match := job.Awaiting != nil && job.Awaiting.ExternalRef == ref
		var clone *model.ProvisioningJob
		if match {
			clone = job.Clone()
		}
		e.mu.Unlock()
		if match {
			return clone, nil
		}
	}
	return nil, ErrNotFound
}
