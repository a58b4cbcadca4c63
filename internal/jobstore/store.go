// Package jobstore holds the registry of provisioning jobs. All mutation of a
// job after creation goes through Update, which is atomic per job id so the
// workflow engine and callback ingestion can never lose writes to each other.
package jobstore

import (
	"context"
	"errors"

	"github.com/sergiomvj/faceblog/internal/model"
)

var (
	// ErrNotFound is returned when no job exists for the given id.
	ErrNotFound = errors.New("job not found")
	// ErrSubdomainTaken is returned by Create when the requested subdomain is
	// already reserved by another job.
	ErrSubdomainTaken = errors.New("subdomain already taken")
)

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status    string
	TenantRef string
}

// Store is the registry of provisioning jobs.
//
// Create reserves the job's subdomain in the same atomic operation that
// inserts the record, so two concurrent submissions for the same subdomain
// can never both succeed. The reservation is held until Delete removes the
// record.
type Store interface {
	Create(ctx context.Context, job *model.ProvisioningJob) error
	Get(ctx context.Context, id string) (*model.ProvisioningJob, error)
	// Update applies mutate to the job under the store's per-id lock and
	// returns the updated record. If mutate returns an error the job is left
	// unchanged and the error is propagated.
	Update(ctx context.Context, id string, mutate func(*model.ProvisioningJob) error) (*model.ProvisioningJob, error)
	List(ctx context.Context, filter Filter) ([]model.ProvisioningJob, error)
	// Delete removes the record and frees its subdomain reservation. Returns
	// false if no job existed.
	Delete(ctx context.Context, id string) (bool, error)
	// FindByExternalRef resolves the job currently awaiting the given
	// external reference, or ErrNotFound.
	FindByExternalRef(ctx context.Context, ref string) (*model.ProvisioningJob, error)
}
