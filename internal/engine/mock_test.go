package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/sergiomvj/faceblog/internal/model"
	"github.com/sergiomvj/faceblog/internal/provider"
)

// fakeCollaborators implements every provider interface with configurable
// outcomes and call recording.
type fakeCollaborators struct {
	mu sync.Mutex

	dnsTaken     bool
	dnsErr       error
	registerErr  error
	scaffoldErr  error
	deployErr    error
	verifyInline bool
	verifyErr    error
	mailErr      error

	registered     []string
	deployRequests []provider.DeployRequest
	verifications  []string
	welcomed       []string
}

func newFakeCollaborators() *fakeCollaborators {
	return &fakeCollaborators{verifyInline: true}
}

func (f *fakeCollaborators) providers() Providers {
	return Providers{
		DNS:       f,
		Builder:   f,
		Deployer:  f,
		Verifier:  f,
		Mailer:    f,
		Artifacts: provider.NullArtifactStore{},
	}
}

func (f *fakeCollaborators) Available(_ context.Context, hostname string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dnsTaken, f.dnsErr
}

func (f *fakeCollaborators) Register(_ context.Context, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, hostname)
	return nil
}

func (f *fakeCollaborators) Scaffold(_ context.Context, spec model.BlogSpec) (*provider.SiteArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scaffoldErr != nil {
		return nil, f.scaffoldErr
	}
	return &provider.SiteArtifact{Name: spec.Subdomain + ".tar.gz", Archive: []byte("site")}, nil
}

func (f *fakeCollaborators) StartDeploy(_ context.Context, req provider.DeployRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployErr != nil {
		return f.deployErr
	}
	f.deployRequests = append(f.deployRequests, req)
	return nil
}

func (f *fakeCollaborators) RequestVerification(_ context.Context, domain string, hosted bool, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	f.verifications = append(f.verifications, domain)
	return f.verifyInline, nil
}

func (f *fakeCollaborators) SendWelcome(_ context.Context, spec model.BlogSpec, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mailErr != nil {
		return f.mailErr
	}
	f.welcomed = append(f.welcomed, spec.OwnerEmail)
	return nil
}

func (f *fakeCollaborators) lastDeployRef() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deployRequests) == 0 {
		return ""
	}
	return f.deployRequests[len(f.deployRequests)-1].ExternalRef
}

func (f *fakeCollaborators) welcomedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.welcomed)
}

var errBoom = errors.New("boom")
