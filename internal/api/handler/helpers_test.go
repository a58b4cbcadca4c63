package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sergiomvj/faceblog/internal/core"
	"github.com/sergiomvj/faceblog/internal/engine"
	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/model"
	"github.com/sergiomvj/faceblog/internal/provider"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// stubProviders completes sync steps instantly and leaves jobs suspended at
// the deploy await. Tests resolve the await through the engine's callback
// path when they need a terminal job.
type stubProviders struct{}

func (stubProviders) Available(context.Context, string) (bool, error) { return true, nil }
func (stubProviders) Register(context.Context, string) error         { return nil }
func (stubProviders) Scaffold(_ context.Context, spec model.BlogSpec) (*provider.SiteArtifact, error) {
	return &provider.SiteArtifact{Name: spec.Subdomain + ".tar.gz", Archive: []byte("site")}, nil
}
func (stubProviders) StartDeploy(context.Context, provider.DeployRequest) error { return nil }
func (stubProviders) RequestVerification(context.Context, string, bool, string) (bool, error) {
	return true, nil
}
func (stubProviders) SendWelcome(context.Context, model.BlogSpec, string) error { return nil }
func (stubProviders) Put(_ context.Context, key string, _ []byte) (string, error) {
	return "https://artifacts.test/" + key, nil
}

type openDirectory struct{}

func (openDirectory) SubdomainTaken(context.Context, string) (bool, error) { return false, nil }

type testEnv struct {
	store  *jobstore.MemoryStore
	engine *engine.Engine
	svc    *core.ProvisionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := jobstore.NewMemoryStore()
	p := stubProviders{}
	eng := engine.New(store, engine.Providers{
		DNS:       p,
		Builder:   p,
		Deployer:  p,
		Verifier:  p,
		Mailer:    p,
		Artifacts: p,
	}, engine.DefaultTemplates(), engine.Options{
		BaseDomain:      "faceblog.site",
		CallbackBaseURL: "http://localhost:8090",
		AwaitTimeout:    time.Minute,
	}, zerolog.Nop())

	svc := core.NewProvisionService(store, eng, openDirectory{}, zerolog.Nop())
	return &testEnv{store: store, engine: eng, svc: svc}
}

// waitAwaiting blocks until the job suspends on its deploy await.
func waitAwaiting(t *testing.T, env *testEnv, id string) *model.ProvisioningJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := env.store.Get(context.Background(), id)
		if err == nil && job.Awaiting != nil {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never suspended", id)
	return nil
}

func validSpecBody(subdomain string) map[string]any {
	return map[string]any{
		"blog_name":   "Blog " + subdomain,
		"subdomain":   subdomain,
		"owner_email": subdomain + "@example.com",
		"owner_name":  "Owner",
	}
}
