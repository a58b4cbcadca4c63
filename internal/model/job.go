package model

import "time"

// BlogSpec is the immutable input a provisioning job was created from.
type BlogSpec struct {
	BlogName     string `json:"blog_name" db:"blog_name"`
	Subdomain    string `json:"subdomain" db:"subdomain"`
	CustomDomain string `json:"custom_domain,omitempty" db:"custom_domain"`
	OwnerEmail   string `json:"owner_email" db:"owner_email"`
	OwnerName    string `json:"owner_name,omitempty" db:"owner_name"`
	CompanyName  string `json:"company_name,omitempty" db:"company_name"`
	Niche        string `json:"niche,omitempty" db:"niche"`
	Theme        string `json:"theme,omitempty" db:"theme"`
	PrimaryColor string `json:"primary_color,omitempty" db:"primary_color"`
	Template     string `json:"template,omitempty" db:"template"`
}

// StepEntry is one record in a job's append-only activity log.
type StepEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Await records the asynchronous step a job is suspended on, keyed by the
// external reference the platform will use when it calls back.
type Await struct {
	Step        string    `json:"step"`
	ExternalRef string    `json:"external_ref"`
	Since       time.Time `json:"since"`
}

// ProvisioningJob tracks one provisioning attempt for one tenant blog.
//
// Status moves forward only (initializing → running → completed/failed).
// Progress is monotonically non-decreasing while the job is non-terminal and
// reaches exactly 100 only on completion. Steps is append-only and survives
// until the whole record is purged by retention.
type ProvisioningJob struct {
	ID        string      `json:"id" db:"id"`
	TenantRef string      `json:"tenant_ref" db:"tenant_ref"`
	Spec      BlogSpec    `json:"spec" db:"spec"`
	Status    string      `json:"status" db:"status"`
	Progress  int         `json:"progress" db:"progress"`
	Steps     []StepEntry `json:"steps" db:"steps"`
	Awaiting  *Await      `json:"awaiting,omitempty" db:"awaiting"`
	DeployURL string      `json:"deploy_url,omitempty" db:"deploy_url"`
	Error     string      `json:"error,omitempty" db:"error"`
	StartedAt time.Time   `json:"started_at" db:"started_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// AppendStep adds an entry to the activity log and touches UpdatedAt.
func (j *ProvisioningJob) AppendStep(message string, now time.Time) {
	j.Steps = append(j.Steps, StepEntry{Message: message, Timestamp: now})
	j.UpdatedAt = now
}

// Fail transitions the job into the failed terminal state, freezing progress
// at its last value. A no-op if the job is already terminal.
func (j *ProvisioningJob) Fail(reason string, now time.Time) {
	if IsTerminal(j.Status) {
		return
	}
	j.Status = StatusFailed
	j.Error = reason
	j.Awaiting = nil
	j.AppendStep("provisioning failed: "+reason, now)
}

// Clone returns a deep copy so store callers can never alias the stored record.
func (j *ProvisioningJob) Clone() *ProvisioningJob {
	c := *j
	c.Steps = make([]StepEntry, len(j.Steps))
	copy(c.Steps, j.Steps)
	if j.Awaiting != nil {
		a := *j.Awaiting
		c.Awaiting = &a
	}
	return &c
}
