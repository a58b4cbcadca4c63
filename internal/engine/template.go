package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical step names. A template sequences these; the engine maps each name
// to its runner.
const (
	StepValidateSubdomain = "validate-subdomain"
	StepRegisterDNS       = "register-dns"
	StepScaffoldSite      = "scaffold-site-content"
	StepRequestDeploy     = "request-external-deploy"
	StepAwaitDeploy       = "await-deploy-confirmation"
	StepVerifyDomain      = "verify-domain-ssl"
	StepSendWelcome       = "send-welcome-notification"
)

// Step is one named unit of provisioning work with a fixed progress weight.
// Async steps suspend the job until an external callback resolves them.
type Step struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
	Async  bool   `yaml:"async"`
}

// Template is an ordered step list for one blog template. Weights must sum
// to exactly 100.
type Template struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Validate checks step names, weights, and async flags.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template has no name")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("template %s has no steps", t.Name)
	}

	known := map[string]bool{
		StepValidateSubdomain: false,
		StepRegisterDNS:       false,
		StepScaffoldSite:      false,
		StepRequestDeploy:     false,
		StepAwaitDeploy:       true,
		StepVerifyDomain:      true,
		StepSendWelcome:       false,
	}

	sum := 0
	seen := map[string]bool{}
	for _, s := range t.Steps {
		async, ok := known[s.Name]
		if !ok {
			return fmt.Errorf("template %s: unknown step %q", t.Name, s.Name)
		}
		if s.Async != async {
			return fmt.Errorf("template %s: step %q async must be %v", t.Name, s.Name, async)
		}
		if seen[s.Name] {
			return fmt.Errorf("template %s: duplicate step %q", t.Name, s.Name)
		}
		seen[s.Name] = true
		if s.Weight <= 0 {
			return fmt.Errorf("template %s: step %q weight must be positive", t.Name, s.Name)
		}
		sum += s.Weight
	}
	if sum != 100 {
		return fmt.Errorf("template %s: step weights sum to %d, want 100", t.Name, sum)
	}
	return nil
}

// StepIndex returns the position of the named step, or -1.
func (t *Template) StepIndex(name string) int {
	for i, s := range t.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// DefaultTemplateName is used when a submission names no template.
const DefaultTemplateName = "modern-blog"

// DefaultTemplates returns the built-in step templates.
func DefaultTemplates() map[string]*Template {
	modern := &Template{
		Name: DefaultTemplateName,
		Steps: []Step{
			{Name: StepValidateSubdomain, Weight: 5},
			{Name: StepRegisterDNS, Weight: 15},
			{Name: StepScaffoldSite, Weight: 20},
			{Name: StepRequestDeploy, Weight: 10},
			{Name: StepAwaitDeploy, Weight: 25, Async: true},
			{Name: StepVerifyDomain, Weight: 15, Async: true},
			{Name: StepSendWelcome, Weight: 10},
		},
	}
	return map[string]*Template{modern.Name: modern}
}

// LoadTemplatesDir parses every .yaml/.yml file in dir into a template and
// validates it. Files override built-ins of the same name when merged by the
// caller.
func LoadTemplatesDir(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	out := map[string]*Template{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}

		var tpl Template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		if err := tpl.Validate(); err != nil {
			return nil, err
		}
		out[tpl.Name] = &tpl
	}
	return out, nil
}
