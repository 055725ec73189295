package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adforge/adforge-backend/internal/logger"
)

// OutputFormat describes what the model is asked to return. Some stage files
// spell this as free text ("format"), others as a schema sketch ("schema");
// both spellings are accepted and Text folds them into one canonical value.
type OutputFormat struct {
	Format string `yaml:"format"`
	Schema string `yaml:"schema"`
}

func (f OutputFormat) Text() string {
	if strings.TrimSpace(f.Format) != "" {
		return f.Format
	}
	return f.Schema
}

// Template is one stage's prompt definition. Every section is optional;
// callers omit empty sections when assembling the prompt.
type Template struct {
	Stage        string            `yaml:"stage"`
	Role         string            `yaml:"role"`
	Instructions string            `yaml:"instructions"`
	OutputFormat OutputFormat      `yaml:"output_format"`
	Sections     map[string]string `yaml:"sections"`

	// MaxOutputTokens caps the completion for this stage. Zero falls back to
	// the client-wide ceiling.
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

func (t Template) IsZero() bool {
	return t.Stage == "" && t.Role == "" && t.Instructions == "" &&
		t.OutputFormat.Text() == "" && len(t.Sections) == 0
}

// Store holds the per-stage prompt templates. Loaded once at process start,
// read-only afterwards, so concurrent reads need no locking.
type Store struct {
	log       *logger.Logger
	templates map[string]Template
}

// LoadDir reads every .yaml/.yml file in dir, one template per file, keyed by
// the template's stage name (falling back to the file basename).
func LoadDir(dir string, log *logger.Logger) (*Store, error) {
	storeLog := log.With("service", "PromptStore")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading prompt dir %q: %w", dir, err)
	}

	templates := make(map[string]Template)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading prompt file %q: %w", entry.Name(), err)
		}
		var tpl Template
		if err := yaml.Unmarshal(raw, &tpl); err != nil {
			return nil, fmt.Errorf("parsing prompt file %q: %w", entry.Name(), err)
		}
		stage := strings.TrimSpace(tpl.Stage)
		if stage == "" {
			stage = strings.TrimSuffix(entry.Name(), ext)
			tpl.Stage = stage
		}
		if _, dup := templates[stage]; dup {
			return nil, fmt.Errorf("duplicate prompt template for stage %q", stage)
		}
		templates[stage] = tpl
	}
	storeLog.Info("Prompt templates loaded", "dir", dir, "count", len(templates))
	return &Store{log: storeLog, templates: templates}, nil
}

// Get returns the template for a stage. Unknown stages return the zero
// Template, not an error; callers treat every section as optional.
func (s *Store) Get(stage string) Template {
	tpl, ok := s.templates[stage]
	if !ok {
		s.log.Warn("No prompt template for stage", "stage", stage)
		return Template{}
	}
	return tpl
}

// Stages lists the stage names with a loaded template.
func (s *Store) Stages() []string {
	out := make([]string, 0, len(s.templates))
	for k := range s.templates {
		out = append(out, k)
	}
	return out
}
