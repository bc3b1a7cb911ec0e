package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Role describes a worker specialization: the system prompt it operates
// under, the tools it may invoke, and the keywords that make it applicable
// to a task. Roles are identified by name and treated as immutable once
// registered; re-registration under the same name replaces the old entry.
type Role struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	PromptTemplate string   `json:"prompt_template" yaml:"prompt_template"`
	Tools          []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	Keywords       []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Vertical       string   `json:"vertical,omitempty" yaml:"vertical,omitempty"`
}

// roleFile is the on-disk shape of a role definition. The role sits under a
// top-level key so a file can carry adjacent metadata without colliding.
type roleFile struct {
	Role Role `yaml:"role"`
}

// Registry holds named role definitions. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	roles  map[string]Role
	order  []string
	logger *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger falls back to a no-op.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		roles:  make(map[string]Role),
		logger: logger,
	}
}

// NewBuiltinRegistry creates a registry pre-populated with the builtin roles.
func NewBuiltinRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, role := range builtinRoles() {
		r.Register(role)
	}
	return r
}

// Register inserts or replaces a role keyed by its name.
func (r *Registry) Register(role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.roles[role.Name]; !exists {
		r.order = append(r.order, role.Name)
	}
	r.roles[role.Name] = role
}

// Get returns the role registered under name.
func (r *Registry) Get(name string) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[name]
	return role, ok
}

// List returns all registered role names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FindForTask returns the names of every role whose keywords match the task
// text, in registration order. Matching is case-insensitive substring. When
// vertical is non-empty, roles tagged with a different vertical are excluded;
// untagged roles always qualify. No ranking is applied and ties are kept.
func (r *Registry) FindForTask(task, vertical string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(task)
	var matched []string
	for _, name := range r.order {
		role := r.roles[name]
		if role.Vertical != "" && vertical != "" && role.Vertical != vertical {
			continue
		}
		for _, kw := range role.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}

// LoadFile reads one YAML role definition and registers it. The file must
// carry the role under a top-level "role" key with at least a name and a
// prompt template.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read role file %s: %w", path, err)
	}

	var rf roleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parse role file %s: %w", path, err)
	}
	if rf.Role.Name == "" || rf.Role.PromptTemplate == "" {
		return fmt.Errorf("role file %s: missing name or prompt_template", path)
	}

	r.Register(rf.Role)
	return nil
}

// LoadDir loads every .yaml/.yml file in dir. Malformed files are logged and
// skipped so one bad definition cannot take down startup. Returns the number
// of roles successfully loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read role dir %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.LoadFile(path); err != nil {
			r.logger.Warn("skipping malformed role file",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}
