// Package targets loads the named remote test services a user can run against.
package targets

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// Target is one remote test service
type Target struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	OrgID    string `yaml:"org_id"`
	// Inherits names a target whose fields fill in the ones left empty here
	Inherits string `yaml:"inherits,omitempty"`
}

// File is the on-disk layout of a targets file
type File struct {
	Default string   `yaml:"default"`
	Targets []Target `yaml:"targets"`
}

// Registry holds the targets loaded from a targets file
type Registry struct {
	config  Config
	def     string
	targets map[string]Target
	order   []string
	mu      sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log        log.Logger
	TargetFile string
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.TargetFile == "" {
		return nil, errors.New("target file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	r := &Registry{config: cfg}
	if err := r.loadTargets(cfg.TargetFile); err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(targets)", len(r.targets), "default", r.def)
	return r, nil
}

func (r *Registry) loadTargets(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := loadFile(path)
	if err != nil {
		return err
	}

	targets := make(map[string]Target, len(file.Targets))
	var order []string
	for _, t := range file.Targets {
		if t.Name == "" {
			return errors.New("target without a name")
		}
		if _, exists := targets[t.Name]; exists {
			return fmt.Errorf("duplicate target %s", t.Name)
		}
		targets[t.Name] = t
		order = append(order, t.Name)
	}

	for _, name := range order {
		if err := checkCircularInheritance(name, targets, make(map[string]bool)); err != nil {
			return err
		}
	}
	for _, name := range order {
		targets[name] = resolveInherited(targets[name], targets)
	}

	if file.Default != "" {
		if _, ok := targets[file.Default]; !ok {
			return fmt.Errorf("default target %s is not defined", file.Default)
		}
	}

	r.def = file.Default
	r.targets = targets
	r.order = order
	return nil
}

// checkCircularInheritance detects cycles and references to unknown targets
func checkCircularInheritance(name string, targets map[string]Target, visited map[string]bool) error {
	if visited[name] {
		return fmt.Errorf("circular inheritance detected at target %s", name)
	}
	visited[name] = true
	defer delete(visited, name)

	parent := targets[name].Inherits
	if parent == "" {
		return nil
	}
	if _, exists := targets[parent]; !exists {
		return fmt.Errorf("target %s inherits from non-existent target %s", name, parent)
	}
	return checkCircularInheritance(parent, targets, visited)
}

func resolveInherited(t Target, targets map[string]Target) Target {
	for parent := t.Inherits; parent != ""; parent = targets[parent].Inherits {
		p := targets[parent]
		if t.Endpoint == "" {
			t.Endpoint = p.Endpoint
		}
		if t.Username == "" {
			t.Username = p.Username
		}
		if t.OrgID == "" {
			t.OrgID = p.OrgID
		}
	}
	return t
}

// Get returns the named target. An empty name selects the default target.
func (r *Registry) Get(name string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.def
	}
	if name == "" {
		return Target{}, errors.New("no target given and the targets file has no default")
	}
	t, ok := r.targets[name]
	if !ok {
		return Target{}, fmt.Errorf("unknown target %s", name)
	}
	return t, nil
}

// Names returns the target names in file order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

func loadFile(path string) (*File, error) {
	log.Debug("Reading targets file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing targets file: %w", err)
	}
	return &file, nil
}
