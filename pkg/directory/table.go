package directory

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/helpdesk/pkg/observability"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Mapping pairs a department with its organizational unit path
type Mapping struct {
	Department         string `yaml:"department" json:"department"`
	OrganizationalUnit string `yaml:"ou" json:"ou"`
}

// Validate checks that both fields are set
func (m Mapping) Validate() error {
	if strings.TrimSpace(m.Department) == "" {
		return fmt.Errorf("%w: department is required", ErrInvalidMapping)
	}
	if strings.TrimSpace(m.OrganizationalUnit) == "" {
		return fmt.Errorf("%w: ou is required for %q", ErrInvalidMapping, m.Department)
	}
	return nil
}

// mappingFile is the YAML document layout
type mappingFile struct {
	Mappings []Mapping `yaml:"mappings"`
}

// ParseMappings decodes and validates a YAML mappings document
func ParseMappings(data []byte) ([]Mapping, error) {
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mappings: %w", err)
	}
	for i, m := range file.Mappings {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
	}
	if file.Mappings == nil {
		file.Mappings = []Mapping{}
	}
	return file.Mappings, nil
}

// MarshalMappings encodes mappings as a YAML document
func MarshalMappings(mappings []Mapping) ([]byte, error) {
	return yaml.Marshal(mappingFile{Mappings: mappings})
}

// Defaults returns a fresh copy of the built-in mappings
func Defaults() []Mapping {
	mappings, err := ParseMappings(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("directory: embedded defaults are invalid: %v", err))
	}
	return mappings
}

// Table is the department to OU lookup table. It is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	mappings []Mapping
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Option configures a Table
type Option func(*Table)

// WithLogger sets the table logger
func WithLogger(logger *observability.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithMetrics enables lookup and reload metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(t *Table) {
		t.metrics = metrics
	}
}

// NewTable creates a table holding the default mappings
func NewTable(opts ...Option) *Table {
	t := &Table{
		mappings: Defaults(),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OrganizationalUnit returns the OU of department, or "" when unknown
func (t *Table) OrganizationalUnit(department string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, m := range t.mappings {
		if strings.EqualFold(m.Department, department) {
			t.metrics.RecordDirectoryLookup(true)
			return m.OrganizationalUnit
		}
	}
	t.metrics.RecordDirectoryLookup(false)
	return ""
}

// Mappings returns a copy of the table in insertion order
func (t *Table) Mappings() []Mapping {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Mapping(nil), t.mappings...)
}

// Sorted returns a copy of the table ordered by department name
func (t *Table) Sorted() []Mapping {
	mappings := t.Mappings()
	sort.SliceStable(mappings, func(i, j int) bool {
		return strings.ToLower(mappings[i].Department) < strings.ToLower(mappings[j].Department)
	})
	return mappings
}

// Len returns the number of mappings
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mappings)
}

// Add appends a mapping
func (t *Table) Add(m Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.mappings = append(t.mappings, m)
	return nil
}

// Remove deletes the mapping at index
func (t *Table) Remove(index int) (Mapping, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.mappings) {
		return Mapping{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	removed := t.mappings[index]
	mappings := make([]Mapping, 0, len(t.mappings)-1)
	mappings = append(mappings, t.mappings[:index]...)
	t.mappings = append(mappings, t.mappings[index+1:]...)
	return removed, nil
}

// ReplaceAll swaps the whole table. Nothing changes if any mapping is invalid.
func (t *Table) ReplaceAll(mappings []Mapping) error {
	for i, m := range mappings {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("mapping %d: %w", i, err)
		}
	}

	replacement := append([]Mapping{}, mappings...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.mappings = replacement
	return nil
}

// ResetToDefaults restores the built-in mappings
func (t *Table) ResetToDefaults() {
	defaults := Defaults()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.mappings = defaults
}
