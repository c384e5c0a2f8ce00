// Package governance applies row-level security and column masking
// to search results before they cross the trust boundary, compiles
// per-role policies from YAML, and records audit entries for every
// secure search.
package governance

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// MaskKind names one of the supported column mask transformations.
type MaskKind string

const (
	MaskRedactFull MaskKind = "redact_full"
	MaskRedactPart MaskKind = "redact_part"
	MaskHash       MaskKind = "hash"
	MaskTokenize   MaskKind = "tokenize"
	MaskInitials   MaskKind = "initials"
	MaskYearOnly   MaskKind = "year_only"
	MaskYYYYMM     MaskKind = "yyyy_mm"
	MaskCityOnly   MaskKind = "city_only"
	MaskNull       MaskKind = "null"
)

// MaskSpec is a compiled column mask rule: a kind plus the keep-count
// parameter redact_part uses (e.g. "redact_part(keep=4)").
type MaskSpec struct {
	Kind MaskKind
	Keep int
}

// Role is one named role's row filter and column mask plan.
type Role struct {
	ID          string              `yaml:"id"`
	RowFilter   string              `yaml:"row_filter"`
	ColumnMasks map[string]MaskSpec `yaml:"column_masks"`
}

// policyFile is the raw YAML shape before mask specs are parsed.
type policyFile struct {
	Version string `yaml:"version"`
	Roles   []struct {
		ID          string            `yaml:"id"`
		RowFilter   string            `yaml:"row_filter"`
		ColumnMasks map[string]string `yaml:"column_masks"`
	} `yaml:"roles"`
}

// Policy is a compiled dataset policy: map role id → Role.
type Policy struct {
	Version string
	Roles   map[string]Role
}

// RoleFor returns the compiled Role for roleID, or false if the
// policy has no rule for that role (callers should default-deny or
// default-allow per their own convention; this package does not
// decide that).
func (p *Policy) RoleFor(roleID string) (Role, bool) {
	r, ok := p.Roles[roleID]
	return r, ok
}

// LoadPolicy reads and compiles a YAML policy file.
func LoadPolicy(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	policy := &Policy{Version: pf.Version, Roles: make(map[string]Role, len(pf.Roles))}
	for _, r := range pf.Roles {
		masks := make(map[string]MaskSpec, len(r.ColumnMasks))
		for field, spec := range r.ColumnMasks {
			parsed, err := parseMaskSpec(spec)
			if err != nil {
				return nil, fmt.Errorf("policy %s role %s field %s: %w", path, r.ID, field, err)
			}
			masks[field] = parsed
		}
		policy.Roles[r.ID] = Role{ID: r.ID, RowFilter: r.RowFilter, ColumnMasks: masks}
	}
	return policy, nil
}

// PolicyStore loads and caches per-dataset policies, invalidating a
// cached entry when the underlying file's version field changes.
type PolicyStore struct {
	dir string

	mu     sync.Mutex
	loaded map[string]*Policy
}

// NewPolicyStore constructs a store rooted at dir (one YAML file per dataset).
func NewPolicyStore(dir string) *PolicyStore {
	return &PolicyStore{dir: dir, loaded: make(map[string]*Policy)}
}

// Get returns the compiled policy for dataset. It reads and compiles
// the file on every call, but returns the cached policy while the
// on-disk version matches it, replacing the cache only when the version
// differs. If the file cannot be loaded, a cached policy is returned
// when one exists.
func (s *PolicyStore) Get(dataset string) (*Policy, error) {
	path := filepath.Join(s.dir, dataset+".yaml")

	s.mu.Lock()
	cached, ok := s.loaded[dataset]
	s.mu.Unlock()

	fresh, err := LoadPolicy(path)
	if err != nil {
		if ok {
			return cached, nil
		}
		return nil, err
	}

	if ok && cached.Version == fresh.Version {
		return cached, nil
	}

	s.mu.Lock()
	s.loaded[dataset] = fresh
	s.mu.Unlock()
	return fresh, nil
}
