// Package profile loads YAML descriptions of a policy. A profile names the
// rulesets to enable and, for each, the grants to make:
//
//	defaultAction: errno
//	rulesets:
//	  - name: systemio
//	    allow: [read, close, open-readonly, stdout]
//	    paths:
//	      - path: /etc/hosts
//	        access: [read_file]
//	  - name: time
//	    allow: [query]
//	    dangerous: [modify]
//
// Grants that need libguard.YesReally in code must be listed under
// dangerous instead of allow.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/selfguard/selfguard/libguard"
	"github.com/selfguard/selfguard/libguard/landlock"
	"github.com/selfguard/selfguard/libguard/seccomp"
)

// ErrEmptyProfile is returned by Parse for a document without content.
var ErrEmptyProfile = errors.New("profile: empty document")

type Profile struct {
	// DefaultAction is what happens to syscalls no ruleset allows. Empty
	// means errno.
	DefaultAction string `yaml:"defaultAction,omitempty" json:"defaultAction,omitempty"`
	// DefaultErrno is the errno returned with the errno action. Zero
	// means EPERM.
	DefaultErrno uint          `yaml:"defaultErrno,omitempty" json:"defaultErrno,omitempty"`
	Rulesets     []RulesetSpec `yaml:"rulesets" json:"rulesets"`
}

type RulesetSpec struct {
	Name      string     `yaml:"name" json:"name"`
	Allow     []string   `yaml:"allow,omitempty" json:"allow,omitempty"`
	Dangerous []string   `yaml:"dangerous,omitempty" json:"dangerous,omitempty"`
	Paths     []PathSpec `yaml:"paths,omitempty" json:"paths,omitempty"`
}

type PathSpec struct {
	Path   string   `yaml:"path" json:"path"`
	Access []string `yaml:"access" json:"access"`
}

// Load reads and parses the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile. Unknown fields are rejected, and so are
// unknown rulesets and grants.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyProfile
		}
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile without enabling anything.
func (p *Profile) Validate() error {
	if p.DefaultAction != "" {
		if _, err := seccomp.ConvertStringToAction(p.DefaultAction); err != nil {
			return err
		}
	}
	if len(p.Rulesets) == 0 {
		return errors.New("no rulesets listed")
	}
	for i := range p.Rulesets {
		if _, err := p.Rulesets[i].build(); err != nil {
			return err
		}
	}
	return nil
}

// HasPaths reports whether any ruleset in the profile grants path access.
func (p *Profile) HasPaths() bool {
	for _, rs := range p.Rulesets {
		if len(rs.Paths) > 0 {
			return true
		}
	}
	return false
}

// Context returns a SafetyContext with every ruleset of the profile
// enabled, in the order they are listed.
func (p *Profile) Context() (*libguard.SafetyContext, error) {
	ctx := libguard.NewSafetyContext()
	if p.DefaultAction != "" {
		action, err := seccomp.ConvertStringToAction(p.DefaultAction)
		if err != nil {
			return nil, err
		}
		if _, err := ctx.SetDefaultAction(action, p.DefaultErrno); err != nil {
			return nil, err
		}
	}
	for i := range p.Rulesets {
		rs, err := p.Rulesets[i].build()
		if err != nil {
			return nil, err
		}
		if _, err := ctx.Enable(rs); err != nil {
			return nil, err
		}
		logrus.Debugf("profile: enabled %s", p.Rulesets[i].Name)
	}
	return ctx, nil
}

func (s *RulesetSpec) build() (libguard.RuleSet, error) {
	b, ok := builders[s.Name]
	if !ok {
		return nil, fmt.Errorf("unknown ruleset %q", s.Name)
	}
	if len(s.Allow) == 0 && len(s.Dangerous) == 0 && len(s.Paths) == 0 {
		return nil, fmt.Errorf("ruleset %s: nothing granted", s.Name)
	}
	rs, err := b.build(s)
	if err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", s.Name, err)
	}
	return rs, nil
}

func (ps PathSpec) access() (landlockAccess, error) {
	if ps.Path == "" {
		return 0, errors.New("path rule without a path")
	}
	if len(ps.Access) == 0 {
		return 0, fmt.Errorf("path %s: no access rights listed", ps.Path)
	}
	access, err := landlock.ConvertStringsToAccessFSSet(ps.Access)
	if err != nil {
		return 0, fmt.Errorf("path %s: %w", ps.Path, err)
	}
	return access, nil
}
