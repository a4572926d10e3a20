// the sensitivity policy: one rule per released quantity, kept as
// configuration so the constants can be audited and changed without a rebuild.

package tdp

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// names of every quantity the pages release
const (
	HoursAverageSpeed      = "hours.average_speed"
	HoursIndividualBucket  = "hours.individual_bucket"
	IncomeAverage          = "income.average"
	IncomeIndividualBucket = "income.individual_bucket"
	PickupsCell            = "pickups.cell"
	ChordCell              = "chord.cell"
	WhiteTotalIncome       = "white.total_income"
	CelebCell              = "celeb.cell"
	CelebFareTipBucket     = "celeb.fare_tip_bucket"
	StripCell              = "strip.cell"
	DensityBucket          = "density.bucket"
)

var ErrUnknownQuery = errors.New("unknown query")

// Rule is the noise contract of one released quantity.
type Rule struct {
	Sensitivity float64 `yaml:"sensitivity" json:"sensitivity"`
	Clamp       bool    `yaml:"clamp" json:"clamp"`
	Round       bool    `yaml:"round" json:"round"`
	// BudgetShare is the fraction of the page epsilon one release may spend.
	BudgetShare float64 `yaml:"budget_share" json:"budget_share"`
}

// Query builds the descriptor for one release of trueValue under r.
func (r Rule) Query(name string, trueValue, epsilon float64) Query {
	share := r.BudgetShare
	if share == 0 {
		share = 1
	}
	return Query{
		Name:        name,
		TrueValue:   trueValue,
		Sensitivity: r.Sensitivity,
		Epsilon:     epsilon * share,
		Round:       r.Round,
		Clamp:       r.Clamp,
	}
}

// Validate checks the rule can parameterise a Laplace mechanism.
func (r Rule) Validate() error {
	if math.IsNaN(r.Sensitivity) || math.IsInf(r.Sensitivity, 0) || r.Sensitivity <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSensitivity, r.Sensitivity)
	}
	if r.BudgetShare < 0 || r.BudgetShare > 1 {
		return fmt.Errorf("budget_share must be in (0, 1] or unset, got %v", r.BudgetShare)
	}
	return nil
}

// Policy maps query names to their rules.
type Policy struct {
	Rules map[string]Rule `yaml:"queries" json:"queries"`
}

// DefaultPolicy returns the sensitivities the demo pages were published with.
func DefaultPolicy() Policy {
	return Policy{Rules: map[string]Rule{
		HoursAverageSpeed:      {Sensitivity: 0.000003844},
		HoursIndividualBucket:  {Sensitivity: 1},
		IncomeAverage:          {Sensitivity: 15.5535},
		IncomeIndividualBucket: {Sensitivity: 1},
		PickupsCell:            {Sensitivity: 3002, Clamp: true},
		ChordCell:              {Sensitivity: 18, Clamp: true, Round: true},
		WhiteTotalIncome:       {Sensitivity: 1000000, Round: true, BudgetShare: 0.5},
		CelebCell:              {Sensitivity: 1, Clamp: true},
		CelebFareTipBucket:     {Sensitivity: 1, Clamp: true},
		StripCell:              {Sensitivity: 20, Clamp: true},
		DensityBucket:          {Sensitivity: 1, Clamp: true},
	}}
}

// Rule looks up a rule by name.
func (p Policy) Rule(name string) (Rule, error) {
	r, ok := p.Rules[name]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownQuery, name)
	}
	return r, nil
}

// Query builds the descriptor for releasing trueValue as name.
func (p Policy) Query(name string, trueValue, epsilon float64) (Query, error) {
	r, err := p.Rule(name)
	if err != nil {
		return Query{}, err
	}
	return r.Query(name, trueValue, epsilon), nil
}

// Names lists the configured query names in order.
func (p Policy) Names() []string {
	names := make([]string, 0, len(p.Rules))
	for n := range p.Rules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks every rule.
func (p Policy) Validate() error {
	for _, n := range p.Names() {
		if err := p.Rules[n].Validate(); err != nil {
			return fmt.Errorf("query %s: %w", n, err)
		}
	}
	return nil
}

// file form of a rule: unset fields keep the default
type ruleOverride struct {
	Sensitivity *float64 `yaml:"sensitivity"`
	Clamp       *bool    `yaml:"clamp"`
	Round       *bool    `yaml:"round"`
	BudgetShare *float64 `yaml:"budget_share"`
}

type policyFile struct {
	Queries map[string]ruleOverride `yaml:"queries"`
}

// ParsePolicy overlays the YAML document data onto the default policy.
func ParsePolicy(data []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}

	p := DefaultPolicy()
	for name, o := range f.Queries {
		r := p.Rules[name]
		if o.Sensitivity != nil {
			r.Sensitivity = *o.Sensitivity
		}
		if o.Clamp != nil {
			r.Clamp = *o.Clamp
		}
		if o.Round != nil {
			r.Round = *o.Round
		}
		if o.BudgetShare != nil {
			r.BudgetShare = *o.BudgetShare
		}
		p.Rules[name] = r
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// LoadPolicy reads a policy file. An empty path gives the default policy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// PolicyStore holds the live policy for concurrent readers.
type PolicyStore struct {
	mu     sync.RWMutex
	policy Policy
}

// NewPolicyStore returns a store holding p.
func NewPolicyStore(p Policy) *PolicyStore {
	return &PolicyStore{policy: p}
}

// Get returns the current policy.
func (s *PolicyStore) Get() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Set replaces the current policy.
func (s *PolicyStore) Set(p Policy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
}
