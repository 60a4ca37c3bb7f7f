package catalog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source defines how plans are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is an immutable, validated set of plans keyed by plan ID.
type Catalog struct {
	plans map[string]Plan
}

// New loads and validates plans from the given source.
func New(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("catalog: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(plans) == 0 {
		return nil, errors.Join(ErrFailedToLoadPlans, errors.New("no plans defined"))
	}

	for id, plan := range plans {
		if plan.ID != id {
			return nil, errors.Join(ErrInvalidPlan, fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", id, plan.ID))
		}
		if err := plan.validate(); err != nil {
			return nil, errors.Join(err, fmt.Errorf("plan %s", id))
		}
	}

	return &Catalog{plans: maps.Clone(plans)}, nil
}

// Plan returns the plan with the given ID.
func (c *Catalog) Plan(id string) (Plan, error) {
	plan, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// Public returns all plans available for self-service signup.
func (c *Catalog) Public() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, plan := range c.plans {
		if plan.Public {
			out = append(out, plan)
		}
	}
	return out
}

type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source that reads plans from a YAML file:
//
//	plans:
//	  - id: monthly
//	    name: Monthly
//	    price: {amount: 500, currency: USD}
//	    interval: monthly
//	    type: recurring
//	    public: true
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

func (s *yamlSource) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, plan := range doc.Plans {
		if _, exists := plans[plan.ID]; exists {
			return nil, fmt.Errorf("duplicate plan ID %q", plan.ID)
		}
		plans[plan.ID] = plan
	}
	return plans, nil
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source with a copy of the given plans.
// Panics if no plans are provided so the catalog always has at least one plan.
func NewInMemSource(plans ...Plan) Source {
	if len(plans) < 1 {
		panic("catalog: at least one plan is required")
	}
	plansCopy := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		plansCopy[plan.ID] = plan
	}
	return &inMemSource{plans: plansCopy}
}

func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.plans), nil
}
