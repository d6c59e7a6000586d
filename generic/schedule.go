package generic

import "fmt"

// =============================================================================
// SCHEDULE - Named collection of independent scenarios
// =============================================================================

// Schedule holds scenarios that share nothing but a name space. There is no
// cross-scenario orchestration.
type Schedule struct {
	Name      string
	Scenarios []*Scenario
}

func NewSchedule(name string, scenarios []*Scenario) (*Schedule, error) {
	seen := make(map[string]bool, len(scenarios))
	for _, sc := range scenarios {
		if seen[sc.Name] {
			return nil, fmt.Errorf("schedule %q: %w: %q", name, ErrDuplicateScenario, sc.Name)
		}
		seen[sc.Name] = true
	}
	return &Schedule{Name: name, Scenarios: scenarios}, nil
}

// Scenario looks up a scenario by name.
func (s *Schedule) Scenario(name string) (*Scenario, bool) {
	for _, sc := range s.Scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return nil, false
}

// ScenarioNames returns scenario names in declaration order.
func (s *Schedule) ScenarioNames() []string {
	names := make([]string, len(s.Scenarios))
	for i, sc := range s.Scenarios {
		names[i] = sc.Name
	}
	return names
}
