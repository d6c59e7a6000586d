/*
resource.go - Curve model and cashflow builder registration

PURPOSE:
  Provides registries for the collaborator packages. Curve-model families
  (dca) register a constructor by name, and the cashflow package registers
  the builder used to turn account mappings into cashflow models. The engine
  stays free of concrete model types.

HOW IT WORKS:
  1. Collaborator packages implement CurveModel / CashflowModel
  2. They register on init()
  3. Factory and engine resolve them by name (or use the default builder)

USAGE:
  // In dca/arps.go
  func init() {
      generic.RegisterCurveModel("arps", func() generic.CurveModel { return &Arps{} })
  }

  // In factory
  model, err := generic.NewCurveModel("arps")

SEE ALSO:
  - model.go: CurveModel and CashflowModel interfaces
  - dca/: curve families
  - cashflow/: default cashflow builder
*/
package generic

import (
	"fmt"
	"sort"
	"sync"
)

// =============================================================================
// CURVE MODEL REGISTRY
// =============================================================================

// CurveModelFactory returns a fresh, unconfigured curve model.
type CurveModelFactory func() CurveModel

var (
	curveRegistry = make(map[string]CurveModelFactory)
	registryMu    sync.RWMutex

	defaultBuilder CashflowBuilder
)

// RegisterCurveModel adds a curve family under name.
// Call this from collaborator package init() functions.
func RegisterCurveModel(name string, f CurveModelFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	curveRegistry[name] = f
}

// NewCurveModel builds a registered curve family by name.
func NewCurveModel(name string) (CurveModel, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := curveRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return f(), nil
}

// ListCurveModels returns registered family names, sorted.
func ListCurveModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(curveRegistry))
	for name := range curveRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// CASHFLOW BUILDER REGISTRY
// =============================================================================

// RegisterCashflowBuilder sets the builder periods and scenarios use when
// none is supplied through options.
func RegisterCashflowBuilder(b CashflowBuilder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultBuilder = b
}

// DefaultCashflowBuilder returns the registered builder, or nil.
func DefaultCashflowBuilder() CashflowBuilder {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return defaultBuilder
}
