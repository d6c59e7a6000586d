/*
probvar.go - Probabilistic curve parameters

PURPOSE:
  A curve parameter is either a constant (one value, or one value per
  realization) or a distribution sampled once per realization. With a ppf
  the distribution is read at that percentile instead of sampled, which
  gives a single deterministic realization.

DEFINITION FORMS (JSON and YAML):
  qi: 500                                  constant
  qi: [500, 450]                           one value per realization
  qi: {dist: normal, mean: 500, std: 50}   distribution
  qi: {dist: uniform, min: 400, max: 600}
  qi: {dist: triangular, min: 400, mode: 500, max: 650}
  qi: {dist: lognormal, mean: 6.2, std: 0.1}   mean/std of log(x)

SEE ALSO:
  - arps.go, wor.go: consumers
*/
package dca

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"
)

type Dist string

const (
	DistConstant   Dist = ""
	DistNormal     Dist = "normal"
	DistUniform    Dist = "uniform"
	DistTriangular Dist = "triangular"
	DistLogNormal  Dist = "lognormal"
)

// ProbVar is a curve parameter that may vary across realizations.
type ProbVar struct {
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Dist   Dist      `json:"dist,omitempty" yaml:"dist,omitempty"`
	Mean   float64   `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std    float64   `json:"std,omitempty" yaml:"std,omitempty"`
	Min    float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Mode   float64   `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Const builds a constant parameter.
func Const(values ...float64) ProbVar { return ProbVar{Values: values} }

// Normal builds a normally distributed parameter.
func Normal(mean, std float64) ProbVar { return ProbVar{Dist: DistNormal, Mean: mean, Std: std} }

// Uniform builds a uniformly distributed parameter on [min, max].
func Uniform(min, max float64) ProbVar { return ProbVar{Dist: DistUniform, Min: min, Max: max} }

// IsZero reports whether the parameter was never set.
func (p ProbVar) IsZero() bool { return p.Dist == DistConstant && len(p.Values) == 0 }

// Len is the number of realizations a constant list pins; 0 for distributions.
func (p ProbVar) Len() int {
	if p.Dist != DistConstant {
		return 0
	}
	return len(p.Values)
}

func (p ProbVar) Validate() error {
	switch p.Dist {
	case DistConstant:
		if len(p.Values) == 0 {
			return fmt.Errorf("constant parameter has no value")
		}
	case DistNormal, DistLogNormal:
		if p.Std <= 0 {
			return fmt.Errorf("%s: std must be > 0", p.Dist)
		}
	case DistUniform:
		if p.Max <= p.Min {
			return fmt.Errorf("uniform: max must be > min")
		}
	case DistTriangular:
		if p.Max <= p.Min || p.Mode < p.Min || p.Mode > p.Max {
			return fmt.Errorf("triangular: need min <= mode <= max and min < max")
		}
	default:
		return fmt.Errorf("unknown distribution %q", p.Dist)
	}
	return nil
}

type distribution interface {
	Rand() float64
	Quantile(p float64) float64
}

func (p ProbVar) distribution(src rand.Source) distribution {
	switch p.Dist {
	case DistNormal:
		return distuv.Normal{Mu: p.Mean, Sigma: p.Std, Src: src}
	case DistUniform:
		return distuv.Uniform{Min: p.Min, Max: p.Max, Src: src}
	case DistTriangular:
		return distuv.NewTriangle(p.Min, p.Max, p.Mode, src)
	case DistLogNormal:
		return distuv.LogNormal{Mu: p.Mean, Sigma: p.Std, Src: src}
	}
	return nil
}

// Sample returns n values, one per realization. Constant lists are cycled.
// With ppf set, distributions return their quantile at ppf.
func (p ProbVar) Sample(n int, ppf *float64, src rand.Source) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	if p.Dist == DistConstant {
		for i := range out {
			out[i] = p.Values[i%len(p.Values)]
		}
		return out, nil
	}

	d := p.distribution(src)
	for i := range out {
		if ppf != nil {
			out[i] = d.Quantile(*ppf)
			continue
		}
		out[i] = d.Rand()
	}
	return out, nil
}

// =============================================================================
// DECODING
// =============================================================================

func (p *ProbVar) UnmarshalJSON(b []byte) error {
	var scalar float64
	if err := json.Unmarshal(b, &scalar); err == nil {
		*p = Const(scalar)
		return nil
	}
	var list []float64
	if err := json.Unmarshal(b, &list); err == nil {
		*p = Const(list...)
		return nil
	}
	type plain ProbVar
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("probabilistic parameter: %w", err)
	}
	*p = ProbVar(v)
	return nil
}

func (p *ProbVar) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var scalar float64
		if err := node.Decode(&scalar); err != nil {
			return err
		}
		*p = Const(scalar)
		return nil
	case yaml.SequenceNode:
		var list []float64
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = Const(list...)
		return nil
	}
	type plain ProbVar
	var v plain
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("probabilistic parameter: %w", err)
	}
	*p = ProbVar(v)
	return nil
}

// MarshalJSON writes constants back in their short form.
func (p ProbVar) MarshalJSON() ([]byte, error) {
	if p.Dist == DistConstant {
		if len(p.Values) == 1 {
			return json.Marshal(p.Values[0])
		}
		return json.Marshal(p.Values)
	}
	type plain ProbVar
	return json.Marshal(plain(p))
}
