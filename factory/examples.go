package factory

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/warp/forecast-engine/generic"
)

//go:embed examples/*.yaml
var exampleFS embed.FS

// Example is a bundled schedule definition.
type Example struct {
	ID          string
	Name        string
	Description string
	Definition  []byte
}

var exampleDescriptions = map[string]string{
	"single-well":         "Deterministic hyperbolic decline with drilling capex and flat opex",
	"probabilistic-field": "200 sampled realizations on calendar dates, P10/P50/P90 NPV",
	"waterflood":          "Primary decline followed by a dependent WOR waterflood period",
}

// Examples returns the bundled definitions sorted by ID.
func Examples() ([]Example, error) {
	entries, err := exampleFS.ReadDir("examples")
	if err != nil {
		return nil, err
	}
	out := make([]Example, 0, len(entries))
	for _, e := range entries {
		ex, err := readExample(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ExampleByID returns one bundled definition.
func ExampleByID(id string) (Example, error) {
	ex, err := readExample(id + ".yaml")
	if err != nil {
		return Example{}, fmt.Errorf("%w: example %q", generic.ErrScheduleNotFound, id)
	}
	return ex, nil
}

func readExample(file string) (Example, error) {
	data, err := exampleFS.ReadFile(path.Join("examples", file))
	if err != nil {
		return Example{}, err
	}
	id := strings.TrimSuffix(file, ".yaml")
	return Example{
		ID:          id,
		Name:        strings.ReplaceAll(id, "-", " "),
		Description: exampleDescriptions[id],
		Definition:  data,
	}, nil
}
