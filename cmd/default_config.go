package cmd

import (
	_ "embed"
	"fmt"

	sim "github.com/rtsim/edfsim/sim"
)

// defaultScenarioYAML is the built-in scenario used when --config is not given.
//
//go:embed defaults.yaml
var defaultScenarioYAML []byte

// loadScenario reads the scenario at path, or the built-in one when path is empty.
// Uses strict field checking: typos must cause errors.
func loadScenario(path string) (*sim.ScenarioBundle, error) {
	if path == "" {
		bundle, err := sim.ParseScenarioBundle(defaultScenarioYAML)
		if err != nil {
			return nil, fmt.Errorf("built-in scenario: %w", err)
		}
		return bundle, nil
	}
	return sim.LoadScenarioBundle(path)
}
