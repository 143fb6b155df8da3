// Package testutil provides shared test helpers for end-to-end scenario tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario root relative to the module root.
const ScenariosDir = "testdata/scenarios"

// ScenarioFile is the file that marks a directory as a scenario.
const ScenarioFile = "scenario.yaml"

// Scenario represents a test scenario loaded from a scenario.yaml file.
type Scenario struct {
	// Cmd is the ss argument list. Arguments ending in .ss name files in
	// the scenario directory.
	Cmd   []string      `yaml:"cmd"`
	Stdin string        `yaml:"stdin,omitempty"`
	Meta  *ScenarioMeta `yaml:"meta,omitempty"`

	// Config is inline YAML passed to ss through --config.
	Config string `yaml:"config,omitempty"`

	Expect ExpectedResult `yaml:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int              `yaml:"exit_code"`
	Stdout           *string          `yaml:"stdout,omitempty"`
	StdoutContains   []string         `yaml:"stdout_contains,omitempty"`
	StderrContains   []string         `yaml:"stderr_contains,omitempty"`
	StderrJSONSubset []map[string]any `yaml:"stderr_json_subset,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, ScenarioFile))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "parse %s", filepath.Join(dir, ScenarioFile))
	}
	if len(s.Cmd) == 0 {
		return nil, errors.Errorf("%s: cmd is empty", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root,
// sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), ScenarioFile)
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ResolveArgs returns cmd with program file arguments joined to scenarioDir.
func ResolveArgs(scenarioDir string, cmd []string) []string {
	args := make([]string, len(cmd))
	for i, arg := range cmd {
		if strings.HasSuffix(arg, ".ss") && !strings.HasPrefix(arg, "-") {
			arg = filepath.Join(scenarioDir, arg)
		}
		args[i] = arg
	}
	return args
}
