package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/scriptyscript/internal/app"
	"github.com/thomasrohde/scriptyscript/internal/testutil"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}
			runScenario(t, dir, scenario)
		})
	}
}

func runScenario(t *testing.T, dir string, scenario *testutil.Scenario) {
	t.Helper()

	// Keep the user's config out of the run.
	t.Setenv("HOME", t.TempDir())

	args := []string{"ss"}
	if scenario.Config != "" {
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(cfgPath, []byte(scenario.Config), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		args = append(args, "--config", cfgPath)
	}
	args = append(args, testutil.ResolveArgs(dir, scenario.Cmd)...)

	var stdout, stderr bytes.Buffer
	code := app.Main(context.Background(), args, app.Streams{
		In:  strings.NewReader(scenario.Stdin),
		Out: &stdout,
		Err: &stderr,
	})

	expect := scenario.Expect
	if code != expect.ExitCode {
		t.Errorf("exit code: got %d, want %d\nstderr: %s", code, expect.ExitCode, stderr.String())
	}
	if expect.Stdout != nil {
		if diff := cmp.Diff(*expect.Stdout, stdout.String()); diff != "" {
			t.Errorf("stdout mismatch (-want +got):\n%s", diff)
		}
	}
	for _, want := range expect.StdoutContains {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout should contain %q, got: %s", want, stdout.String())
		}
	}
	for _, want := range expect.StderrContains {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stderr should contain %q, got: %s", want, stderr.String())
		}
	}
	if expect.StderrJSONSubset != nil {
		checkStderrJSONSubset(t, stderr.Bytes(), expect.StderrJSONSubset)
	}
}

func checkStderrJSONSubset(t *testing.T, stderr []byte, expectedSubset []map[string]any) {
	t.Helper()

	var actualDiags []map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(stderr), &actualDiags); err != nil {
		t.Fatalf("stderr is not a JSON diagnostic list: %v\n%s", err, stderr)
	}

	for _, expected := range expectedSubset {
		want := normalize(t, expected)
		found := false
		for _, actual := range actualDiags {
			if isSubset(want, actual) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("stderr JSON subset not found: %v\nin: %s", expected, stderr)
		}
	}
}

// normalize round-trips v through JSON so YAML integers compare equal to
// JSON numbers.
func normalize(t *testing.T, v map[string]any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode expectation: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to decode expectation: %v", err)
	}
	return out
}

func isSubset(expected, actual map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, ok := actual[key]
		if !ok {
			return false
		}
		expectedMap, eIsMap := expectedVal.(map[string]any)
		actualMap, aIsMap := actualVal.(map[string]any)
		if eIsMap && aIsMap {
			if !isSubset(expectedMap, actualMap) {
				return false
			}
			continue
		}
		if !cmp.Equal(expectedVal, actualVal) {
			return false
		}
	}
	return true
}
