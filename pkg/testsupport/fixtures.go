package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// KeyScenario is one row of a key derivation fixture: two argument sets that
// must derive the same key, or must not.
type KeyScenario struct {
	Name      string         `json:"name"`
	Resource  string         `json:"resource"`
	Operation string         `json:"operation"`
	Identity  string         `json:"identity"`
	Left      map[string]any `json:"left"`
	Right     map[string]any `json:"right"`
	Same      bool           `json:"same"`
}

// LoadKeyScenarios reads a JSON array of KeyScenario from testdata.
func LoadKeyScenarios(t testing.TB, filename string) []KeyScenario {
	t.Helper()

	var scenarios []KeyScenario
	LoadFixtureJSON(t, FixturePath(filename), &scenarios)
	if len(scenarios) == 0 {
		t.Fatalf("fixture %s holds no scenarios", filename)
	}
	return scenarios
}
