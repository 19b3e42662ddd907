package testsupport

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

var update = flag.Bool("update", false, "rewrite golden files with the current output")

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t *testing.T, path string, dest interface{}) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// WriteGolden writes test output to a golden file, creating its directory.
// This should typically only be called when updating golden files.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with expected data from a golden file.
// A missing golden file is an error; run the tests with -update to write it.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	if *update {
		WriteGolden(t, path, actual)
		return
	}
	if err := compareGolden(path, actual); err != nil {
		t.Error(err)
	}
}

func compareGolden(path string, actual []byte) error {
	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("golden file %s does not exist (run with -update to create it)", path)
		}
		return fmt.Errorf("failed to read golden file %s: %w", path, err)
	}
	if string(actual) != string(expected) {
		return fmt.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
	return nil
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// Record is a raw clinic document as the fake server stores it.
type Record = map[string]any

// NamedRecords builds one record per name with sequential "_id" values
// (prefix-01, prefix-02, ...) and name stored under field.
func NamedRecords(prefix, field string, names ...string) []Record {
	out := make([]Record, 0, len(names))
	for i, name := range names {
		out = append(out, Record{
			"_id":       fmt.Sprintf("%s-%02d", prefix, i+1),
			field:       name,
			"createdAt": fmt.Sprintf("2024-11-%02dT09:00:00.000Z", i%28+1),
		})
	}
	return out
}

// Doctors returns n doctor records named doctor-01 .. doctor-n.
func Doctors(n int) []Record {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("doctor-%02d", i+1)
	}
	recs := NamedRecords("doc", "username", names...)
	for i, r := range recs {
		r["email"] = fmt.Sprintf("doctor%02d@clinic.test", i+1)
		r["experienceYears"] = i%30 + 1
	}
	return recs
}
