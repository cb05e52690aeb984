package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/cKV/lib/db"
)

// DBFactory is a function that creates a new, empty instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory())
		})

		t.Run("Iterate", func(t *testing.T) {
			testIterate(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// mustGet fails the test on errors and returns the value and whether it was found
func mustGet(t testing.TB, database db.KVDB, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

func mustSet(t testing.TB, database db.KVDB, key string, value []byte) {
	t.Helper()
	if err := database.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustHas(t testing.TB, database db.KVDB, key string) bool {
	t.Helper()
	ok, err := database.Has(key)
	if err != nil {
		t.Fatalf("Has(%q) failed: %v", key, err)
	}
	return ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, database, testKey, testValue1)

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, database, testKey, testValue2)

	result, exists = mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = mustGet(t, database, "nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// the returned value is a copy
	retrievedValue, _ := mustGet(t, database, testKey)
	retrievedValue[0] = 'X'

	result, _ = mustGet(t, database, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Modifying a returned value changed the stored value: %s", result)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	testKey := "delete-key"
	mustSet(t, database, testKey, []byte("value"))

	if err := database.Delete(testKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, exists := mustGet(t, database, testKey); exists {
		t.Errorf("Expected key %s to be gone after Delete", testKey)
	}

	// deleting twice or deleting an unknown key is a no-op
	if err := database.Delete(testKey); err != nil {
		t.Errorf("Deleting a deleted key failed: %v", err)
	}
	if err := database.Delete("never-existed"); err != nil {
		t.Errorf("Deleting an unknown key failed: %v", err)
	}

	// set after delete
	mustSet(t, database, testKey, []byte("again"))
	if result, exists := mustGet(t, database, testKey); !exists || string(result) != "again" {
		t.Errorf("Expected key to be readable after re-set, got %q (exists=%v)", result, exists)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	if mustHas(t, database, "has-key") {
		t.Errorf("Expected Has to be false for an unknown key")
	}

	mustSet(t, database, "has-key", []byte{})
	if !mustHas(t, database, "has-key") {
		t.Errorf("Expected Has to be true for a key with an empty value")
	}

	if err := database.Delete("has-key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mustHas(t, database, "has-key") {
		t.Errorf("Expected Has to be false after Delete")
	}
}

func testClear(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureClear)

	// clearing an empty database works
	if err := database.Clear(); err != nil {
		t.Fatalf("Clear on empty database failed: %v", err)
	}

	for i := 0; i < 100; i++ {
		mustSet(t, database, fmt.Sprintf("key-%03d", i), []byte("value"))
	}
	mustSet(t, database, "", []byte("empty key"))
	mustSet(t, database, "\xff\xff", []byte("high key"))

	if err := database.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	for _, key := range []string{"", "key-000", "key-050", "key-099", "\xff\xff"} {
		if _, exists := mustGet(t, database, key); exists {
			t.Errorf("Expected key %q to be gone after Clear", key)
		}
	}

	// the database is usable after Clear
	mustSet(t, database, "key-000", []byte("new"))
	if result, exists := mustGet(t, database, "key-000"); !exists || string(result) != "new" {
		t.Errorf("Expected key to be readable after Clear, got %q (exists=%v)", result, exists)
	}
}

func testIterate(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureIterate)

	expected := map[string]string{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("iter-%d", i)
		expected[key] = fmt.Sprintf("value-%d", i)
		mustSet(t, database, key, []byte(expected[key]))
	}

	var keys []string
	seen := map[string]string{}
	err := database.Iterate(func(key string, value []byte) bool {
		keys = append(keys, key)
		seen[key] = string(value)
		return true
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}

	if !sort.StringsAreSorted(keys) {
		t.Errorf("Expected keys in ascending order, got %v", keys)
	}
	if len(seen) != len(expected) {
		t.Errorf("Expected %d entries, got %d", len(expected), len(seen))
	}
	for key, value := range expected {
		if seen[key] != value {
			t.Errorf("Expected %s=%s, got %s", key, value, seen[key])
		}
	}

	// stop early
	count := 0
	err = database.Iterate(func(string, []byte) bool {
		count++
		return count < 10
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if count != 10 {
		t.Errorf("Expected iteration to stop after 10 entries, got %d", count)
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	mustSet(t, database, emptyKey, emptyKeyValue)

	result, exists := mustGet(t, database, emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	nilValueKey := "nil-value-key"
	mustSet(t, database, nilValueKey, nil)

	result, exists = mustGet(t, database, nilValueKey)
	if !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	unicodeKey := "schlüssel-☃"
	mustSet(t, database, unicodeKey, []byte("'ünïcödé'"))
	if result, exists = mustGet(t, database, unicodeKey); !exists || string(result) != "'ünïcödé'" {
		t.Errorf("Unicode key or value mismatch: %q", result)
	}

	if !t.Failed() {

		largeKey := string(make([]byte, 1000))
		largeKeyValue := []byte("value for large key")

		mustSet(t, database, largeKey, largeKeyValue)

		result, exists = mustGet(t, database, largeKey)
		if !exists {
			t.Errorf("Large key not found after Set")
		} else if !bytes.Equal(result, largeKeyValue) {
			t.Errorf("Value mismatch for large key")
		}

		largeValueKey := "large-value-key"
		largeValue := make([]byte, 4*1024*1024)

		for i := range largeValue {
			largeValue[i] = byte(i % 256)
		}

		mustSet(t, database, largeValueKey, largeValue)

		result, exists = mustGet(t, database, largeValueKey)
		if !exists {
			t.Errorf("Key for large value not found after Set")
		} else if !bytes.Equal(result, largeValue) {
			t.Errorf("Large value mismatch: got %d bytes, want %d", len(result), len(largeValue))
		}
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	type operation struct {
		op    string
		key   string
		value []byte
	}

	numOperations := 2_000
	operations := make([]operation, numOperations)

	for i := 0; i < numOperations; i++ {
		var op string
		switch i % 10 {
		case 0, 1, 2, 3, 4, 5, 6:
			op = "set"
		case 7, 8:
			op = "get"
		case 9:
			op = "delete"
		}

		var key string
		if i%5 == 0 {
			key = fmt.Sprintf("hot-key-%d", i%50)
		} else {
			key = fmt.Sprintf("key-%d", i)
		}

		var value []byte
		if op == "set" {
			valueSize := 64
			if i%10 == 0 {
				valueSize = 1024
			}
			value = make([]byte, valueSize)

			for j := 0; j < valueSize; j++ {
				value[j] = byte((i + j) % 256)
			}
		}

		operations[i] = operation{op, key, value}
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	errCh := make(chan error, numOperations)
	opsPerWorker := numOperations / numWorkers

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			start := workerId * opsPerWorker
			end := start + opsPerWorker

			for i := start; i < end; i++ {
				op := operations[i]

				var err error
				switch op.op {
				case "set":
					err = database.Set(op.key, op.value)
				case "get":
					_, _, err = database.Get(op.key)
				case "delete":
					err = database.Delete(op.key)
				}
				if err != nil {
					errCh <- err
				}
			}
		}(w)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Error during parallel operations: %v", err)
	}

	// keys written by exactly one set and never touched again must be readable
	for i, op := range operations {
		if op.op != "set" || i%5 == 0 {
			continue
		}
		result, exists := mustGet(t, database, op.key)
		if !exists {
			t.Errorf("Key %s not found after parallel operations", op.key)
		} else if !bytes.Equal(result, op.value) {
			t.Errorf("Value mismatch for key %s", op.key)
		}
	}
}
