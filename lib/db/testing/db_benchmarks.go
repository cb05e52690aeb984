package testing

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/cKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory())
	})

	b.Run("SetExisting", func(b *testing.B) {
		benchmarkSetExisting(b, factory())
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory())
	})

	b.Run("Has", func(b *testing.B) {
		benchmarkHas(b, factory())
	})

	b.Run("Has(not)", func(b *testing.B) {
		benchmarkHasNot(b, factory())
	})

	b.Run("Iterate", func(b *testing.B) {
		benchmarkIterate(b, factory())
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// fill writes n small entries named key-0 ... key-(n-1)
func fill(b *testing.B, database db.KVDB, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := database.Set(fmt.Sprintf("key-%d", i), []byte("value")); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var counter atomic.Int64
	value := []byte("value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key-%d", counter.Add(1))
			_ = database.Set(key, value)
		}
	})
}

// Benchmark for overwriting existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	const numKeys = 1000
	fill(b, database, numKeys)
	value := []byte("new-value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := rand.Intn(numKeys)
		for pb.Next() {
			_ = database.Set(fmt.Sprintf("key-%d", i%numKeys), value)
			i++
		}
	})
}

// Benchmark for Set with a 1 MB value
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := make([]byte, 1024*1024)
	for i := range value {
		value[i] = byte(i % 256)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Set(fmt.Sprintf("large-%d", i%100), value)
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	const numKeys = 10_000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := rand.Intn(numKeys)
		for pb.Next() {
			_, _, _ = database.Get(fmt.Sprintf("key-%d", i%numKeys))
			i++
		}
	})
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureDelete)

	fill(b, database, b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Delete(fmt.Sprintf("key-%d", i))
	}
}

// Benchmark for Has on keys that do not exist
func benchmarkHasNot(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHas)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = database.Has(fmt.Sprintf("missing-%d", i))
			i++
		}
	})
}

// Benchmark for Has on existing keys
func benchmarkHas(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureHas)

	const numKeys = 10_000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := rand.Intn(numKeys)
		for pb.Next() {
			_, _ = database.Has(fmt.Sprintf("key-%d", i%numKeys))
			i++
		}
	})
}

// Benchmark for a full iteration over 10k entries (the cost of loading a store)
func benchmarkIterate(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureIterate)

	fill(b, database, 10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Iterate(func(string, []byte) bool { return true })
	}
}

// Benchmark for a read heavy mix of operations
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	const numKeys = 1000
	fill(b, database, numKeys)
	value := []byte("value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := rand.Intn(numKeys)
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%numKeys)
			switch i % 10 {
			case 0, 1:
				_ = database.Set(key, value)
			case 2:
				_ = database.Delete(key)
			default:
				_, _, _ = database.Get(key)
			}
			i++
		}
	})
}
