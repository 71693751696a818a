// +build ignore

// generate_testdata.go creates standard link datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//   tests/testdata/benchmark/small.jsonl   (100 notes)
//   tests/testdata/benchmark/medium.jsonl  (500 notes)
//   tests/testdata/benchmark/large.jsonl   (2000 notes)
//   tests/testdata/benchmark/huge.jsonl    (5000 notes)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
	desc string
}

var datasets = []datasetSpec{
	{"small", 100, "100 notes - sparse random links with ~10% density"},
	{"medium", 500, "500 notes - sparse random links with ~5% density"},
	{"large", 2000, "2000 notes - sparse random links with ~1% density"},
	{"huge", 5000, "5000 notes - sparse random links with ~0.5% density"},
}

func main() {
	outputDir := "tests/testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d notes)...\n", ds.name, ds.size)

		// Scale density inversely with size to keep the edge count sane
		density := calculateDensity(ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:     int64(ds.size), // Reproducible per-size
			Category: "notes",
			RelationshipMix: []model.Relationship{
				model.RelReferences, model.RelReferences, model.RelReferences,
				model.RelExtends, model.RelRequires, model.RelRelatesTo,
			},
			BidirectionalRate: 0.05,
		})
		edges := gen.ToEdges(gen.Random(ds.size, density))

		jsonl := testutil.ToJSONL(edges)

		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d links)\n", outputPath, len(jsonl), len(edges))
	}

	fmt.Println("\nDone! Link datasets created in", outputDir)
}

func calculateDensity(size int) float64 {
	switch {
	case size <= 100:
		return 0.1
	case size <= 500:
		return 0.05
	case size <= 2000:
		return 0.01
	default:
		return 0.005
	}
}
