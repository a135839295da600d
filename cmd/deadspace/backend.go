package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// backends lists the selectable -backend values. Builds with the gocv tag
// add "opencv".
var backends = map[string]pipeline.Backend{
	"go": pipeline.GoBackend{},
}

func newBackend(name string) (pipeline.Backend, error) {
	if name == "" {
		name = "go"
	}
	b, ok := backends[name]
	if !ok {
		names := make([]string, 0, len(backends))
		for n := range backends {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(names, ", "))
	}
	return b, nil
}
