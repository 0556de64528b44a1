package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xraytools/xray2cg/pkg/xray"
)

// SaveJSON writes the run summary to path as indented JSON.
func (r *Result) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write summary: %w", err)
	}
	return nil
}

// sortedCallCounts flattens the parser's per-address tallies into a
// slice ordered by address for stable output.
func sortedCallCounts(counts map[string]*xray.CallCount) []CallCount {
	out := make([]CallCount, 0, len(counts))
	for addr, cc := range counts {
		out = append(out, CallCount{Address: addr, Name: cc.Name, Count: cc.Count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
