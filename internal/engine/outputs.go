package engine

import "github.com/rowan/genbridge/internal/domain"

// VisiblePaths derives the ordered path list across all jobs' visible outputs
// (outputs not known to be missing), deduplicated by path. Jobs are expected
// in store order (newest first); output order within a job is preserved. The
// result is deterministic for a given job list so viewers navigating prev/next
// see a stable sequence.
func VisiblePaths(jobs []domain.Job) []string {
	var paths []string
	seen := make(map[string]struct{})
	for i := range jobs {
		for _, out := range jobs[i].Outputs {
			if !out.Visible() || out.ImagePath == "" {
				continue
			}
			if _, ok := seen[out.ImagePath]; ok {
				continue
			}
			seen[out.ImagePath] = struct{}{}
			paths = append(paths, out.ImagePath)
		}
	}
	return paths
}
