package stage

import (
	"git.home.luguber.info/inful/relpack/internal/walker"
)

// FileFailure couples a file with the error its transform produced.
// Order follows completion, which is stable for the single-worker case.
type FileFailure struct {
	Entry walker.FileEntry
	Err   error
}

// Result aggregates one stage run. Per-file failures are additive and never
// abort the stage (fail-soft).
type Result struct {
	Stage      string
	Processed  uint
	Failures   []FileFailure
	WalkErrors []*walker.WalkError
	Symlinks   int
}

// Failed reports how many files the stage could not transform. Walk errors
// count too: a subtree that could not be enumerated is unaccounted work.
func (r *Result) Failed() int { return len(r.Failures) + len(r.WalkErrors) }
