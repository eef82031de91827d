package model

// ExtractionResult carries an extracted playlist URL. Verified is true
// only when a live fetch confirmed the manifest signature; an unverified
// URL is still usable and the flag is a soft warning.
type ExtractionResult struct {
	PlaylistURL string
	Verified    bool
}

// BatchResult aggregates per-task outcomes of one batch run. Every task
// resolves to exactly one of success or failure, so Success+Failed
// always equals the number of submitted tasks.
type BatchResult struct {
	Success int
	Failed  int
}

// Total returns the number of tasks that contributed to the result.
func (r BatchResult) Total() int {
	return r.Success + r.Failed
}

// AllSucceeded reports whether no task failed.
func (r BatchResult) AllSucceeded() bool {
	return r.Failed == 0
}
