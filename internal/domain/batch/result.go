package batch

// Result aggregates per-document outcomes of one batch operation.
// Invariant: Processed == Updated + Skipped + Errors.
type Result struct {
	Processed int
	Updated   int
	Skipped   int
	Errors    int
}

// Update records one successfully (re)embedded document.
func (r *Result) Update() {
	r.Processed++
	r.Updated++
}

// Skip records one document left untouched (fresh or unembeddable).
func (r *Result) Skip() {
	r.Processed++
	r.Skipped++
}

// Fail records one document whose embedding failed terminally.
func (r *Result) Fail() {
	r.Processed++
	r.Errors++
}

// Merge folds another result into this one.
func (r *Result) Merge(other Result) {
	r.Processed += other.Processed
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Errors += other.Errors
}

// Conserved reports whether the counter invariant holds.
func (r Result) Conserved() bool {
	return r.Processed == r.Updated+r.Skipped+r.Errors
}
