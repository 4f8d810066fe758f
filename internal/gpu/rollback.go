package gpu

// rollback collects undo steps while a multi-step construction runs.
// If construction fails, run undoes the completed steps in reverse order;
// on success, the caller calls discard and the steps never run.
type rollback struct {
	undo []func()
}

func (r *rollback) add(f func()) {
	r.undo = append(r.undo, f)
}

func (r *rollback) run() {
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = nil
}

func (r *rollback) discard() {
	r.undo = nil
}
