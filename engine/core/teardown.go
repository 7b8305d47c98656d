package core

// Teardown collects release functions in creation order and runs them in
// reverse. It backs both rollback of a failed startup and regular shutdown.
type Teardown struct {
	steps []teardownStep
}

type teardownStep struct {
	name    string
	release func()
}

func (t *Teardown) Push(name string, release func()) {
	t.steps = append(t.steps, teardownStep{name: name, release: release})
}

// Len returns the number of pending releases.
func (t *Teardown) Len() int {
	return len(t.steps)
}

// Unwind releases everything pushed so far, newest first. Each release runs
// at most once; calling Unwind again is a no-op.
func (t *Teardown) Unwind() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		t.steps = t.steps[:i]
		LogDebug("Releasing %s...", step.name)
		step.release()
	}
}
