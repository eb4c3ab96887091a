package flow

// Cycle tracks the submit → generating → settled cycle of one flow.
// It is not safe for concurrent use; owners guard it with their own mutex.
type Cycle[T any] struct {
	status    Status
	output    T
	hasOutput bool
	stash     T
	stashHas  bool
	lastErr   string
	token     uint64
}

// Status returns the current status.
func (c *Cycle[T]) Status() Status {
	if c.status == "" {
		return StatusIdle
	}
	return c.status
}

// Generating reports whether a generation is pending.
func (c *Cycle[T]) Generating() bool {
	return c.status == StatusGenerating
}

// Output returns the current output and whether one is populated.
func (c *Cycle[T]) Output() (T, bool) {
	return c.output, c.hasOutput
}

// Stable returns the output and status the cycle falls back to when a
// pending generation is dropped. Outside a generation it matches Output and
// Status.
func (c *Cycle[T]) Stable() (T, bool, Status) {
	if !c.Generating() {
		return c.output, c.hasOutput, c.Status()
	}
	if c.stashHas {
		return c.stash, true, StatusGenerated
	}
	return c.stash, false, StatusIdle
}

// LastError returns the message of the most recent failed generation.
func (c *Cycle[T]) LastError() string {
	return c.lastErr
}

// Begin enters the generating state, hiding the prior output until the
// generation settles. It returns the token identifying this generation.
func (c *Cycle[T]) Begin() (uint64, error) {
	if c.Generating() {
		return 0, ErrBusy
	}
	var zero T
	c.stash, c.stashHas = c.output, c.hasOutput
	c.output, c.hasOutput = zero, false
	c.lastErr = ""
	c.status = StatusGenerating
	c.token++
	return c.token, nil
}

// Settle applies the result of the generation identified by token. A stale
// token or a cycle that is no longer generating leaves state untouched and
// returns false. A rejected result restores the output that was visible
// before Begin.
func (c *Cycle[T]) Settle(token uint64, res Result[T]) bool {
	if !c.Generating() || token != c.token {
		return false
	}
	var zero T
	switch res.State {
	case Resolved:
		c.output, c.hasOutput = res.Value, true
	default:
		c.output, c.hasOutput = c.stash, c.stashHas
		if res.Err != nil {
			c.lastErr = res.Err.Error()
		} else {
			c.lastErr = ErrGenerationFailed.Error()
		}
	}
	c.stash, c.stashHas = zero, false
	c.status = c.settledStatus()
	return true
}

// Abandon drops a pending generation, restoring the prior output. Any later
// Settle for the abandoned token is ignored.
func (c *Cycle[T]) Abandon() {
	if !c.Generating() {
		return
	}
	var zero T
	c.output, c.hasOutput = c.stash, c.stashHas
	c.stash, c.stashHas = zero, false
	c.token++
	c.status = c.settledStatus()
}

// SetOutput replaces the output outside of a generation (snapshot restore).
func (c *Cycle[T]) SetOutput(v T) {
	c.output, c.hasOutput = v, true
	c.status = StatusGenerated
}

// ClearOutput drops the current output.
func (c *Cycle[T]) ClearOutput() {
	var zero T
	c.output, c.hasOutput = zero, false
	if !c.Generating() {
		c.status = StatusIdle
	}
}

func (c *Cycle[T]) settledStatus() Status {
	if c.hasOutput {
		return StatusGenerated
	}
	return StatusIdle
}
