package channel

import "fmt"

// duckingArbiter tracks which actor holds the attenuation of the active
// source. The first actor to duck owns the duck; only the owner releases it.
type duckingArbiter struct {
	state DuckingState
}

func heldBy(by Ducker) DuckingState {
	if by == DuckerPlatform {
		return DuckedByPlatform
	}
	return DuckedByUpstream
}

// start attenuates through attenuate unless the channel is already ducked
func (d *duckingArbiter) start(by Ducker, eligible bool, attenuate func() bool) error {
	if !eligible {
		return fmt.Errorf("%w: start ducking by %s", ErrDuckingNotPermitted, by)
	}
	if d.state != DuckingNone {
		return nil
	}
	if !attenuate() {
		return fmt.Errorf("%w: start ducking by %s", ErrSinkOperationFailed, by)
	}
	d.state = heldBy(by)
	return nil
}

// stop restores volume through restore only if by is the current holder
func (d *duckingArbiter) stop(by Ducker, eligible bool, restore func() bool) error {
	if !eligible {
		return fmt.Errorf("%w: stop ducking by %s", ErrDuckingNotPermitted, by)
	}
	if d.state != heldBy(by) {
		return nil
	}
	if !restore() {
		return fmt.Errorf("%w: stop ducking by %s", ErrSinkOperationFailed, by)
	}
	d.state = DuckingNone
	return nil
}

func (d *duckingArbiter) reset() {
	d.state = DuckingNone
}

// StartDucking attenuates the active source on behalf of by
func (c *Channel) StartDucking(by Ducker) bool {
	return callResult(c.commands, false, func() bool {
		return c.startDucking(by)
	})
}

// StopDucking releases an attenuation held by by
func (c *Channel) StopDucking(by Ducker) bool {
	return callResult(c.commands, false, func() bool {
		return c.stopDucking(by)
	})
}

func (c *Channel) startDucking(by Ducker) bool {
	before := c.ducking.state
	err := c.ducking.start(by, c.duckEligible(), c.sink.StartDucking)
	if err != nil {
		c.log.Warn("start ducking failed", "by", by, "source_id", c.current.id, "error", err)
		return false
	}
	c.log.Debug("ducking started", "by", by, "was", before, "now", c.ducking.state)
	return true
}

func (c *Channel) stopDucking(by Ducker) bool {
	before := c.ducking.state
	err := c.ducking.stop(by, c.duckEligible(), c.sink.StopDucking)
	if err != nil {
		c.log.Warn("stop ducking failed", "by", by, "source_id", c.current.id, "error", err)
		return false
	}
	c.log.Debug("ducking stopped", "by", by, "was", before, "now", c.ducking.state)
	return true
}

func (c *Channel) duckEligible() bool {
	return c.sink != nil && c.current.active() && c.current.mayDuck
}

// onFocusAction handles ducking requests raised by the platform
func (c *Channel) onFocusAction(id SourceID, action FocusAction) {
	if c.sink == nil || id != c.current.id {
		c.log.Debug("discarding stale focus action", "source_id", id, "current", c.current.id, "action", action)
		return
	}

	switch action {
	case FocusDuckingStarted:
		c.startDucking(DuckerPlatform)
	case FocusDuckingStopped:
		c.stopDucking(DuckerPlatform)
	default:
		c.log.Warn("unknown focus action", "source_id", id, "action", action)
	}
}
