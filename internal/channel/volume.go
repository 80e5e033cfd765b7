package channel

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 50
)

// VolumeSettings is the last volume and mute state accepted by the sink
type VolumeSettings struct {
	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`
}

// DefaultVolumeSettings returns mid-scale volume, unmuted
func DefaultVolumeSettings() VolumeSettings {
	return VolumeSettings{Volume: DefaultVolume}
}

// nativeVolume maps 0-100 onto the sink scale 0.0-1.0
func nativeVolume(volume int) float32 {
	return float32(volume) / 100.0
}

func clampVolume(volume int) int {
	return max(MinVolume, min(MaxVolume, volume))
}

// SetVolume sets the volume (0-100). Out-of-range values are rejected.
func (c *Channel) SetVolume(volume int) bool {
	if volume < MinVolume || volume > MaxVolume {
		c.log.Warn("volume out of range", "volume", volume, "min", MinVolume, "max", MaxVolume)
		return false
	}
	return callResult(c.commands, false, func() bool {
		return c.applyVolume(volume)
	})
}

// AdjustVolume changes the volume by delta, clamped to 0-100
func (c *Channel) AdjustVolume(delta int) bool {
	return callResult(c.commands, false, func() bool {
		return c.applyVolume(clampVolume(c.Settings().Volume + delta))
	})
}

// SetMute mutes or unmutes the channel
func (c *Channel) SetMute(muted bool) bool {
	return callResult(c.commands, false, func() bool {
		if c.sink == nil {
			return false
		}
		if !c.sink.MutedStateChanged(muted) {
			c.log.Error("sink rejected mute change", "muted", muted, "error", ErrSinkOperationFailed)
			return false
		}

		c.settingsMu.Lock()
		c.settings.Muted = muted
		c.settingsMu.Unlock()

		c.log.Debug("mute state changed", "muted", muted)
		return true
	})
}

// Settings returns the cached volume settings without querying the sink
func (c *Channel) Settings() VolumeSettings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

func (c *Channel) applyVolume(volume int) bool {
	if c.sink == nil {
		return false
	}
	if !c.sink.VolumeChanged(nativeVolume(volume)) {
		c.log.Error("sink rejected volume change", "volume", volume, "error", ErrSinkOperationFailed)
		return false
	}

	c.settingsMu.Lock()
	c.settings.Volume = volume
	c.settingsMu.Unlock()

	c.log.Debug("volume changed", "volume", volume)
	return true
}
