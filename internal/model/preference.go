package model

// SoundChannel selects which configured sound an alert uses.
type SoundChannel string

const (
	ChannelDefault  SoundChannel = "default"
	ChannelCritical SoundChannel = "critical"
)

// Default sound identifiers used until the user picks others.
const (
	DefaultSoundID  = "chime"
	CriticalSoundID = "alarm"
	DefaultVolume   = 0.7
)

// SoundPreference is the user's alert sound configuration.
type SoundPreference struct {
	DefaultSound  string  `json:"defaultSound"`
	CriticalSound string  `json:"criticalSound"`
	Volume        float64 `json:"volume"`
}

// DefaultSoundPreference returns the preference used when nothing is stored.
func DefaultSoundPreference() SoundPreference {
	return SoundPreference{
		DefaultSound:  DefaultSoundID,
		CriticalSound: CriticalSoundID,
		Volume:        DefaultVolume,
	}
}

// SoundFor returns the sound identifier configured for the channel.
func (p SoundPreference) SoundFor(ch SoundChannel) string {
	if ch == ChannelCritical {
		return p.CriticalSound
	}
	return p.DefaultSound
}

// Normalized returns a copy with the volume clamped to [0,1].
func (p SoundPreference) Normalized() SoundPreference {
	p.Volume = ClampVolume(p.Volume)
	return p
}

// ClampVolume limits v to the inclusive range [0,1]. NaN maps to 0.
func ClampVolume(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
