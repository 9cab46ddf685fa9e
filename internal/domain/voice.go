package domain

// VoiceSettings controls speech playback for a session.
type VoiceSettings struct {
	Enabled        bool    `json:"isEnabled"`
	AutoPlay       bool    `json:"autoPlay"`
	SpeechRate     float64 `json:"speechRate"`
	SpeechPitch    float64 `json:"speechPitch"`
	PreferredVoice string  `json:"preferredVoice,omitempty"`
}

// DefaultVoiceSettings returns the settings a new session starts with.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Enabled:     true,
		AutoPlay:    true,
		SpeechRate:  1.0,
		SpeechPitch: 1.0,
	}
}
