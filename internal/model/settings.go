package model

import (
	"encoding/json"
	"fmt"
)

// Merge applies a partial settings document on top of s, field by field.
// Nested objects such as durations are merged rather than replaced, so a
// partial {"durations":{"workMinutes":25}} keeps the stored break length.
func (s Settings) Merge(partial json.RawMessage) (Settings, error) {
	out := s
	if len(partial) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(partial, &out); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// Validate checks that durations are positive and the volume is in range.
func (s Settings) Validate() error {
	if s.Durations.WorkMinutes <= 0 {
		return fmt.Errorf("durations.workMinutes must be positive, got %v", s.Durations.WorkMinutes)
	}
	if s.Durations.BreakMinutes <= 0 {
		return fmt.Errorf("durations.breakMinutes must be positive, got %v", s.Durations.BreakMinutes)
	}
	if s.SoundVolume < 0 || s.SoundVolume > 100 {
		return fmt.Errorf("soundVolume must be between 0 and 100, got %d", s.SoundVolume)
	}
	return nil
}
