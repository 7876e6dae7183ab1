package speech

import "fmt"

// Sentinels are the token ids that mark turn boundaries in the prompt and
// the end of generated speech.
type Sentinels struct {
	StartOfHuman int `yaml:"start_of_human" json:"start_of_human"`
	EndOfText    int `yaml:"end_of_text" json:"end_of_text"`
	EndOfHuman   int `yaml:"end_of_human" json:"end_of_human"`
	EndOfAI      int `yaml:"end_of_ai" json:"end_of_ai"`
}

// DefaultSentinels returns the ids used by Orpheus-style speech models.
func DefaultSentinels() Sentinels {
	return Sentinels{
		StartOfHuman: 128259,
		EndOfText:    128009,
		EndOfHuman:   128260,
		EndOfAI:      128262,
	}
}

// Validate rejects negative ids.
func (s Sentinels) Validate() error {
	fields := []struct {
		name string
		id   int
	}{
		{"start_of_human", s.StartOfHuman},
		{"end_of_text", s.EndOfText},
		{"end_of_human", s.EndOfHuman},
		{"end_of_ai", s.EndOfAI},
	}
	for _, f := range fields {
		if f.id < 0 {
			return fmt.Errorf("sentinel %s must be non-negative, got %d", f.name, f.id)
		}
	}
	return nil
}
