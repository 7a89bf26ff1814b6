package config

import (
	"fmt"
	"os"
	"time"

	"gatewarden/internal/models"

	"gopkg.in/yaml.v3"
)

// Rules is the gate policy: what players must say to verify, how long the
// provisional window lasts, which grades are handed out and which rewards
// activity unlocks. Read once at startup.
type Rules struct {
	VerificationPhrase string `yaml:"verification_phrase"`
	ProvisionalSeconds int    `yaml:"provisional_seconds"`
	ProvisionalGrade   string `yaml:"provisional_grade"`
	PermanentGrade     string `yaml:"permanent_grade"`
	BedrockPrefix      string `yaml:"bedrock_prefix"`
	CodeLength         int    `yaml:"code_length"`
	AnnounceRewards    bool   `yaml:"announce_rewards"`

	// ProvisionalDuration is derived from ProvisionalSeconds on load.
	ProvisionalDuration time.Duration `yaml:"-"`

	// ActivityRewards maps an exact activity count to the rewards issued
	// when an account reaches it.
	ActivityRewards map[int64][]models.RewardSpec `yaml:"activity_rewards"`
}

// LoadRules reads the YAML policy file and fills in defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	if rules.ProvisionalSeconds <= 0 {
		rules.ProvisionalSeconds = 300
	}
	rules.ProvisionalDuration = time.Duration(rules.ProvisionalSeconds) * time.Second
	if rules.ProvisionalGrade == "" {
		rules.ProvisionalGrade = "temp_access"
	}
	if rules.PermanentGrade == "" {
		rules.PermanentGrade = "certified"
	}
	if rules.BedrockPrefix == "" {
		rules.BedrockPrefix = "."
	}
	if rules.CodeLength == 0 {
		rules.CodeLength = 8
	}

	if rules.VerificationPhrase == "" {
		return nil, fmt.Errorf("verification_phrase must be set: %w", models.ErrInvalidArgument)
	}

	return &rules, nil
}
