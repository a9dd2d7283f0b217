// Package review implements due-set selection and the ease-factor review
// scheduler.
package review

import "time"

// Parameters holds the tunable constants of the scheduling policy. The
// zero value is not usable; start from DefaultParameters.
type Parameters struct {
	// EaseFloor is the minimum ease factor a card can reach.
	EaseFloor float64 `koanf:"ease_floor" validate:"gt=1"`
	// EaseCeiling caps ease growth.
	EaseCeiling float64 `koanf:"ease_ceiling" validate:"gtefield=EaseFloor"`
	// EaseBonus is added to the ease factor on a correct answer.
	EaseBonus float64 `koanf:"ease_bonus" validate:"gt=0"`
	// EasePenalty is subtracted from the ease factor on an incorrect answer.
	EasePenalty float64 `koanf:"ease_penalty" validate:"gt=0"`
	// BaseInterval is the unit interval multiplied by ease^streak.
	BaseInterval time.Duration `koanf:"base_interval" validate:"gt=0"`
	// MinInterval is the reset interval after an incorrect answer.
	MinInterval time.Duration `koanf:"min_interval" validate:"gt=0"`
	// MaxInterval bounds exponential interval growth.
	MaxInterval time.Duration `koanf:"max_interval" validate:"gtefield=BaseInterval"`
	// CorrectReward is the experience granted per correct answer.
	CorrectReward int64 `koanf:"correct_reward" validate:"gte=0"`
}

// DefaultParameters returns the stock policy values.
func DefaultParameters() Parameters {
	return Parameters{
		EaseFloor:     1.3,
		EaseCeiling:   2.5,
		EaseBonus:     0.05,
		EasePenalty:   0.2,
		BaseInterval:  24 * time.Hour,
		MinInterval:   10 * time.Minute,
		MaxInterval:   180 * 24 * time.Hour,
		CorrectReward: 10,
	}
}

// InitialEase is the ease factor assigned to newly created cards.
const InitialEase = 1.5
