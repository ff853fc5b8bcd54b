package srs

import (
	"fmt"

	"github.com/phrazzld/mindpalace/internal/domain"
)

// MinAllowedEase is the lowest ease floor a configuration may set.
const MinAllowedEase = 1.3

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Core limits
	InitialEase float64
	MinEase     float64

	// Grades with a quality score below PassThreshold count as a lapse
	PassThreshold int

	// Intervals for the first and second consecutive successes
	FirstInterval  int
	SecondInterval int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	InitialEase    float64 `mapstructure:"initial_ease" validate:"omitempty,gte=1.3"`
	MinEase        float64 `mapstructure:"min_ease" validate:"omitempty,gte=1.3"`
	PassThreshold  int     `mapstructure:"pass_threshold" validate:"omitempty,gte=1,lte=4"`
	FirstInterval  int     `mapstructure:"first_interval" validate:"omitempty,gte=1"`
	SecondInterval int     `mapstructure:"second_interval" validate:"omitempty,gte=1"`
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		InitialEase:    2.5,
		MinEase:        1.3,
		PassThreshold:  3,
		FirstInterval:  1,
		SecondInterval: 6,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.InitialEase > 0 {
		params.InitialEase = config.InitialEase
	}
	if config.MinEase > 0 {
		params.MinEase = config.MinEase
	}
	if config.PassThreshold > 0 {
		params.PassThreshold = config.PassThreshold
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}

	return params
}

// Validate checks that the parameters keep graded cards schedulable: the ease
// floor is at least MinAllowedEase, new cards start at or above the floor and
// intervals are positive.
func (p *Params) Validate() error {
	if p.MinEase < MinAllowedEase {
		return fmt.Errorf("%w: min ease %.2f is below %.2f", domain.ErrInvalidArgument, p.MinEase, MinAllowedEase)
	}
	if p.InitialEase < p.MinEase {
		return fmt.Errorf("%w: initial ease %.2f is below min ease %.2f",
			domain.ErrInvalidArgument, p.InitialEase, p.MinEase)
	}
	if p.FirstInterval < 1 || p.SecondInterval < 1 {
		return fmt.Errorf("%w: intervals must be at least 1 day", domain.ErrInvalidArgument)
	}
	return nil
}
