package config

import "github.com/pkg/errors"

type BanningOptions struct {
	Time           int     `json:"time"` // unit seconds
	InvalidPercent float64 `json:"invalidPercent"`
	CheckThreshold uint64  `json:"checkThreshold"`
	PurgeInterval  int     `json:"purgeInterval"` // unit seconds
}

func (bo *BanningOptions) Normalize() {
	if bo.Time <= 0 {
		bo.Time = 600
	}
	if bo.InvalidPercent <= 0 {
		bo.InvalidPercent = 50
	}
	if bo.CheckThreshold == 0 {
		bo.CheckThreshold = 10
	}
	if bo.PurgeInterval <= 0 {
		bo.PurgeInterval = 300
	}
}

func (bo *BanningOptions) Validate() error {
	if bo.InvalidPercent > 100 {
		return errors.Errorf("invalid percent %f above 100", bo.InvalidPercent)
	}
	return nil
}
