package model

import "errors"

var (
	// ErrInvalidConfiguration is returned for negative or otherwise unusable
	// capacity and threshold values.
	ErrInvalidConfiguration = errors.New("invalid depot configuration")
	// ErrEmptyFleet is returned when fleet metrics are requested over zero records.
	ErrEmptyFleet = errors.New("empty fleet")
	// ErrNoChargers is returned when utilization is strictly requested with zero chargers.
	ErrNoChargers = errors.New("no chargers available")
	// ErrInvalidReading is returned for telemetry without a bus id or with a
	// state of charge that is not a finite percentage in [0,100].
	ErrInvalidReading = errors.New("invalid telemetry reading")
)
