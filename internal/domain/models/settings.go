package models

import "fmt"

// Mode selects the threshold profile.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeADT      Mode = "adt"
)

func (m Mode) Valid() bool { return m == ModeStandard || m == ModeADT }

func (m Mode) String() string { return string(m) }

// ParseMode accepts "standard" or "adt".
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

const (
	DefaultBaselineDays = 14
	MinBaselineDays     = 7
	MaxBaselineDays     = 21
)

// AppSettings are the user-tunable engine inputs.
type AppSettings struct {
	BaselineDays int  `json:"baselineDays" validate:"gte=7,lte=21"`
	Mode         Mode `json:"mode" validate:"oneof=standard adt"`
}

// DefaultSettings mirrors a fresh install.
func DefaultSettings() AppSettings {
	return AppSettings{BaselineDays: DefaultBaselineDays, Mode: ModeADT}
}

// Validate checks window range and mode.
func (s AppSettings) Validate() error {
	if s.BaselineDays < MinBaselineDays || s.BaselineDays > MaxBaselineDays {
		return fmt.Errorf("baselineDays must be between %d and %d, got %d", MinBaselineDays, MaxBaselineDays, s.BaselineDays)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	return nil
}
