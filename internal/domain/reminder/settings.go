package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Frequency is the configured notification cadence of a module.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"
)

// DeliveryMode is the visibility arrangement of recipients in the message.
type DeliveryMode string

const (
	DeliveryTo  DeliveryMode = "to"
	DeliveryCC  DeliveryMode = "cc"
	DeliveryBCC DeliveryMode = "bcc"
)

const (
	// SettingsVersion is the only settings layout this build understands.
	SettingsVersion = 1

	DefaultDaysBefore = 30
)

// DefaultDayOffsets is used by offset-list modules when none are configured.
var DefaultDayOffsets = []int{30, 14, 7}

var ErrSettingsInvalid = errors.New("invalid reminder settings")

// RecipientConfig is the module-level recipient override. When UserIDs is
// non-empty it is the only recipient source for the module.
type RecipientConfig struct {
	UserIDs []string
	Mode    DeliveryMode
}

// ModuleSettings is the immutable configuration snapshot of one module for one run.
type ModuleSettings struct {
	Version           int
	Enabled           bool
	Frequency         Frequency
	IntervalDays      int
	SkipWeekends      bool
	DayOffsets        []int
	DefaultDaysBefore int
	Recipients        RecipientConfig
	SubjectTemplate   string
	BodyTemplate      string
	Sender            string
}

// settingsV1 is the stored JSON layout. Pointers distinguish "absent" from zero values.
type settingsV1 struct {
	Version           int      `json:"version"`
	Enabled           *bool    `json:"enabled"`
	Frequency         string   `json:"frequency"`
	IntervalDays      int      `json:"interval_days"`
	SkipWeekends      bool     `json:"skip_weekends"`
	DayOffsets        []int    `json:"day_offsets"`
	DefaultDaysBefore *int     `json:"default_days_before"`
	RecipientUserIDs  []string `json:"recipient_user_ids"`
	DeliveryMode      string   `json:"delivery_mode"`
	SubjectTemplate   string   `json:"subject_template"`
	BodyTemplate      string   `json:"body_template"`
	Sender            string   `json:"sender"`
}

// DefaultSettings is used when a module has no stored settings.
func DefaultSettings() ModuleSettings {
	return ModuleSettings{
		Version:           SettingsVersion,
		Enabled:           true,
		Frequency:         FrequencyWeekly,
		DayOffsets:        append([]int(nil), DefaultDayOffsets...),
		DefaultDaysBefore: DefaultDaysBefore,
		Recipients:        RecipientConfig{Mode: DeliveryBCC},
	}
}

// ParseSettings decodes a stored settings blob, applies defaults and validates it.
// An empty blob yields DefaultSettings.
func ParseSettings(raw []byte) (ModuleSettings, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return DefaultSettings(), nil
	}

	var stored settingsV1
	if err := json.Unmarshal(raw, &stored); err != nil {
		return ModuleSettings{}, fmt.Errorf("%w: %v", ErrSettingsInvalid, err)
	}
	if stored.Version == 0 {
		stored.Version = SettingsVersion
	}
	if stored.Version != SettingsVersion {
		return ModuleSettings{}, fmt.Errorf("%w: unsupported version %d", ErrSettingsInvalid, stored.Version)
	}

	s := DefaultSettings()
	if stored.Enabled != nil {
		s.Enabled = *stored.Enabled
	}
	if stored.Frequency != "" {
		s.Frequency = Frequency(strings.ToLower(strings.TrimSpace(stored.Frequency)))
	}
	s.IntervalDays = stored.IntervalDays
	s.SkipWeekends = stored.SkipWeekends
	if len(stored.DayOffsets) > 0 {
		s.DayOffsets = append([]int(nil), stored.DayOffsets...)
	}
	if stored.DefaultDaysBefore != nil {
		s.DefaultDaysBefore = *stored.DefaultDaysBefore
	}
	for _, id := range stored.RecipientUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			s.Recipients.UserIDs = append(s.Recipients.UserIDs, id)
		}
	}
	if stored.DeliveryMode != "" {
		s.Recipients.Mode = DeliveryMode(strings.ToLower(strings.TrimSpace(stored.DeliveryMode)))
	}
	s.SubjectTemplate = stored.SubjectTemplate
	s.BodyTemplate = stored.BodyTemplate
	s.Sender = strings.TrimSpace(stored.Sender)

	if err := s.Validate(); err != nil {
		return ModuleSettings{}, err
	}
	return s, nil
}

// Validate checks the snapshot once at load time.
func (s ModuleSettings) Validate() error {
	switch s.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	case FrequencyCustom:
		if s.IntervalDays <= 0 {
			return fmt.Errorf("%w: custom frequency needs interval_days > 0", ErrSettingsInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrSettingsInvalid, s.Frequency)
	}

	switch s.Recipients.Mode {
	case DeliveryTo, DeliveryCC, DeliveryBCC:
	default:
		return fmt.Errorf("%w: unknown delivery mode %q", ErrSettingsInvalid, s.Recipients.Mode)
	}

	for _, off := range s.DayOffsets {
		if off < 0 {
			return fmt.Errorf("%w: negative day offset %d", ErrSettingsInvalid, off)
		}
	}
	if s.DefaultDaysBefore < 0 {
		return fmt.Errorf("%w: negative default_days_before", ErrSettingsInvalid)
	}
	return nil
}
