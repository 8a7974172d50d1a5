package reminder

// ModuleKey names one reminder instance.
type ModuleKey string

const (
	ModuleTrainings    ModuleKey = "trainings"
	ModuleDeadlines    ModuleKey = "deadlines"
	ModuleExaminations ModuleKey = "examinations"
)

// ThresholdMode selects how an item's reminder window is evaluated.
type ThresholdMode string

const (
	// ThresholdOffsetList fires on the exact days listed in ModuleSettings.DayOffsets.
	// Only the day a period sends is evaluated: an offset that falls on a later
	// day of an already sent period is not reported. Pair it with a daily
	// frequency to catch every offset.
	ThresholdOffsetList ThresholdMode = "offset_list"
	// ThresholdPerItem fires while daysUntil is within the item's resolved window.
	ThresholdPerItem ThresholdMode = "per_item"
)

// AuditGranularity decides how many audit rows one send attempt produces.
type AuditGranularity string

const (
	AuditPerRun       AuditGranularity = "per_run"
	AuditPerRecipient AuditGranularity = "per_recipient"
)

// Module describes one reminder instance the engine can run.
type Module struct {
	Key              ModuleKey
	Title            string // used in built-in subject/body text
	ThresholdMode    ThresholdMode
	Audit            AuditGranularity
	RequiresTemplate bool
}

// Modules returns the three built-in reminder instances.
func Modules() []Module {
	return []Module{
		{
			Key:              ModuleTrainings,
			Title:            "Trainings",
			ThresholdMode:    ThresholdPerItem,
			Audit:            AuditPerRun,
			RequiresTemplate: true,
		},
		{
			Key:              ModuleDeadlines,
			Title:            "Technical deadlines",
			ThresholdMode:    ThresholdPerItem,
			Audit:            AuditPerRecipient,
			RequiresTemplate: true,
		},
		{
			Key:           ModuleExaminations,
			Title:         "Medical examinations",
			ThresholdMode: ThresholdOffsetList,
			Audit:         AuditPerRun,
		},
	}
}

// LookupModule finds a built-in module by key.
func LookupModule(key ModuleKey) (Module, bool) {
	for _, m := range Modules() {
		if m.Key == key {
			return m, true
		}
	}
	return Module{}, false
}
