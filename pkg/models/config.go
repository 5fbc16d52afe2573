package models

// Config is the root martbuild configuration, stored as YAML in the
// user's config directory.
type Config struct {
	Snowflake  Snowflake  `yaml:"snowflake"`
	Pipeline   Pipeline   `yaml:"pipeline"`
	Generator  Generator  `yaml:"generator"`
	Extractor  Extractor  `yaml:"extractor"`
	ModelsRepo ModelsRepo `yaml:"models_repo"`
}

type Snowflake struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Timeout   string `yaml:"timeout"` // Connection timeout, e.g. "30s"
	// UseKeychain stores the password in the OS keychain instead of the
	// config file.
	UseKeychain bool `yaml:"use_keychain"`
}

// Pipeline contains the transformation configuration surface: date window,
// weekend/holiday rules, severity tiers, sentinel key, required fields and
// the duplicate-key policy.
type Pipeline struct {
	Workers         int                 `yaml:"workers"`          // Parallel dimension builds (0 = NumCPU)
	DuplicatePolicy string              `yaml:"duplicate_policy"` // "error" or "last-wins"
	SentinelKey     int64               `yaml:"sentinel_key"`     // Substituted for unmatched dimension lookups
	KeyHash         string              `yaml:"key_hash"`         // Surrogate hash algorithm; changing it breaks key stability
	DateDimension   DateDimension       `yaml:"date_dimension"`
	SeverityTiers   []SeverityTier      `yaml:"severity_tiers"`
	RequiredFields  map[string][]string `yaml:"required_fields"` // Per staged entity; overrides the built-in lists
}

type DateDimension struct {
	StartDate     string        `yaml:"start_date"` // YYYY-MM-DD
	Days          int           `yaml:"days"`
	WeekendDays   []string      `yaml:"weekend_days"` // e.g. ["Saturday", "Sunday"]
	HolidaySeason HolidaySeason `yaml:"holiday_season"`
}

// HolidaySeason approximates the retail holiday window: whole months plus a
// trailing slice of one partial month.
type HolidaySeason struct {
	FullMonths   []int `yaml:"full_months"`   // Months flagged in full (e.g. [12])
	PartialMonth int   `yaml:"partial_month"` // Month flagged from FromDay onward (e.g. 11)
	FromDay      int   `yaml:"from_day"`      // First flagged day of PartialMonth (e.g. 24)
}

// SeverityTier is one bucket of the score classification. Tiers are evaluated
// highest-first with inclusive lower bounds.
type SeverityTier struct {
	Name     string  `yaml:"name"`
	MinScore float64 `yaml:"min_score"`
}

// Generator configures the synthetic supply-chain data generator.
type Generator struct {
	Seed      int64  `yaml:"seed"`
	Products  int    `yaml:"products"`
	Stores    int    `yaml:"stores"`
	Vendors   int    `yaml:"vendors"`
	StartDate string `yaml:"start_date"` // Sales window start (YYYY-MM-DD)
	Days      int    `yaml:"days"`       // Sales window length
	OutputDir string `yaml:"output_dir"`
}

// Extractor configures the NVD CVE feed client.
type Extractor struct {
	APIKey    string `yaml:"api_key"` // Optional; raises the NVD rate limit
	Days      int    `yaml:"days"`    // Look-back window from today
	OutputDir string `yaml:"output_dir"`
}

// ModelsRepo points at the git repository holding pipeline configuration
// and seed files.
type ModelsRepo struct {
	GitURL string `yaml:"git_url"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"` // Local checkout path
}
