package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bosunhq/bosun/pkg/types"
)

// Config is the full daemon configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Weights   types.WeightConfig `mapstructure:"weights" validate:"required"`
}

// APIConfig holds the HTTP surface settings.
type APIConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`
}

// LoggingConfig holds the log level and format.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// SchedulerConfig holds everything the four levels need beyond the
// environment itself: horizon sizes, destroy sizes, the material-status
// period offsets, per-resource operating time and the shift template.
type SchedulerConfig struct {
	StrategicPeriods int `mapstructure:"strategic_periods" validate:"min=2"`
	TacticalDays     int `mapstructure:"tactical_days" validate:"min=1"`

	StrategicRemoved   int `mapstructure:"strategic_removed" validate:"min=0"`
	TacticalRemoved    int `mapstructure:"tactical_removed" validate:"min=0"`
	SupervisorRemoved  int `mapstructure:"supervisor_removed" validate:"min=0"`
	OperationalRemoved int `mapstructure:"operational_removed" validate:"min=0"`

	PersistInterval time.Duration `mapstructure:"persist_interval"`
	DataDir         string        `mapstructure:"data_dir"`

	MaterialOffsets types.MaterialOffsets `mapstructure:"material_offsets"`
	OperatingTime   map[string]float64    `mapstructure:"operating_time"`

	Shifts ShiftConfig `mapstructure:"shifts"`
}

// ShiftConfig is the default daily shift template applied to workers
// created through the API.
type ShiftConfig struct {
	Break    string `mapstructure:"break" validate:"required"`
	OffShift string `mapstructure:"off_shift" validate:"required"`
	Toolbox  string `mapstructure:"toolbox" validate:"required"`
}

// Load reads configuration with priority env > config file > defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bosun")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/bosun")
	}

	v.SetEnvPrefix("BOSUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// OperatingTimeFor resolves the configured hours-per-day for a resource,
// falling back to a six-hour default.
func (s *SchedulerConfig) OperatingTimeFor(r types.Resource) float64 {
	if hours, ok := s.OperatingTime[string(r)]; ok {
		return hours
	}
	// Viper lowercases map keys read from a config file.
	if hours, ok := s.OperatingTime[strings.ToLower(string(r))]; ok {
		return hours
	}
	return 6.0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.addr", ":8321")
	v.SetDefault("api.request_timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)

	v.SetDefault("scheduler.strategic_periods", 13)
	v.SetDefault("scheduler.tactical_days", 56)
	v.SetDefault("scheduler.strategic_removed", 15)
	v.SetDefault("scheduler.tactical_removed", 10)
	v.SetDefault("scheduler.supervisor_removed", 8)
	v.SetDefault("scheduler.operational_removed", 4)
	v.SetDefault("scheduler.persist_interval", "30s")
	v.SetDefault("scheduler.data_dir", "/var/lib/bosun")

	v.SetDefault("scheduler.material_offsets.nmat", 0)
	v.SetDefault("scheduler.material_offsets.smat", 0)
	v.SetDefault("scheduler.material_offsets.cmat", 2)
	v.SetDefault("scheduler.material_offsets.pmat", 3)
	v.SetDefault("scheduler.material_offsets.wmat", 3)

	v.SetDefault("scheduler.shifts.break", "11:00-12:00")
	v.SetDefault("scheduler.shifts.off_shift", "19:00-07:00")
	v.SetDefault("scheduler.shifts.toolbox", "07:00-08:00")

	v.SetDefault("weights.order_type_weights", map[string]uint64{
		"WDF": 10, "WGN": 8, "WPM": 6, "Other": 1,
	})
	v.SetDefault("weights.status_weights", map[string]uint64{
		"AWSC": 100, "SECE": 80, "PCNF_NMAT_SMAT": 50,
	})
	v.SetDefault("weights.wdf_priority_map", defaultIntPriorityMap())
	v.SetDefault("weights.wgn_priority_map", defaultIntPriorityMap())
	v.SetDefault("weights.wpm_priority_map", map[string]uint64{
		"A": 8, "B": 4, "C": 2, "D": 1,
	})
	v.SetDefault("weights.clustering.asset", 1)
	v.SetDefault("weights.clustering.sector", 2)
	v.SetDefault("weights.clustering.system", 4)
	v.SetDefault("weights.clustering.subsystem", 8)
	v.SetDefault("weights.clustering.equipment_tag", 16)
}

func defaultIntPriorityMap() map[string]uint64 {
	return map[string]uint64{
		"0": 1, "1": 9, "2": 8, "3": 7, "4": 6,
		"5": 5, "6": 4, "7": 3, "8": 2,
	}
}
