package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Mode selects the evaluation authority.
type Mode string

const (
	// ModeLocal evaluates in-process against the public region feed.
	ModeLocal Mode = "local"
	// ModeRemote forwards gated reports to the server and reconciles its events.
	ModeRemote Mode = "remote"
)

// Config is read from MONITOR_* environment variables.
type Config struct {
	Mode      Mode   `env:"MONITOR_MODE,      default=local"`
	APIURL    string `env:"MONITOR_API_URL,   default=http://localhost:8080"`
	Namespace string `env:"MONITOR_NAMESPACE, required"`
	EntityID  string `env:"MONITOR_ENTITY_ID"`

	// Manual disables polling; positions arrive through SetTestPosition.
	Manual       bool          `env:"MONITOR_MANUAL,        default=false"`
	PollInterval time.Duration `env:"MONITOR_POLL_INTERVAL, default=10s"`

	MinMovementMeters float64       `env:"MONITOR_MIN_MOVEMENT_METERS, default=50"`
	MinReportInterval time.Duration `env:"MONITOR_MIN_REPORT_INTERVAL, default=5s"`
	EventCooldown     time.Duration `env:"MONITOR_EVENT_COOLDOWN,      default=15s"`
	ReportTimeout     time.Duration `env:"MONITOR_REPORT_TIMEOUT,      default=10s"`

	VertexCount int `env:"MONITOR_POLYGON_VERTEX_COUNT, default=8"`
}

// LoadConfig reads and validates the monitor configuration through lookuper.
func LoadConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks mode-specific requirements.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
	case ModeRemote:
		if c.EntityID == "" {
			return fmt.Errorf("MONITOR_ENTITY_ID is required in remote mode")
		}
	default:
		return fmt.Errorf("MONITOR_MODE must be local or remote, got %q", c.Mode)
	}
	if c.Namespace == "" {
		return fmt.Errorf("MONITOR_NAMESPACE is required")
	}
	if !c.Manual && c.PollInterval <= 0 {
		return fmt.Errorf("MONITOR_POLL_INTERVAL must be positive, got %v", c.PollInterval)
	}
	if c.MinMovementMeters < 0 {
		return fmt.Errorf("MONITOR_MIN_MOVEMENT_METERS must be at least 0, got %v", c.MinMovementMeters)
	}
	return nil
}
