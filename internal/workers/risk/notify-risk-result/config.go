// internal/workers/risk/notify-risk-result/config.go
package notifyriskresult

import (
	"fmt"
	"time"

	"heart-risk-workers/internal/common/config"
)

type Config struct {
	Enabled      bool
	Timeout      time.Duration
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	SenderID     string
}

func LoadConfig(appConfig *config.Config) *Config {
	wcfg := config.GetWorkerConfig(appConfig, TaskType)
	return &Config{
		Enabled:      wcfg.Enabled,
		Timeout:      config.GetDuration(wcfg.Timeout),
		EmailEnabled: appConfig.Notifications.Email.Enabled,
		FromEmail:    appConfig.Notifications.Email.FromEmail,
		SMSEnabled:   appConfig.Notifications.SMS.Enabled,
		SenderID:     appConfig.Notifications.SMS.SenderID,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("from email is required when email notifications are enabled")
	}
	return nil
}
