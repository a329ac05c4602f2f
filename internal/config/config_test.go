package config

import (
	"testing"
	"time"

	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, types.GatewayProviderCybersource, cfg.Gateway.Provider)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, SchedulerModeInProcess, cfg.Scheduler.Mode)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.InterScheduleDelay)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.CronSpec)
	assert.Equal(t, EventPublisherMemory, cfg.Events.Publisher)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("RENTPAY_GATEWAY_PROVIDER", "stripe")
	t.Setenv("RENTPAY_GATEWAY_TIMEOUT", "5s")
	t.Setenv("RENTPAY_SCHEDULER_TIMEZONE", "EST")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, types.GatewayProviderStripe, cfg.Gateway.Provider)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "EST", cfg.Scheduler.Timezone)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
	}{
		{"unknown provider", func(c *Configuration) { c.Gateway.Provider = "paypal" }},
		{"zero timeout", func(c *Configuration) { c.Gateway.Timeout = 0 }},
		{"unknown scheduler mode", func(c *Configuration) { c.Scheduler.Mode = "lambda" }},
		{"negative delay", func(c *Configuration) { c.Scheduler.InterScheduleDelay = -time.Second }},
		{"bad timezone", func(c *Configuration) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"unknown publisher", func(c *Configuration) { c.Events.Publisher = "sqs" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
