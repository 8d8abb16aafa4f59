package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OverdueSweepInterval != time.Hour {
		t.Errorf("expected 1h overdue interval, got %v", cfg.OverdueSweepInterval)
	}
	if cfg.ReminderHour != 9 {
		t.Errorf("expected reminder hour 9, got %d", cfg.ReminderHour)
	}
	if cfg.ReminderLeadDays != 3 {
		t.Errorf("expected 3 lead days, got %d", cfg.ReminderLeadDays)
	}
	if Get() != cfg {
		t.Error("expected Get to return the loaded config")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "30s")
	t.Setenv("MAX_KEYWORDS_PER_CATEGORY", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReminderSweepInterval != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.ReminderSweepInterval)
	}
	if cfg.MaxKeywordsPerCategory != 10 {
		t.Errorf("expected 10, got %d", cfg.MaxKeywordsPerCategory)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DBDriver:               "postgres",
			OverdueSweepInterval:   time.Hour,
			ReminderSweepInterval:  time.Minute,
			ReminderLeadDays:       3,
			ReminderHour:           9,
			MaxKeywordsPerCategory: 50,
			Timezone:               "UTC",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad_driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"zero_interval", func(c *Config) { c.ReminderSweepInterval = 0 }, true},
		{"hour_out_of_range", func(c *Config) { c.ReminderHour = 24 }, true},
		{"negative_lead", func(c *Config) { c.ReminderLeadDays = -1 }, true},
		{"zero_keyword_cap", func(c *Config) { c.MaxKeywordsPerCategory = 0 }, true},
		{"bad_timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConnectionStrings(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "fin", DBPassword: "p@ss word", DBName: "finora", DBSSLMode: "disable"}

	if got := cfg.PostgresDSN(); got != "host=db port=5432 user=fin password=p@ss word dbname=finora sslmode=disable" {
		t.Errorf("unexpected DSN: %s", got)
	}
	if got := cfg.PostgresURL(); got != "postgres://fin:p%40ss%20word@db:5432/finora?sslmode=disable" {
		t.Errorf("unexpected URL: %s", got)
	}
}
