package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		Build        string
		AppName      string
		Locale       string
		RollbarToken string

		Backend  BackendConfig
		Search   SearchConfig
		Workflow WorkflowConfig
		Bulk     BulkConfig
		Session  SessionConfig
		Server   ServerConfig
		Email    EmailConfig
	}

	BackendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	SearchConfig struct {
		Delay time.Duration
	}

	WorkflowConfig struct {
		Limit int
	}

	BulkConfig struct {
		// Concurrency > 1 switches the bulk runner from sequential to bounded parallel processing.
		Concurrency int
	}

	SessionConfig struct {
		// IdleTTL is how long an unused session is kept; idle sessions are swept every SweepInterval.
		IdleTTL       time.Duration
		SweepInterval time.Duration
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	EmailConfig struct {
		From           string
		SendgridApiKey string
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
// Environment variables are prefixed by the current env, eg. `DEV_BACKEND_BASEURL`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Schulportal")
	v.SetDefault("locale", "de")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("backend.baseUrl", "http://localhost:9090")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("search.delay", 500*time.Millisecond)
	v.SetDefault("workflow.limit", 25)
	v.SetDefault("bulk.concurrency", 1)
	v.SetDefault("session.idleTtl", 30*time.Minute)
	v.SetDefault("session.sweepInterval", time.Minute)
	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("email.from", "noreply@localhost")
	v.SetDefault("email.sendgridApiKey", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Locale:       v.GetString("locale"),
		RollbarToken: v.GetString("rollbarToken"),
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("backend.baseUrl"), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Search:   SearchConfig{Delay: v.GetDuration("search.delay")},
		Workflow: WorkflowConfig{Limit: v.GetInt("workflow.limit")},
		Bulk:     BulkConfig{Concurrency: v.GetInt("bulk.concurrency")},
		Session: SessionConfig{
			IdleTTL:       v.GetDuration("session.idleTtl"),
			SweepInterval: v.GetDuration("session.sweepInterval"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Email: EmailConfig{
			From:           v.GetString("email.from"),
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
		},
	}
}
