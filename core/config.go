package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env     string
	Build   string
	Debug   bool
	AppName string

	API struct {
		BaseURL string        `validate:"required,url"`
		Token   string        // bearer token handed over by the login screen
		Timeout time.Duration `validate:"gt=0"`
	}

	MaxDocumentSize int64 `validate:"gt=0"`

	RollbarToken     string
	SendgridApiKey   string
	defaultFromEmail string
	NotifyEmail      string `validate:"omitempty,email"`
	MetricsAddr      string
}

// NewConfig reads the configuration from the environment, optionally loading
// `config/.env.<env>` first. Environment variables are prefixed by the env name, e.g. `DEV_APIBASEURL`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Agent CRM")
	v.SetDefault("build", "dev")
	v.SetDefault("apiBaseURL", "http://localhost:5000/api")
	v.SetDefault("apiToken", "")
	v.SetDefault("requestTimeout", 30*time.Second)
	v.SetDefault("maxDocumentSize", int64(5<<20)) // 5 MiB
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Agent CRM <noreply@localhost>")
	v.SetDefault("notifyEmail", "")
	v.SetDefault("metricsAddr", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

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

	return configFromViper(env, v)
}

func configFromViper(env string, v *viper.Viper) *Config {
	conf := &Config{
		Env:     env,
		Build:   v.GetString("build"),
		Debug:   v.GetBool("debug"),
		AppName: v.GetString("appName"),

		MaxDocumentSize: v.GetInt64("maxDocumentSize"),

		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		NotifyEmail:      CleanString(v.GetString("notifyEmail"), true /* lower */),
		MetricsAddr:      v.GetString("metricsAddr"),
	}
	conf.API.BaseURL = strings.TrimRight(v.GetString("apiBaseURL"), "/")
	conf.API.Token = v.GetString("apiToken")
	conf.API.Timeout = v.GetDuration("requestTimeout")
	return conf
}

// Validate checks the loaded values.
func (conf *Config) Validate() error {
	return Validate.Struct(conf)
}

// DefaultFromEmail parses the configured sender, falling back to a bare address when it is malformed.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	return *addr
}
