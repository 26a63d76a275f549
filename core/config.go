package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug           bool
		TestMode        bool
		Env             string // DEV (default), TEST, QA, PROD
		Build           string
		AppName         string
		SecretKey       string
		FrontendBaseURL string
		WorkDir         string

		DefaultFromEmailName    string
		DefaultFromEmailAddress string
		SendgridApiKey          string
		RollbarToken            string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Meeting  MeetingConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// StorageConfig configures the object store backing resource uploads.
	StorageConfig struct {
		RootDir       string
		PublicBaseURL string
	}

	// MeetingConfig holds the embedded widget domain and the OAuth credentials
	// for the external meeting API.
	MeetingConfig struct {
		WidgetDomain string
		ClientID     string
		ClientSecret string
		RedirectURI  string
		AuthBaseURL  string
		APIBaseURL   string
	}
)

func (c ServerConfig) Address() string   { return net.JoinHostPort(c.Host, c.Port) }
func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromEmailName, Address: c.DefaultFromEmailAddress}
}

// NewConfig loads configuration from the environment (and an optional .env file).
// Missing required settings are a fatal startup error.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Darasa")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3lc0me-2-dar@sa*ch4nge-me-1n-pr0d!")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmailName", "Darasa")
	conf.SetDefault("defaultFromEmailAddress", "noreply@localhost")
	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("debugHost", "0.0.0.0:4000")
	conf.SetDefault("shutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "darasa")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("storageRootDir", filepath.Join(Getwd(), "uploads"))
	conf.SetDefault("storagePublicBaseURL", "http://localhost:8000/media")
	conf.SetDefault("meetingWidgetDomain", "meet.jit.si")
	conf.SetDefault("meetingAuthBaseURL", "https://zoom.us/oauth")
	conf.SetDefault("meetingAPIBaseURL", "https://api.zoom.us/v2")

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetDefault("env", env)
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		Env:             conf.GetString("env"),
		Build:           conf.GetString("build"),
		AppName:         conf.GetString("appName"),
		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: conf.GetString("frontendBaseURL"),
		WorkDir:         Getwd(),

		DefaultFromEmailName:    conf.GetString("defaultFromEmailName"),
		DefaultFromEmailAddress: conf.GetString("defaultFromEmailAddress"),
		SendgridApiKey:          conf.GetString("sendgridApiKey"),
		RollbarToken:            conf.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Port:                      conf.GetString("serverPort"),
			DebugHost:                 conf.GetString("debugHost"),
			ShutdownTimeout:           conf.GetDuration("shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Storage: StorageConfig{
			RootDir:       conf.GetString("storageRootDir"),
			PublicBaseURL: conf.GetString("storagePublicBaseURL"),
		},
		Meeting: MeetingConfig{
			WidgetDomain: conf.GetString("meetingWidgetDomain"),
			ClientID:     conf.GetString("meetingClientID"),
			ClientSecret: conf.GetString("meetingClientSecret"),
			RedirectURI:  conf.GetString("meetingRedirectURI"),
			AuthBaseURL:  conf.GetString("meetingAuthBaseURL"),
			APIBaseURL:   conf.GetString("meetingAPIBaseURL"),
		},
	}
	c.check()
	return c
}

// check fails fast on missing required settings instead of deferring to first use.
// Meeting OAuth credentials are only enforced outside DEV/TEST.
func (c *Config) check() {
	if c.Debug || c.TestMode {
		return
	}

	var missing []string
	if c.SecretKey == "" {
		missing = append(missing, "secretKey")
	}
	if c.Database.User == "" {
		missing = append(missing, "dbUser")
	}
	if c.Database.Password == "" {
		missing = append(missing, "dbPassword")
	}
	if c.Meeting.ClientID == "" {
		missing = append(missing, "meetingClientID")
	}
	if c.Meeting.ClientSecret == "" {
		missing = append(missing, "meetingClientSecret")
	}
	if c.Meeting.RedirectURI == "" {
		missing = append(missing, "meetingRedirectURI")
	}
	if len(missing) > 0 {
		log.Fatalf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
}
