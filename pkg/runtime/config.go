package runtime

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"studybot/pkg/state"
)

type Config struct {
	MewURL      string
	APIBase     string
	AccessToken string
	Proxy       string

	AlertChannelID string
	AlertInterval  time.Duration
	AlertLocation  *time.Location

	DBDriver string
	DBDSN    string

	ViewTimeout   time.Duration
	CommandPrefix string
	HTTPAddr      string
	StateDir      string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

// AIEnabled reports whether an OpenAI key is configured.
func (c Config) AIEnabled() bool { return c.OpenAIKey != "" }

// LoadConfig reads the environment. The access token is always required;
// the alert channel only when requireAlertChannel is set, which the serve
// command does and migrate does not.
func LoadConfig(requireAlertChannel bool) (Config, error) {
	mewURL := strings.TrimRight(strings.TrimSpace(os.Getenv("MEW_URL")), "/")
	if mewURL == "" {
		mewURL = "http://localhost:3000"
	}
	if err := ValidateHTTPURL(mewURL); err != nil {
		return Config{}, fmt.Errorf("invalid MEW_URL %q: %w", mewURL, err)
	}
	apiBase := strings.TrimRight(strings.TrimSpace(os.Getenv("MEW_API_BASE")), "/")
	if apiBase == "" {
		apiBase = mewURL + "/api"
	}

	cfg := Config{
		MewURL:         mewURL,
		APIBase:        apiBase,
		AccessToken:    strings.TrimSpace(os.Getenv("STUDYBOT_ACCESS_TOKEN")),
		Proxy:          strings.TrimSpace(os.Getenv("MEW_API_PROXY")),
		AlertChannelID: strings.TrimSpace(os.Getenv("STUDYBOT_ALERT_CHANNEL_ID")),
		DBDriver:       strings.ToLower(strings.TrimSpace(os.Getenv("STUDYBOT_DB_DRIVER"))),
		DBDSN:          strings.TrimSpace(os.Getenv("STUDYBOT_DB_DSN")),
		CommandPrefix:  os.Getenv("STUDYBOT_COMMAND_PREFIX"),
		HTTPAddr:       strings.TrimSpace(os.Getenv("STUDYBOT_HTTP_ADDR")),
		StateDir:       strings.TrimSpace(os.Getenv("STUDYBOT_STATE_DIR")),
		OpenAIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:  strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenAIModel:    strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
	}
	if cfg.AccessToken == "" {
		return Config{}, fmt.Errorf("STUDYBOT_ACCESS_TOKEN is required")
	}
	if requireAlertChannel && cfg.AlertChannelID == "" {
		return Config{}, fmt.Errorf("STUDYBOT_ALERT_CHANNEL_ID is required")
	}
	if strings.TrimSpace(cfg.CommandPrefix) == "" {
		cfg.CommandPrefix = "$"
	}
	if cfg.StateDir == "" {
		cfg.StateDir = state.BaseDir()
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	if cfg.DBDSN == "" {
		if cfg.DBDriver != "sqlite" {
			return Config{}, fmt.Errorf("STUDYBOT_DB_DSN is required for driver %q", cfg.DBDriver)
		}
		cfg.DBDSN = filepath.Join(cfg.StateDir, "studybot.db")
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	var err error
	if cfg.ViewTimeout, err = secondsEnv("STUDYBOT_VIEW_TIMEOUT_SECONDS", 180); err != nil {
		return Config{}, err
	}
	if cfg.AlertInterval, err = secondsEnv("STUDYBOT_ALERT_INTERVAL_SECONDS", 60); err != nil {
		return Config{}, err
	}

	cfg.AlertLocation = time.Local
	if tz := strings.TrimSpace(os.Getenv("STUDYBOT_ALERT_TZ")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STUDYBOT_ALERT_TZ %q: %w", tz, err)
		}
		cfg.AlertLocation = loc
	}
	return cfg, nil
}

func secondsEnv(key string, def int) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return time.Duration(def) * time.Second, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}

func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
