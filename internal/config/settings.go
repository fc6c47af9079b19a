package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yoke233/metting/internal/domain"
)

const (
	configName = "settings"
	configType = "toml"
	envPrefix  = "MEETING"
	homeEnv    = "MEETING_HOME"
	homeDir    = ".meeting"

	RunnerStub   = "stub"
	RunnerOpenAI = "openai"
)

var ErrNoConfigFile = errors.New("no settings file to watch")

type Settings struct {
	Home    string         `mapstructure:"home"`
	Runner  string         `mapstructure:"runner"`
	Storage Storage        `mapstructure:"storage"`
	Secrets Secrets        `mapstructure:"secrets"`
	OpenAI  OpenAI         `mapstructure:"openai"`
	Server  Server         `mapstructure:"server"`
	Log     Log            `mapstructure:"log"`
	Prompts domain.Prompts `mapstructure:"prompts"`
}

type Storage struct {
	DBPath       string `mapstructure:"db_path"`
	MeetingsPath string `mapstructure:"meetings_path"`
}

type Secrets struct {
	Dir string `mapstructure:"dir"`

	// PassPrefix is the pass(1) directory holding meeting entries.
	PassPrefix string `mapstructure:"pass_prefix"`
}

type OpenAI struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

// Configure points v at settings.toml under the meeting home and registers
// defaults and environment bindings. It does not read the file.
func Configure(v *viper.Viper) (string, error) {
	home, err := resolveHome()
	if err != nil {
		return "", err
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(home)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"openai.api_key":  {"OPENAI_API_KEY", "MEETING_OPENAI_API_KEY"},
		"openai.base_url": {"OPENAI_BASE_URL", "OPENAI_API_BASE", "MEETING_OPENAI_BASE_URL"},
		"openai.model":    {"OPENAI_CHAT_MODEL_ID", "OPENAI_MODEL_ID", "MEETING_OPENAI_MODEL_ID", "MEETING_OPENAI_MODEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return "", fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	setDefaults(v, home)

	return home, nil
}

func setDefaults(v *viper.Viper, home string) {
	defaults := Defaults(home)

	v.SetDefault("home", defaults.Home)
	v.SetDefault("runner", defaults.Runner)
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.meetings_path", "")
	v.SetDefault("secrets.dir", "")
	v.SetDefault("secrets.pass_prefix", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", defaults.OpenAI.BaseURL)
	v.SetDefault("openai.model", defaults.OpenAI.Model)
	v.SetDefault("openai.temperature", defaults.OpenAI.Temperature)
	v.SetDefault("openai.timeout", defaults.OpenAI.Timeout)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.dir", "")
	v.SetDefault("prompts.system", defaults.Prompts.System)
	v.SetDefault("prompts.role_output", defaults.Prompts.RoleOutput)
	v.SetDefault("prompts.role_repair", defaults.Prompts.RoleRepair)
	v.SetDefault("prompts.round_summary", defaults.Prompts.RoundSummary)
	v.SetDefault("prompts.recorder_output", defaults.Prompts.RecorderOutput)
	v.SetDefault("prompts.roles", defaults.Prompts.Roles)
}

// Load configures v, reads settings.toml when present and decodes the
// result. A missing file is not an error.
func Load(v *viper.Viper) (Settings, error) {
	if v == nil {
		v = viper.New()
	}
	if _, err := Configure(v); err != nil {
		return Settings{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings file: %w", err)
		}
	}

	return Decode(v)
}

func Decode(v *viper.Viper) (Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	return settings.withDerivedPaths(), nil
}

func (s Settings) withDerivedPaths() Settings {
	if s.Home == "" {
		if home, err := resolveHome(); err == nil {
			s.Home = home
		}
	}
	if s.Storage.DBPath == "" {
		s.Storage.DBPath = filepath.Join(s.Home, "meeting.db")
	}
	if s.Storage.MeetingsPath == "" {
		s.Storage.MeetingsPath = filepath.Join(s.Home, "meetings.toml")
	}
	if s.Secrets.Dir == "" {
		s.Secrets.Dir = filepath.Join(s.Home, "secrets")
	}
	s.Runner = strings.ToLower(strings.TrimSpace(s.Runner))
	s.Log.Level = strings.ToUpper(strings.TrimSpace(s.Log.Level))

	return s
}

// Redacted hides the API key for display.
func (s Settings) Redacted() Settings {
	if s.OpenAI.APIKey != "" {
		s.OpenAI.APIKey = "********"
	}

	return s
}

// Watch reloads the settings whenever the loaded file changes.
func Watch(v *viper.Viper, onChange func(Settings, error)) error {
	if v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		onChange(Decode(v))
	})
	v.WatchConfig()

	return nil
}

// Holder shares the current settings between a watcher and its readers.
type Holder struct {
	current atomic.Pointer[Settings]
}

func NewHolder(settings Settings) *Holder {
	holder := &Holder{}
	holder.Set(settings)

	return holder
}

func (h *Holder) Get() Settings {
	settings := h.current.Load()
	if settings == nil {
		return Settings{}
	}

	return *settings
}

func (h *Holder) Set(settings Settings) {
	settings.Prompts = settings.Prompts.Clone()
	h.current.Store(&settings)
}

func resolveHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv(homeEnv)); home != "" {
		return filepath.Clean(home), nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(userHome, homeDir), nil
}

func ConfigPath(home string) string {
	return filepath.Join(home, configName+"."+configType)
}
