package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	settingsFileMode = 0o600
	settingsDirMode  = 0o700
)

var ErrSettingsExist = errors.New("settings file already exists")

type fileSchema struct {
	Runner  string        `toml:"runner"`
	Storage storageSchema `toml:"storage"`
	Secrets secretsSchema `toml:"secrets"`
	OpenAI  openAISchema  `toml:"openai"`
	Server  serverSchema  `toml:"server"`
	Log     logSchema     `toml:"log"`
	Prompts promptsSchema `toml:"prompts"`
}

type storageSchema struct {
	DBPath       string `toml:"db_path"`
	MeetingsPath string `toml:"meetings_path"`
}

type secretsSchema struct {
	Dir        string `toml:"dir"`
	PassPrefix string `toml:"pass_prefix,omitempty"`
}

type openAISchema struct {
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

type serverSchema struct {
	Addr string `toml:"addr"`
}

type logSchema struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

type promptsSchema struct {
	System         string            `toml:"system"`
	RoleOutput     string            `toml:"role_output"`
	RoleRepair     string            `toml:"role_repair"`
	RoundSummary   string            `toml:"round_summary"`
	RecorderOutput string            `toml:"recorder_output"`
	Roles          map[string]string `toml:"roles"`
}

func toSchema(s Settings) fileSchema {
	return fileSchema{
		Runner:  s.Runner,
		Storage: storageSchema{DBPath: s.Storage.DBPath, MeetingsPath: s.Storage.MeetingsPath},
		Secrets: secretsSchema{Dir: s.Secrets.Dir, PassPrefix: s.Secrets.PassPrefix},
		OpenAI: openAISchema{
			BaseURL:     s.OpenAI.BaseURL,
			Model:       s.OpenAI.Model,
			Temperature: s.OpenAI.Temperature,
			Timeout:     s.OpenAI.Timeout.String(),
		},
		Server: serverSchema{Addr: s.Server.Addr},
		Log:    logSchema{Level: s.Log.Level, Dir: s.Log.Dir},
		Prompts: promptsSchema{
			System:         s.Prompts.System,
			RoleOutput:     s.Prompts.RoleOutput,
			RoleRepair:     s.Prompts.RoleRepair,
			RoundSummary:   s.Prompts.RoundSummary,
			RecorderOutput: s.Prompts.RecorderOutput,
			Roles:          s.Prompts.Roles,
		},
	}
}

// Encode renders settings as TOML. The API key is never written.
func Encode(s Settings) ([]byte, error) {
	data, err := toml.Marshal(toSchema(s))
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	return data, nil
}

// WriteFile writes settings to path through a temp file. An existing file is
// kept unless overwrite is set.
func WriteFile(path string, s Settings, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrSettingsExist, path)
		}
	}

	data, err := Encode(s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), settingsDirMode); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), ".settings-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tempFile.Chmod(settingsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp settings file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	cleanup = false

	return nil
}
