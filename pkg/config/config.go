// Package config resolves Flora's on-disk locations and runtime settings.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nathfavour/flora/pkg/fallback"
	"github.com/nathfavour/flora/pkg/filter"
	"github.com/nathfavour/flora/pkg/pause"
	"github.com/nathfavour/flora/pkg/skills"
	"github.com/spf13/viper"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// EnvPrefix namespaces environment overrides, e.g. FLORA_WAKE_WORD.
const EnvPrefix = "FLORA"

// dataDirOverride lets tests and --data-dir relocate everything.
var dataDirOverride string

// SetDataDir overrides the data directory. An empty path restores the default.
func SetDataDir(path string) {
	dataDirOverride = path
}

// DataDir returns the Flora data directory (~/.flora), creating it.
func DataDir() string {
	path := dataDirOverride
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".flora")
	}
	_ = os.MkdirAll(path, 0755)
	return path
}

// SkillsDir is where plugin skills are discovered.
func SkillsDir() string {
	return filepath.Join(DataDir(), "skills")
}

func HistoryPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// SecretsPath returns the path to the fallback secrets file
func SecretsPath() string {
	return filepath.Join(DataDir(), "secrets.json")
}

func PIDPath() string {
	return filepath.Join(DataDir(), "flora.pid")
}

func LogPath() string {
	return filepath.Join(DataDir(), "flora.log")
}

// Settings is the resolved runtime configuration.
type Settings struct {
	WakeWord        string
	DirectKeywords  []string
	QuitWords       []string
	SkillsDir       string
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	SkillTimeout    time.Duration
	Fallback        fallback.Config
	ListenCmd       []string
	SpeakCmd        []string
	LogLevel        string
	LogFile         string
	HistoryEnabled  bool
}

// Policy returns the command filter policy for these settings.
func (s Settings) Policy() filter.Policy {
	return filter.Policy{WakeWord: s.WakeWord, DirectKeywords: s.DirectKeywords}
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("wake_word", filter.DefaultWakeWord)
	v.SetDefault("direct_keywords", filter.DefaultDirectKeywords)
	v.SetDefault("quit_words", []string{"quit"})
	v.SetDefault("skills_dir", "")
	v.SetDefault("poll_interval", pause.DefaultPollInterval)
	v.SetDefault("max_poll_interval", 2*time.Second)
	v.SetDefault("skill_timeout", skills.DefaultTimeout)
	v.SetDefault("fallback.backend", fallback.BackendGroq)
	v.SetDefault("fallback.model", "")
	v.SetDefault("fallback.base_url", "")
	v.SetDefault("fallback.timeout", fallback.DefaultTimeout)
	v.SetDefault("fallback.system_prompt", "")
	v.SetDefault("fallback.socket", "")
	v.SetDefault("voice.listen_cmd", "")
	v.SetDefault("voice.speak_cmd", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("history.enabled", true)
}

// BindEnv makes FLORA_* variables override file values, mapping dots and
// dashes to underscores (fallback.base_url -> FLORA_FALLBACK_BASE_URL).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load reads Settings from v. Missing values fall back to defaults.
func Load(v *viper.Viper) Settings {
	s := Settings{
		WakeWord:        strings.TrimSpace(v.GetString("wake_word")),
		DirectKeywords:  v.GetStringSlice("direct_keywords"),
		QuitWords:       v.GetStringSlice("quit_words"),
		SkillsDir:       v.GetString("skills_dir"),
		PollInterval:    v.GetDuration("poll_interval"),
		MaxPollInterval: v.GetDuration("max_poll_interval"),
		SkillTimeout:    v.GetDuration("skill_timeout"),
		Fallback: fallback.Config{
			Backend:      strings.ToLower(v.GetString("fallback.backend")),
			Model:        v.GetString("fallback.model"),
			BaseURL:      v.GetString("fallback.base_url"),
			SystemPrompt: v.GetString("fallback.system_prompt"),
			Socket:       v.GetString("fallback.socket"),
			Timeout:      v.GetDuration("fallback.timeout"),
		},
		ListenCmd:      strings.Fields(v.GetString("voice.listen_cmd")),
		SpeakCmd:       strings.Fields(v.GetString("voice.speak_cmd")),
		LogLevel:       v.GetString("log.level"),
		LogFile:        v.GetString("log.file"),
		HistoryEnabled: v.GetBool("history.enabled"),
	}
	if s.WakeWord == "" {
		s.WakeWord = filter.DefaultWakeWord
	}
	if len(s.DirectKeywords) == 0 {
		s.DirectKeywords = append([]string(nil), filter.DefaultDirectKeywords...)
	}
	if len(s.QuitWords) == 0 {
		s.QuitWords = []string{"quit"}
	}
	if s.SkillsDir == "" {
		s.SkillsDir = SkillsDir()
	}
	if s.LogFile == "" {
		s.LogFile = LogPath()
	}
	return s
}
