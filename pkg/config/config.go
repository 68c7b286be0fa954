package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"llm_dealer/pkg/chat"
	"llm_dealer/pkg/logs"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel           = chat.DefaultModel
	DefaultEndpoint        = chat.DefaultEndpoint
	DefaultTimeout         = chat.DefaultTimeout
	DefaultInstructionFile = "instruction.md"
	DefaultSettingsFile    = "llm_dealer.yml"
)

var (
	ErrMissingAPIKey      = errors.New("OPENAI_API_KEY is not set")
	ErrMissingInstruction = errors.New("instruction file could not be read")
)

// Config is loaded once at startup and read-only afterwards.
type Config struct {
	APIKey          string
	Instructions    string
	InstructionFile string
	Model           string
	Endpoint        string
	Timeout         time.Duration
	Log             logs.Config
}

type settings struct {
	Model           string         `yaml:"model"`
	Endpoint        string         `yaml:"endpoint"`
	Timeout         *time.Duration `yaml:"timeout"`
	InstructionFile string         `yaml:"instruction_file"`
	Log             logs.Config    `yaml:"log"`
}

// Options come from command-line flags and win over every other source.
type Options struct {
	SettingsFile    string
	InstructionFile string
	LogFile         string
}

// Load merges defaults, the optional settings file, the environment and opts.
func Load(opts Options) (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Model:           DefaultModel,
		Endpoint:        DefaultEndpoint,
		Timeout:         DefaultTimeout,
		InstructionFile: DefaultInstructionFile,
	}

	if err := cfg.applySettings(opts.SettingsFile); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if opts.InstructionFile != "" {
		cfg.InstructionFile = opts.InstructionFile
	}
	if opts.LogFile != "" {
		cfg.Log.Filename = opts.LogFile
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	content, err := os.ReadFile(cfg.InstructionFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingInstruction, cfg.InstructionFile, err)
	}
	cfg.Instructions = string(content)

	return cfg, nil
}

// applySettings reads the YAML settings file. Only an explicitly named file
// is required to exist.
func (c *Config) applySettings(path string) error {
	required := path != ""
	if path == "" {
		path = DefaultSettingsFile
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var s settings
	if err := yaml.Unmarshal(content, &s); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if s.Model != "" {
		c.Model = s.Model
	}
	if s.Endpoint != "" {
		c.Endpoint = s.Endpoint
	}
	if s.Timeout != nil {
		c.Timeout = *s.Timeout
	}
	if s.InstructionFile != "" {
		c.InstructionFile = s.InstructionFile
	}
	c.Log = s.Log
	return nil
}

func (c *Config) applyEnv() error {
	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.Model = model
	}
	if endpoint := os.Getenv("LLM_ENDPOINT"); endpoint != "" {
		c.Endpoint = endpoint
	}
	if timeout := os.Getenv("LLM_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid LLM_TIMEOUT %q: %w", timeout, err)
		}
		c.Timeout = d
	}
	return nil
}
