package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/steosofficial/steoslattice/lattice"
)

// --- ПЕРЕМЕННЫЕ ОКРУЖЕНИЯ ---

const (
	// EnvConfigPath - путь к YAML-конфигурации, если LoadConfig вызван без пути.
	EnvConfigPath = "STEOSLATTICE_CONFIG"
	// EnvDicDir - переопределяет каталог словаря из конфигурации.
	EnvDicDir = "STEOSLATTICE_DICDIR"
)

const (
	DefaultMaxGroupingSize = 24
	DefaultMaxSentenceSize = 8192 * 640
	DefaultBOSFeature      = "BOS/EOS,*,*,*,*,*,*,*,*"
)

// Config - настройки модели и теггера.
type Config struct {
	DicDir          string   `yaml:"dicdir"`
	UserDic         []string `yaml:"userdic"`
	Theta           float64  `yaml:"theta"`
	MaxGroupingSize int      `yaml:"max-grouping-size"`
	BOSFeature      string   `yaml:"bos-feature"`
	UnkFeature      string   `yaml:"unk-feature"`
	MaxSentenceSize int      `yaml:"max-sentence-size"`
	AllMorphs       bool     `yaml:"all-morphs"`
	Partial         bool     `yaml:"partial"`
	Marginal        bool     `yaml:"marginal"`
	LogLevel        string   `yaml:"log-level"`
}

// DefaultConfig возвращает настройки по умолчанию. Каталог словаря берется из EnvDicDir.
func DefaultConfig() Config {
	return Config{
		DicDir:          os.Getenv(EnvDicDir),
		Theta:           lattice.DefaultTheta,
		MaxGroupingSize: DefaultMaxGroupingSize,
		BOSFeature:      DefaultBOSFeature,
		MaxSentenceSize: DefaultMaxSentenceSize,
		LogLevel:        "info",
	}
}

// LoadConfig читает YAML-конфигурацию. Пустой path заменяется значением EnvConfigPath,
// а если нет и его, возвращаются настройки по умолчанию. Незаданные ключи
// сохраняют значения по умолчанию, EnvDicDir имеет приоритет над файлом.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	cfg := DefaultConfig()
	if path != "" {
		yml, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(yml))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
		}
	}
	if dir := os.Getenv(EnvDicDir); dir != "" {
		cfg.DicDir = dir
	}
	return cfg, nil
}

// Validate проверяет значения настроек.
func (c *Config) Validate() error {
	switch {
	case c.DicDir == "":
		return fmt.Errorf("%w: не задан dicdir (или %s)", ErrInvalidConfig, EnvDicDir)
	case c.Theta <= 0:
		return fmt.Errorf("%w: theta должна быть положительной: %v", ErrInvalidConfig, c.Theta)
	case c.MaxGroupingSize <= 0:
		return fmt.Errorf("%w: max-grouping-size должен быть положительным: %d", ErrInvalidConfig, c.MaxGroupingSize)
	case c.MaxSentenceSize <= 0:
		return fmt.Errorf("%w: max-sentence-size должен быть положительным: %d", ErrInvalidConfig, c.MaxSentenceSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Request возвращает режим разбора, заданный флагами конфигурации.
func (c *Config) Request() lattice.Request {
	r := lattice.OneBest
	if c.AllMorphs {
		r |= lattice.AllMorphs
	}
	if c.Partial {
		r |= lattice.Partial
	}
	if c.Marginal {
		r |= lattice.MarginalProb
	}
	return r
}
