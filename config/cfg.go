package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"epr/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	DocumentConfig struct {
		// Per entry decompression limit, guards against zip bombs.
		MaxResourceSize int64 `yaml:"max_resource_size" validate:"min=1024"`
	}

	SanitizeConfig struct {
		FetchTimeout      time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
		FetchConcurrency  int           `yaml:"fetch_concurrency" validate:"min=1,max=64"`
		AllowRemote       bool          `yaml:"allow_remote"`
		UserAgent         string        `yaml:"user_agent" validate:"required_if=AllowRemote true"`
		MaxStylesheetSize int64         `yaml:"max_stylesheet_size" validate:"min=1024"`
	}

	SettingsConfig struct {
		FontSize   int              `yaml:"font_size" validate:"min=14,max=32"`
		Theme      common.Theme     `yaml:"theme"`
		LineHeight float64          `yaml:"line_height" validate:"gte=1.2,lte=2.4"`
		FontFamily string           `yaml:"font_family" validate:"required"`
		Align      common.TextAlign `yaml:"align"`
	}

	ReaderConfig struct {
		Defaults     SettingsConfig `yaml:"defaults"`
		InfoTemplate string         `yaml:"info_template"`
	}

	StorageConfig struct {
		Path        string        `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
		BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Sanitize  SanitizeConfig `yaml:"sanitize"`
		Reader    ReaderConfig   `yaml:"reader"`
		Storage   StorageConfig  `yaml:"storage"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	InfoTemplateFieldName TemplateFieldName = "info_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(InfoTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
