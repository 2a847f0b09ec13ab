package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yabood/yabood/internal/apperr"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure.
// It is built once at startup and passed to every component that needs it.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	GitHub   GitHubConfig   `yaml:"github"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Auth     AuthConfig     `yaml:"auth"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Search   SearchConfig   `yaml:"search"`
	Export   ExportConfig   `yaml:"export"`
	Preview  PreviewConfig  `yaml:"preview"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info" env:"LOG_LEVEL"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Yabood"`
	URL         string `yaml:"url" default:"https://www.yabood.com" env:"SITE_URL"`
	Description string `yaml:"description" default:"A personal blog about technology, development, and creativity"`
	Author      string `yaml:"author" default:"Yousif Abood"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0" env:"HOST"`
	Port string `yaml:"port" default:"4321" env:"PORT"`
	// Dev includes draft entries in the search export.
	Dev bool `yaml:"dev" default:"false" env:"DEV"`
	// ContentDir serves published content from a local checkout when the
	// GitHub repository is not configured.
	ContentDir string `yaml:"content_dir" env:"CONTENT_DIR"`
}

// GitHubConfig points at the repository holding the site content.
type GitHubConfig struct {
	Token       string `yaml:"token" env:"GITHUB_TOKEN"`
	Owner       string `yaml:"owner" env:"GITHUB_OWNER"`
	Repo        string `yaml:"repo" env:"GITHUB_REPO"`
	Trunk       string `yaml:"trunk" default:"main" env:"GITHUB_TRUNK"`
	ContentRoot string `yaml:"content_root" default:"src/content"`
	BaseURL     string `yaml:"base_url" env:"GITHUB_API_URL"`
}

// Validate reports a configuration error when the credentials needed to talk
// to the host are missing.
func (g GitHubConfig) Validate() error {
	if g.Token == "" || g.Owner == "" || g.Repo == "" {
		return apperr.Configuration(ErrGitHubConfigMissing)
	}
	return nil
}

type DeployConfig struct {
	ProjectName        string `yaml:"project_name" default:"yabood" env:"VERCEL_PROJECT_NAME"`
	PreviewURLTemplate string `yaml:"preview_url_template" default:"https://{project}-{branch}.vercel.app"`
}

type AuthConfig struct {
	Enabled          bool          `yaml:"enabled" default:"true" env:"AUTH_ENABLED"`
	Secret           string        `yaml:"secret" env:"AUTH_SECRET"`
	TokenTTL         time.Duration `yaml:"token_ttl" default:"24h"`
	CookieName       string        `yaml:"cookie_name" default:"auth_token"`
	SessionSecret    string        `yaml:"session_secret" env:"SESSION_SECRET"`
	AdminEmailDomain string        `yaml:"admin_email_domain" default:"yabood.com" env:"ADMIN_EMAIL_DOMAIN"`
	CallbackBaseURL  string        `yaml:"callback_base_url" env:"AUTH_CALLBACK_BASE_URL"`

	GitHubClientID     string `yaml:"github_client_id" env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `yaml:"github_client_secret" env:"GITHUB_CLIENT_SECRET"`
	GoogleClientID     string `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`

	ClerkSecretKey    string `yaml:"clerk_secret_key" env:"CLERK_SECRET_KEY"`
	OperatorPublicKey string `yaml:"operator_public_key" env:"ED25519_PUBKEY"`
}

type ProfilesConfig struct {
	Backend    string `yaml:"backend" default:"sqlite" env:"PROFILES_BACKEND"`
	SQLitePath string `yaml:"sqlite_path" default:"./profiles.db"`
	RedisURL   string `yaml:"redis_url" env:"REDIS_URL"`
	KeyPrefix  string `yaml:"key_prefix" default:"userprofile:"`
}

type SearchConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
}

type ExportConfig struct {
	Bucket          string `yaml:"bucket" env:"EXPORT_S3_BUCKET"`
	Key             string `yaml:"key" default:"search-data.json"`
	Endpoint        string `yaml:"endpoint" env:"EXPORT_S3_ENDPOINT"`
	Region          string `yaml:"region" default:"auto"`
	AccessKeyID     string `yaml:"access_key_id" env:"EXPORT_S3_ACCESS_KEY_ID"`
	AccessKeySecret string `yaml:"access_key_secret" env:"EXPORT_S3_ACCESS_KEY_SECRET"`
	// Compress names the upload codec: "zstd", "gzip" or empty for none.
	Compress        string `yaml:"compress" env:"EXPORT_COMPRESS"`
}

type PreviewConfig struct {
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(config, os.LookupEnv)
	return config, nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	walkFields(config, "default", func(field reflect.Value, name, value string) {
		setField(field, name, value)
	})
}

// ApplyEnv overrides fields carrying an `env` tag with values found by lookup.
func ApplyEnv(config interface{}, lookup func(string) (string, bool)) {
	applyEnv(config, lookup)
}

func applyEnv(config interface{}, lookup func(string) (string, bool)) {
	walkFields(config, "env", func(field reflect.Value, name, key string) {
		if value, ok := lookup(key); ok && value != "" {
			// Env values always win, so clear slices before setting.
			if field.Kind() == reflect.Slice {
				field.Set(reflect.Zero(field.Type()))
			}
			setField(field, name, value)
		}
	})
}

func walkFields(config interface{}, tag string, fn func(field reflect.Value, name, tagValue string)) {
	if config == nil {
		return
	}

	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively walk nested structs
		if field.Kind() == reflect.Struct {
			walkFields(field.Addr().Interface(), tag, fn)
			continue
		}

		tagValue := fieldType.Tag.Get(tag)
		if tagValue == "" {
			continue
		}

		fn(field, fieldType.Name, tagValue)
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

func setField(field reflect.Value, name, value string) {
	if field.Type() == durationType {
		if d, err := time.ParseDuration(value); err == nil {
			field.SetInt(int64(d))
		}
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if val, err := strconv.ParseBool(value); err == nil {
			field.SetBool(val)
		}
	case reflect.Int:
		if val, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(val)
		}
	case reflect.Float64:
		if val, err := strconv.ParseFloat(value, 64); err == nil {
			field.SetFloat(val)
		}
	case reflect.Slice:
		if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
			for j, part := range parts {
				slice.Index(j).SetString(strings.TrimSpace(part))
			}
			field.Set(slice)
		}
	default:
		configLogger.Warn().
			Str("field_name", name).
			Str("field_type", field.Kind().String()).
			Msg("Unsupported field type for tagged value")
	}
}
