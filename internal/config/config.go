package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/whydoesntmycode/blog/internal/feed"
	"github.com/whydoesntmycode/blog/internal/model"
	"github.com/whydoesntmycode/blog/internal/render"
	"github.com/whydoesntmycode/blog/internal/theme"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	Theme   ThemeConfig   `yaml:"theme"`
	Content ContentConfig `yaml:"content"`
	Feed    FeedConfig    `yaml:"feed"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
	// Format is "console" for humans or "json" for log collectors.
	Format string `yaml:"format" default:"console"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Why Doesn't My Code Work?"`
	Description string `yaml:"description" default:"Notes from someone whose code does not work"`
	BaseURL     string `yaml:"base_url" default:"https://whydoesntmycode.work"`
	Author      string `yaml:"author" default:"Freyja"`
	Email       string `yaml:"email" default:"rncwnd@whydoesntmycode.work"`
}

// URL joins path onto the site base URL.
func (c *SiteConfig) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"3000"`
	// When set, the server listens on this unix socket instead of host:port.
	SocketPath      string `yaml:"socket_path" default:""`
	ShutdownTimeout string `yaml:"shutdown_timeout" default:"10s"`
}

func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// GracePeriod is the parsed shutdown timeout.
func (c *ServerConfig) GracePeriod() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

type ThemeConfig struct {
	Syntax      string `yaml:"syntax" default:"gruvbox"`
	LineNumbers bool   `yaml:"line_numbers" default:"false"`
}

type ContentConfig struct {
	PostsDir   string   `yaml:"posts_dir" default:"posts"`
	Extensions []string `yaml:"extensions" default:".md,.markdown"`
	Renderer   string   `yaml:"renderer" default:"classic"`
	// Debug shows private and future-dated posts.
	Debug bool `yaml:"debug" default:"false"`
	// Watch reloads posts whenever the posts directory changes.
	Watch   bool `yaml:"watch" default:"false"`
	Workers int  `yaml:"workers" default:"0"`
}

type FeedConfig struct {
	Title            string `yaml:"title" default:""`
	ID               string `yaml:"id" default:""`
	SelfLink         string `yaml:"self_link" default:""`
	PostBaseURL      string `yaml:"post_base_url" default:""`
	Generator        string `yaml:"generator" default:"whydoesntmycode"`
	GeneratorURI     string `yaml:"generator_uri" default:""`
	GeneratorVersion string `yaml:"generator_version" default:"3.0.0"`
}

type AdminConfig struct {
	// Token is usually set as ${ADMIN_TOKEN}. When empty a token is generated at start-up.
	Token     string `yaml:"token" default:""`
	TokenFile string `yaml:"token_file" default:""`
}

// FeedMeta builds the feed header, falling back to site settings for unset fields.
func (c *Config) FeedMeta() feed.Meta {
	meta := feed.Meta{
		ID:               c.Feed.ID,
		Title:            c.Feed.Title,
		AuthorName:       c.Site.Author,
		AuthorEmail:      c.Site.Email,
		SelfLink:         c.Feed.SelfLink,
		PostBaseURL:      c.Feed.PostBaseURL,
		Generator:        c.Feed.Generator,
		GeneratorURI:     c.Feed.GeneratorURI,
		GeneratorVersion: c.Feed.GeneratorVersion,
	}

	if meta.ID == "" {
		meta.ID = c.Site.URL("")
	}
	if meta.Title == "" {
		meta.Title = c.Site.Name
	}
	if meta.SelfLink == "" {
		meta.SelfLink = c.Site.URL("/feeds/atom.xml")
	}
	if meta.PostBaseURL == "" {
		meta.PostBaseURL = c.Site.URL(model.PostsURLPath)
	}
	if meta.GeneratorURI == "" {
		meta.GeneratorURI = c.Site.URL("")
	}

	return meta
}

var (
	portRegex    = regexp.MustCompile(`^\d{1,5}$`)
	baseURLRegex = regexp.MustCompile(`^https?://[^\s]+$`)
	extRegex     = regexp.MustCompile(`^\.[^./\\]+$`)

	logLevels = []interface{}{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
)

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Site),
		validation.Field(&c.Server),
		validation.Field(&c.Theme),
		validation.Field(&c.Content),
		validation.Field(&c.Logging),
	)
}

func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.BaseURL, validation.Required, validation.Match(baseURLRegex)),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.When(c.SocketPath == "",
			validation.Required, validation.Match(portRegex))),
		validation.Field(&c.ShutdownTimeout, validation.By(isDuration)),
	)
}

func (c ThemeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Syntax, validation.Required, validation.By(isSyntaxTheme)),
	)
}

func (c ContentConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PostsDir, validation.Required),
		validation.Field(&c.Renderer, validation.Required, validation.In(render.EngineClassic, render.EngineMmark)),
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.Extensions, validation.Each(validation.Required, validation.Match(extRegex))),
	)
}

func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In(logLevels...)),
		validation.Field(&c.Format, validation.Required, validation.In("console", "json")),
	)
}

func isDuration(value interface{}) error {
	s, _ := value.(string)
	if _, err := time.ParseDuration(s); err != nil {
		return errors.New("must be a duration such as 10s")
	}
	return nil
}

func isSyntaxTheme(value interface{}) error {
	s, _ := value.(string)
	if !theme.IsSyntaxTheme(s) {
		return fmt.Errorf("unknown syntax theme %q", s)
	}
	return nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads the YAML file at path on top of the defaults. ${VAR} references are
// expanded from the environment. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
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

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
