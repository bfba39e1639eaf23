package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kelmah/sessionkit/logger"
)

// Environment variables read by the loader.
const (
	// EnvPrefix prefixes every configuration variable. KELMAH_API_TIMEOUT
	// sets api.timeout.
	EnvPrefix = "KELMAH"
	// ConfigPathEnv points at a config file when no path is given.
	ConfigPathEnv = "KELMAH_CONFIG"
)

// userDirName is the directory under the user config dir holding
// config.yml and .env.
const userDirName = "kelmah"

// FileSystem abstracts the file lookups of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	UserConfigDir() (string, error)
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

func (RealFileSystem) UserConfigDir() (string, error) { return os.UserConfigDir() }

// Resolver finds the config and env files of a binary.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles keeps explicit paths and searches for the rest. The working
// directory is searched before the user config dir:
//
//	./<service>.yml, ./config.yml, <user config dir>/kelmah/config.yml
//	./.env.<service>, ./.env, <user config dir>/kelmah/.env
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(
			[]string{serviceName + ".yml", "config.yml"},
			"config.yml",
		)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(
			[]string{".env." + serviceName, ".env"},
			".env",
		)
	}
	return resolved
}

func (r *Resolver) first(local []string, userFile string) string {
	candidates := make([]string, 0, len(local)+1)
	for _, name := range local {
		candidates = append(candidates, "./"+name)
	}
	if dir, err := r.FileSystem.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, userDirName, userFile))
	}
	for _, path := range candidates {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig decodes the configuration of serviceName into cfg, which must
// be a pointer to a struct with mapstructure tags.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	_, err := Load(serviceName, cfg, opts...)
	return err
}

// Load is LoadConfig that also reports which files were used. Without
// WithConfigFile the path in KELMAH_CONFIG is used before searching.
func Load(serviceName string, cfg any, opts ...LoaderOption) (ResolvedFiles, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}
	if lc.ConfigFile == "" {
		lc.ConfigFile = os.Getenv(ConfigPathEnv)
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)
	return files, decode(serviceName, cfg, files, lc.FileSystem)
}

func decode(serviceName string, cfg any, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()
	log := logger.Get("config")

	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
		log.Debug("config file loaded", logger.Fields("file", files.ConfigFile))
	}

	// godotenv never overrides variables that are already set, so the
	// process environment keeps precedence over the .env file.
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load .env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	if err := bindEnv(v, reflect.TypeOf(cfg)); err != nil {
		return err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config for %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv binds every leaf key of t to its environment variables.
func bindEnv(v *viper.Viper, t reflect.Type) error {
	for _, key := range configKeys(t, "") {
		if err := v.BindEnv(append([]string{key}, envNames(key)...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// envNames lists the variables for a key, the first set one wins.
// api.timeout reads KELMAH_API_TIMEOUT, then API_TIMEOUT. Top-level keys
// only read the prefixed name so variables like DEBUG or VERSION from the
// surrounding shell are never picked up.
func envNames(key string) []string {
	plain := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	names := []string{EnvPrefix + "_" + plain}
	if strings.Contains(key, ".") {
		names = append(names, plain)
	}
	return names
}

var timeType = reflect.TypeOf(time.Time{})

// configKeys returns the dotted mapstructure keys of the leaves of t.
// Squashed structs contribute their keys at the parent level. Slices of
// structs are only settable from the config file.
func configKeys(t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, configKeys(f.Type, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft.Kind() == reflect.Struct && ft != timeType:
			keys = append(keys, configKeys(ft, key)...)
		case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Struct:
		default:
			keys = append(keys, key)
		}
	}
	return keys
}
