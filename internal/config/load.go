package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read by Load. Nested keys are
// separated by a double underscore: RESURFACE_SCHEDULER__ALGORITHM=sm2.
const EnvPrefix = "RESURFACE_"

// DefaultFile is read when --config is not given and the file exists.
const DefaultFile = "resurface.yaml"

// ErrInvalid wraps validation failures of a loaded configuration.
var ErrInvalid = errors.New("invalid configuration")

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"db":         "database.path",
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
	"algorithm":  "scheduler.algorithm",
	"limit":      "session.reviews_per_session",
	"policy":     "session.policy",
	"repos-dir":  "sync.repos_dir",
}

// RegisterFlags adds the configuration flags to fs, using Default() values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML configuration file (default "+DefaultFile+" if present)")
	fs.String("db", d.Database.Path, "Path to the SQLite database file")
	fs.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "Log format: text or json")
	fs.String("addr", d.Server.Addr, "Listen address for the review server")
	fs.String("algorithm", d.Scheduler.Algorithm, "Scheduling algorithm: sm2 or fsrs")
	fs.Int("limit", d.Session.ReviewsPerSession, "Maximum reviews per session, 0 for no limit")
	fs.String("policy", d.Session.Policy, "Due item selection: first or soonest")
	fs.String("repos-dir", d.Sync.ReposDir, "Directory git sources are cloned into")
}

// Load layers defaults, the YAML file, RESURFACE_ environment variables and
// explicitly set flags, in increasing precedence, and validates the result.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, explicit := DefaultFile, false
	if fs != nil {
		if p, _ := fs.GetString("config"); p != "" {
			path, explicit = p, true
		}
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// envKey turns RESURFACE_SCHEDULER__SM2__INTERVAL_MODIFIER into
// scheduler.sm2.interval_modifier.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
