package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/dronecontrol/pkg/log"
)

const configFlagName = "config"

// WatchFunc receives the reloaded configuration after the config file changed.
type WatchFunc func(v *viper.Viper, e fsnotify.Event)

func addConfigFlag(target *string, fs *pflag.FlagSet) {
	fs.StringVarP(target, configFlagName, "c", "", "Read configuration from the specified file, support JSON, TOML, YAML, HCL, or Java properties formats.")
}

// EnvPrefix returns the environment variable prefix of an application:
// its name upper-cased with dashes turned into underscores.
func EnvPrefix(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

// loadConfig merges flags, environment and the config file into the options.
// Precedence is flag, then environment, then file, then flag default.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := a.viper
	v.SetEnvPrefix(EnvPrefix(a.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+a.name))
		}
		v.AddConfigPath(filepath.Join("/etc", a.name))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if a.options != nil {
		if err := v.Unmarshal(a.options); err != nil {
			return fmt.Errorf("failed to unmarshal configuration: %w", err)
		}
	}

	if a.watch != nil && v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed", "name", e.Name, "op", e.Op.String())
			a.watch(v, e)
		})
		v.WatchConfig()
	}

	return nil
}
