package app

import (
	"github.com/spf13/pflag"

	"github.com/nhle/tripkeeper/internal/model"
)

// RegisterFlags adds the flags shared by every command.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", model.DefaultConfigPath(), "path to the configuration file")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("private-root", "", "override the per-process storage root")
	fs.String("app-group", "", "override the shared container identifier")
}

// LoadConfig reads the configuration file named by --config. Flags that
// were set on the command line take precedence over the file and the
// environment.
func LoadConfig(fs *pflag.FlagSet) (*model.AppConfig, error) {
	v := model.NewViper()
	for key, flag := range map[string]string{
		"log.level":            "log-level",
		"storage.private_root": "private-root",
		"storage.app_group":    "app-group",
	} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	path, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}
	return model.LoadConfigFrom(v, path)
}
