// Package config builds the Viper instance the CLI reads settings from: an
// optional YAML file plus CCNEWS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CCNEWS_STORAGE_PROVIDER.
const EnvPrefix = "CCNEWS"

// New returns a Viper instance reading cfgFile, or searching the default
// locations when cfgFile is empty. A missing file in the default locations is
// not an error; usedFile is empty in that case.
func New(cfgFile string) (v *viper.Viper, usedFile string, err error) {
	v = viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("ccnews")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ccnews/")
		v.AddConfigPath("$HOME/.ccnews")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return v, "", nil
		}
		return nil, "", fmt.Errorf("read config: %w", err)
	}
	return v, v.ConfigFileUsed(), nil
}
