package config

import (
	"os"

	"github.com/infinivision/relfile/constant"
	"github.com/infinivision/relfile/errmsg"
	"github.com/spf13/viper"
)

func DefaultConfig() Config {
	return Config{
		Path:       "relfile.dat",
		RecordSize: 64,
		Records:    128,
		Retries:    constant.DefaultRetries,
		Timeout:    constant.DefaultTimeout,
		Mode:       constant.DefaultMode,
		LogWriter:  os.Stderr,
	}
}

// Load overlays the defaults with the file at path, if any, and with
// RELFILE_* environment variables.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	v.SetEnvPrefix("relfile")
	v.AutomaticEnv()
	v.SetDefault("path", cfg.Path)
	v.SetDefault("record_size", cfg.RecordSize)
	v.SetDefault("records", cfg.Records)
	v.SetDefault("retries", cfg.Retries)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("mode", cfg.Mode)
	if len(path) > 0 {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}
	cfg.Path = v.GetString("path")
	cfg.RecordSize = v.GetInt("record_size")
	cfg.Records = v.GetInt64("records")
	cfg.Retries = v.GetInt("retries")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.Mode = v.GetUint32("mode")
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	switch {
	case len(cfg.Path) == 0:
		return errmsg.Trace(errmsg.InvalidParameter)
	case cfg.RecordSize <= 0 || cfg.RecordSize > constant.MaxRecsize:
		return errmsg.Trace(errmsg.InvalidRecordSize)
	case cfg.Records < 0 || cfg.Retries < 0 || cfg.Timeout < 0:
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	return nil
}
