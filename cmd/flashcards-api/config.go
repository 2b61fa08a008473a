package main

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-flashcards-auth"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FLASHCARDS"

type appConfig struct {
	Addr        string
	Debug       bool
	LogLevel    string
	CORSOrigins string
	Database    auth.DatabaseOptions
	Auth        auth.Options
}

func newViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("addr", ":8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", auth.DriverSQLite)
	v.SetDefault("db_dsn", "file:flashcards.db?cache=shared")
	v.SetDefault("token_expiration", auth.DefaultTokenTTL)
	v.SetDefault("hasher_algorithm", string(auth.AlgorithmBcrypt))
	v.SetDefault("bcrypt_cost", auth.DefaultBcryptCost)
	v.SetDefault("hasher_max_concurrent", 8)
	v.SetDefault("hasher_acquire_timeout", 5*time.Second)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read config file").
				WithMetadata(map[string]any{"file": configFile})
		}
	}

	return v, nil
}

func loadConfig(v *viper.Viper) (appConfig, error) {
	cfg := appConfig{
		Addr:        v.GetString("addr"),
		Debug:       v.GetBool("debug"),
		LogLevel:    v.GetString("log_level"),
		CORSOrigins: v.GetString("cors_origins"),
		Database: auth.DatabaseOptions{
			Driver: v.GetString("db_driver"),
			DSN:    v.GetString("db_dsn"),
		},
		Auth: auth.Options{
			SigningKey:      v.GetString("secret_key"),
			TokenExpiration: v.GetDuration("token_expiration"),
			Issuer:          v.GetString("issuer"),
			Hasher: auth.HasherOptions{
				Algorithm:      auth.Algorithm(v.GetString("hasher_algorithm")),
				BcryptCost:     v.GetInt("bcrypt_cost"),
				MaxConcurrent:  v.GetInt("hasher_max_concurrent"),
				AcquireTimeout: v.GetDuration("hasher_acquire_timeout"),
			},
		},
	}

	if cfg.Auth.SigningKey == "" {
		return cfg, errors.New("secret key is required, set "+envPrefix+"_SECRET_KEY", errors.CategoryBadInput)
	}

	return cfg, nil
}
