package config

import (
	"errors"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Reader interface {
	Read() (*Config, error)
}

// EnvReader reads the configuration from the environment. Files listed in
// DotEnvFiles are loaded first without overriding variables already set.
type EnvReader struct {
	DotEnvFiles []string
}

func NewEnvReader(dotEnvFiles ...string) EnvReader {
	return EnvReader{DotEnvFiles: dotEnvFiles}
}

func (r EnvReader) Read() (*Config, error) {
	for _, name := range r.DotEnvFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := new(Config)
	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return nil, errors.New("unknown env: " + cfg.Env)
	}

	return cfg, nil
}
