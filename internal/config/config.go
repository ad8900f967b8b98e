package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Client struct {
		BackendURL     string `yaml:"backend_url"`
		QuizID         string `yaml:"quiz_id"`
		UserID         string `yaml:"user_id"`
		QuizPassword   string `yaml:"quiz_password"`
		RevealPassword string `yaml:"reveal_password"`
		TimeLimit      string `yaml:"time_limit"`
		UIPort         string `yaml:"ui_port"`
	} `yaml:"client"`
	Gate struct {
		Endpoints    []string `yaml:"endpoints"`
		Interval     string   `yaml:"interval"`
		ProbeTimeout string   `yaml:"probe_timeout"`
	} `yaml:"gate"`
	Server struct {
		Port   string `yaml:"port"`
		QuizID string `yaml:"quiz_id"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path. A missing file yields a zero config so
// every deployment knob stays optional.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
