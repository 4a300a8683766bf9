package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// AppConfig is the agent configuration. Values are resolved in order:
// defaults, YAML file (--config), VIGILANT_* environment variables, flags.
type AppConfig struct {
	Name            string        `yaml:"name"`
	Token           string        `yaml:"token"`
	Endpoint        string        `yaml:"endpoint"`
	Insecure        bool          `yaml:"insecure"`
	Noop            bool          `yaml:"noop"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	LogRootPath     string        `yaml:"log_path"`
	NodeName        string        `yaml:"node_name"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	ScanInterval    time.Duration `yaml:"scan_interval"`
	FileIdleTimeout time.Duration `yaml:"file_idle_timeout"`
	ReportInterval  time.Duration `yaml:"report_interval"`
	MetricsListen   string        `yaml:"metrics_listen"`
}

// ValidationError aggregates every configuration problem found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func defaultConfig() AppConfig {
	return AppConfig{
		Name:            "vigilant-agent",
		Endpoint:        "ingress.vigilant.run",
		RequestTimeout:  5 * time.Second,
		LogRootPath:     "/var/log/pods",
		NodeName:        "unknown",
		Workers:         4,
		QueueSize:       50,
		ScanInterval:    30 * time.Second,
		FileIdleTimeout: 5 * time.Minute,
		ReportInterval:  30 * time.Second,
	}
}

// loadConfig resolves the configuration from args (without the program
// name). help reports whether --help was requested.
func loadConfig(args []string) (cfg AppConfig, help bool, err error) {
	cfg = defaultConfig()

	flagSet := pflag.NewFlagSet("vigilant-agent", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	configPath := flagSet.String("config", "", "path to a YAML configuration file")
	flagSet.String("name", "", "service name reported with every event")
	flagSet.String("token", "", "ingestion token")
	flagSet.String("endpoint", "", "ingestion host, without scheme")
	flagSet.Bool("insecure", false, "send over http instead of https")
	flagSet.Bool("noop", false, "capture but never send")
	flagSet.String("log-path", "", "root directory scanned for *.log files")
	flagSet.String("node-name", "", "node label attached to forwarded lines")
	flagSet.Int("workers", 0, "number of files tailed concurrently")
	flagSet.String("metrics-listen", "", "address serving Prometheus /metrics, empty to disable")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cfg, true, nil
		}
		return cfg, false, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		return cfg, true, nil
	}

	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return cfg, false, err
		}
	}

	cfg.applyEnv()
	cfg.applyFlags(flagSet)

	return cfg, false, cfg.Validate()
}

func (c *AppConfig) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return c.decode(f)
}

func (c *AppConfig) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	c.Name = getEnv("VIGILANT_NAME", c.Name)
	c.Token = getEnv("VIGILANT_TOKEN", c.Token)
	c.Endpoint = getEnv("VIGILANT_ENDPOINT", c.Endpoint)
	c.Insecure = getEnvAsBool("VIGILANT_INSECURE", c.Insecure)
	c.Noop = getEnvAsBool("VIGILANT_NOOP", c.Noop)
	c.RequestTimeout = getEnvAsDuration("VIGILANT_REQUEST_TIMEOUT", c.RequestTimeout)
	c.LogRootPath = getEnv("LOG_PATH", c.LogRootPath)
	c.NodeName = getEnv("NODE_NAME", c.NodeName)
	c.Workers = getEnvAsInt("WORKERS", c.Workers)
	c.QueueSize = getEnvAsInt("QUEUE_SIZE", c.QueueSize)
	c.ScanInterval = getEnvAsDuration("SCAN_INTERVAL", c.ScanInterval)
	c.FileIdleTimeout = getEnvAsDuration("FILE_IDLE_TIMEOUT", c.FileIdleTimeout)
	c.ReportInterval = getEnvAsDuration("REPORT_INTERVAL", c.ReportInterval)
	c.MetricsListen = getEnv("METRICS_LISTEN", c.MetricsListen)
}

// applyFlags overrides fields only for flags set on the command line.
func (c *AppConfig) applyFlags(flagSet *pflag.FlagSet) {
	flagSet.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "name":
			c.Name = f.Value.String()
		case "token":
			c.Token = f.Value.String()
		case "endpoint":
			c.Endpoint = f.Value.String()
		case "insecure":
			c.Insecure, _ = flagSet.GetBool("insecure")
		case "noop":
			c.Noop, _ = flagSet.GetBool("noop")
		case "log-path":
			c.LogRootPath = f.Value.String()
		case "node-name":
			c.NodeName = f.Value.String()
		case "workers":
			c.Workers, _ = flagSet.GetInt("workers")
		case "metrics-listen":
			c.MetricsListen = f.Value.String()
		}
	})
}

func (c *AppConfig) Validate() error {
	var problems []string

	if strings.TrimSpace(c.LogRootPath) == "" {
		problems = append(problems, "log_path is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		problems = append(problems, "endpoint must be a host without scheme")
	}
	if c.Workers <= 0 {
		problems = append(problems, "workers must be greater than zero")
	}
	if c.QueueSize <= 0 {
		problems = append(problems, "queue_size must be greater than zero")
	}
	if c.ScanInterval <= 0 {
		problems = append(problems, "scan_interval must be greater than zero")
	}
	if c.ReportInterval <= 0 {
		problems = append(problems, "report_interval must be greater than zero")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "request_timeout must be non-negative")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
	}
	return defaultValue
}
