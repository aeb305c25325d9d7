package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	PonyXpress PonyXpressConfig `yaml:"ponyxpress"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnString собирает DSN для pgx.
func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	ScanRecordedTopicName string `yaml:"scan_recorded_topic_name"`
	RouteSavedTopicName   string `yaml:"route_saved_topic_name"`
}

// Brokers returns nil when Kafka is not configured; events are then off.
func (k KafkaConfig) Brokers() []string {
	if k.Host == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type PonyXpressConfig struct {
	HTTPAddr       string `yaml:"http_addr"`
	WorkerHTTPAddr string `yaml:"worker_http_addr"`
	TimeZone       string `yaml:"time_zone"`

	SessionSecret     string `yaml:"session_secret"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	SecureCookies     bool   `yaml:"secure_cookies"`

	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	BcryptCost    int    `yaml:"bcrypt_cost"`

	LoginMaxAttempts   int `yaml:"login_max_attempts"`
	LoginWindowSeconds int `yaml:"login_window_seconds"`

	StorageTimeoutMS      int `yaml:"storage_timeout_ms"`
	ActiveRouteTTLSeconds int `yaml:"active_route_ttl_seconds"`

	PhotoDir      string `yaml:"photo_dir"`
	PhotoMaxBytes int64  `yaml:"photo_max_bytes"`

	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// Worker
	RollupBackoffSeconds    []int `yaml:"rollup_backoff_seconds"`
	JanitorIntervalSeconds  int   `yaml:"janitor_interval_seconds"`
	JanitorMaxPhotoAgeHours int   `yaml:"janitor_max_photo_age_hours"`
	JanitorConcurrency      int   `yaml:"janitor_concurrency"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// Секреты не обязаны лежать в YAML: переменные окружения (в том числе из
// .env) имеют приоритет.
func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"PONYXPRESS_SESSION_SECRET", &c.PonyXpress.SessionSecret},
		{"PONYXPRESS_ADMIN_USERNAME", &c.PonyXpress.AdminUsername},
		{"PONYXPRESS_ADMIN_PASSWORD", &c.PonyXpress.AdminPassword},
		{"PONYXPRESS_DB_PASSWORD", &c.Database.Password},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}
