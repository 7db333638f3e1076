package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	AI struct {
		OpenAIAPIKey string `yaml:"openaiApiKey"`
		OpenAIModel  string `yaml:"openaiModel"`
		GeminiAPIKey string `yaml:"geminiApiKey"`
		GeminiModel  string `yaml:"geminiModel"`
		VisionAPIKey string `yaml:"visionApiKey"`
	} `yaml:"ai"`

	Auth struct {
		FirebaseCredentials string `yaml:"firebaseCredentials"`
	} `yaml:"auth"`

	Archive struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"archive"`

	RateLimit struct {
		Text  int `yaml:"text"`
		Media int `yaml:"media"`
		Video int `yaml:"video"`
	} `yaml:"rateLimit"`
}

// Load reads the yaml config file. Secrets may also come from the
// environment, which wins over the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("GOOGLE_GEMINI_API_KEY"); v != "" {
		c.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_VISION_API_KEY"); v != "" {
		c.AI.VisionAPIKey = v
	}
	if v := os.Getenv("FIREBASE_CREDENTIALS"); v != "" {
		c.Auth.FirebaseCredentials = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.RateLimit.Text == 0 {
		c.RateLimit.Text = 10
	}
	if c.RateLimit.Media == 0 {
		c.RateLimit.Media = 5
	}
	if c.RateLimit.Video == 0 {
		c.RateLimit.Video = 3
	}
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the lib/pq DSN.
func (c *Config) PostgresDSN() string {
	sslmode := c.Database.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslmode,
	)
}
