package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig はagrinova.yamlの構造を定義
type FileConfig struct {
	Server struct {
		Port        string   `yaml:"port"`
		Environment string   `yaml:"environment"`
		CORSOrigins []string `yaml:"cors_origins"`
		LogLevel    string   `yaml:"log_level"`
		Timezone    string   `yaml:"timezone"`
	} `yaml:"server"`

	Storage struct {
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`

	Timings struct {
		ChatReplyDelay time.Duration `yaml:"chat_reply_delay"`
		AuthDelay      time.Duration `yaml:"auth_delay"`
		SensorInterval time.Duration `yaml:"sensor_interval"`
	} `yaml:"timings"`

	NATS struct {
		URL            string `yaml:"url"`
		SubjectSensors string `yaml:"subject_sensors"`
	} `yaml:"nats"`

	Qdrant struct {
		URL        string `yaml:"url"`
		Collection string `yaml:"collection"`
	} `yaml:"qdrant"`
}

// DefaultFileConfig はファイルが無い場合の既定値を返す
func DefaultFileConfig() *FileConfig {
	fc := &FileConfig{}
	fc.Server.Port = "8080"
	fc.Server.Environment = "development"
	fc.Server.CORSOrigins = []string{"http://localhost:5173"}
	fc.Server.LogLevel = "info"
	fc.Server.Timezone = "UTC"
	fc.Storage.DSN = "agrinova.db"
	fc.Timings.ChatReplyDelay = time.Second
	fc.Timings.AuthDelay = 500 * time.Millisecond
	fc.Timings.SensorInterval = 5 * time.Second
	fc.NATS.SubjectSensors = "agrinova.iot.sensors"
	fc.Qdrant.Collection = "agrinova_chat_history"
	return fc
}

// LoadFileConfig はYAMLファイルを読み込み、未指定の項目を既定値で埋める
func LoadFileConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	fc := DefaultFileConfig()
	if err := yaml.Unmarshal(raw, fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// 空文字で上書きされた項目は既定値に戻す
	def := DefaultFileConfig()
	if fc.Server.Port == "" {
		fc.Server.Port = def.Server.Port
	}
	if fc.Server.Environment == "" {
		fc.Server.Environment = def.Server.Environment
	}
	if len(fc.Server.CORSOrigins) == 0 {
		fc.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if fc.Server.LogLevel == "" {
		fc.Server.LogLevel = def.Server.LogLevel
	}
	if fc.Server.Timezone == "" {
		fc.Server.Timezone = def.Server.Timezone
	}
	if fc.Storage.DSN == "" {
		fc.Storage.DSN = def.Storage.DSN
	}
	if fc.NATS.SubjectSensors == "" {
		fc.NATS.SubjectSensors = def.NATS.SubjectSensors
	}
	if fc.Qdrant.Collection == "" {
		fc.Qdrant.Collection = def.Qdrant.Collection
	}
	return fc, nil
}
