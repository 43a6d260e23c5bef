package hypcluster

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

type Config struct {
	Evaluator EvaluatorConfig `toml:"evaluator"`
	MQTT      MQTTConfig      `toml:"mqtt"`
	OCI       OCIConfig       `toml:"oci"`
}

type EvaluatorConfig struct {
	URL       string `toml:"url"`
	BaseTopic string `toml:"base_topic"`
	Workers   int    `toml:"workers"`
}

type MQTTConfig struct {
	Address  string `toml:"address"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	QoS      uint8  `toml:"qos"`
}

type OCIConfig struct {
	RegistryURL  string `toml:"registry_url"`
	Authenticate bool   `toml:"authenticate"`
	Token        string `toml:"token"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
