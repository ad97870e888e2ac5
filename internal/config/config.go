package config

import (
	"fmt"
	"strings"

	"github.com/BRO3886/opensearch-resource-store/internal/types"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STORE_"

type Config struct {
	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   struct {
			Name       string `koanf:"name"`
			Partitions int    `koanf:"partitions"`
		} `koanf:"topic"`
		ConsumerGroup string `koanf:"consumer_group"`
		Publish       bool   `koanf:"publish"`
		Retry         struct {
			Max     int `koanf:"max"`
			Backoff int `koanf:"backoff"`
		} `koanf:"retry"`
	} `koanf:"kafka"`
	Opensearch struct {
		URLs       []string `koanf:"urls"`
		Username   string   `koanf:"username"`
		Password   string   `koanf:"password"`
		MaxRetries int      `koanf:"max_retries"`
		Index      struct {
			Prefix   string `koanf:"prefix"`
			Shards   int    `koanf:"shards"`
			Replicas int    `koanf:"replicas"`
		} `koanf:"index"`
	} `koanf:"opensearch"`
	Resources []Resource `koanf:"resources"`
}

// Resource is the configuration form of a resource schema.
type Resource struct {
	Name       string               `koanf:"name"`
	Attributes map[string]Attribute `koanf:"attributes"`
	Examples   []map[string]any     `koanf:"examples"`
}

type Attribute struct {
	Type     string `koanf:"type"`
	Resource string `koanf:"resource"`
	Many     bool   `koanf:"many"`
}

// Schema converts r into the schema handed to a store.
func (r Resource) Schema() (*types.Schema, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("resource without name")
	}

	s := &types.Schema{
		Resource:   r.Name,
		Attributes: make(map[string]types.Attribute, len(r.Attributes)),
	}
	for name, a := range r.Attributes {
		attr, err := types.ParseAttribute(a.Type, a.Resource, a.Many)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", r.Name, name, err)
		}
		s.Attributes[name] = attr
	}
	for _, e := range r.Examples {
		doc := types.Document(e)
		if doc.Type() == "" {
			doc["type"] = r.Name
		}
		s.Examples = append(s.Examples, doc)
	}
	return s, nil
}

// Schemas converts every configured resource.
func (c *Config) Schemas() ([]*types.Schema, error) {
	schemas := make([]*types.Schema, 0, len(c.Resources))
	for _, r := range c.Resources {
		s, err := r.Schema()
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// LoadConfig reads the YAML file at path, then applies STORE_ environment
// overrides where "__" separates key levels (STORE_OPENSEARCH__USERNAME).
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	config.setDefaults()
	return &config, nil
}

func (c *Config) setDefaults() {
	if len(c.Opensearch.URLs) == 0 {
		c.Opensearch.URLs = []string{"http://localhost:9200"}
	}
	if c.Opensearch.Index.Prefix == "" {
		c.Opensearch.Index.Prefix = "jsonapi"
	}
	if c.Opensearch.Index.Shards == 0 {
		c.Opensearch.Index.Shards = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = "opensearch-resource-store"
	}
}
