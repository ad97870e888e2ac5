package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BRO3886/opensearch-resource-store/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
kafka:
  brokers: [localhost:9092]
  topic:
    name: resource-events
opensearch:
  urls: [http://opensearch:9200]
  username: admin
  index:
    prefix: test
    replicas: 2
resources:
  - name: people
    attributes:
      firstname: {type: string}
      age: {type: number}
      meta: {type: meta}
      photos: {type: relationship, resource: photos, many: true}
    examples:
      - id: "1"
        firstname: Oli
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "resource-events", cfg.Kafka.Topic.Name)
	assert.Equal(t, []string{"http://opensearch:9200"}, cfg.Opensearch.URLs)
	assert.Equal(t, "admin", cfg.Opensearch.Username)
	assert.Equal(t, "test", cfg.Opensearch.Index.Prefix)
	assert.Equal(t, 2, cfg.Opensearch.Index.Replicas)

	// defaults
	assert.Equal(t, 1, cfg.Opensearch.Index.Shards)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "opensearch-resource-store", cfg.Kafka.ConsumerGroup)

	require.Len(t, cfg.Resources, 1)
	assert.Equal(t, "people", cfg.Resources[0].Name)
	assert.Equal(t, Attribute{Type: "relationship", Resource: "photos", Many: true}, cfg.Resources[0].Attributes["photos"])
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("STORE_OPENSEARCH__PASSWORD", "secret")
	t.Setenv("STORE_LOG__LEVEL", "debug")

	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Opensearch.Password)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchemas(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	schemas, err := cfg.Schemas()
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "people", s.Resource)
	assert.Equal(t, types.Scalar(types.KindString), s.Attributes["firstname"])
	assert.Equal(t, types.Scalar(types.KindNumber), s.Attributes["age"])
	assert.Equal(t, types.Scalar(types.KindMeta), s.Attributes["meta"])

	rel, ok := s.Attributes["photos"].Relation()
	require.True(t, ok)
	assert.Equal(t, types.Relation{Resource: "photos", Many: true}, rel)

	require.Len(t, s.Examples, 1)
	assert.Equal(t, "1", s.Examples[0].ID())
	assert.Equal(t, "people", s.Examples[0].Type())
}

func TestResourceSchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		resource Resource
	}{
		{
			name:     "missing name",
			resource: Resource{},
		},
		{
			name: "unknown type",
			resource: Resource{Name: "x", Attributes: map[string]Attribute{
				"a": {Type: "uuid"},
			}},
		},
		{
			name: "relationship without resource",
			resource: Resource{Name: "x", Attributes: map[string]Attribute{
				"a": {Type: "relationship"},
			}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.resource.Schema()
			assert.Error(t, err)
		})
	}
}
