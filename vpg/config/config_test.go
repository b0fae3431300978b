package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/virtual-photogrid/vpg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()

	// Change to temp directory so no stray config.yaml is picked up
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		_ = os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultPageSize, cfg.Grid.PageSize)
	assert.Equal(suite.T(), "month", cfg.Grid.BucketSize)
	assert.Equal(suite.T(), internal.DefaultThumbnailHeight, cfg.Grid.ThumbnailHeight)
	assert.False(suite.T(), cfg.Grid.DebitPrunedBuckets)
	assert.Equal(suite.T(), internal.DefaultLibraryDSN, cfg.Library.DSN)
	assert.Equal(suite.T(), internal.DefaultThumbnailDir, cfg.Library.ThumbnailDir)
	assert.Equal(suite.T(), 4, cfg.Jobs.Workers)
	assert.Equal(suite.T(), 256, cfg.Jobs.QueueCapacity)
	assert.Equal(suite.T(), "hash", cfg.Search.Provider)
	assert.Equal(suite.T(), 384, cfg.Search.Dimensions)
	assert.Equal(suite.T(), internal.DefaultServerAddress, cfg.Server.Address)
	assert.Equal(suite.T(), "info", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
grid:
  pageSize: 250
  bucketSize: day
  thumbnailHeight: 200
  debitPrunedBuckets: true
library:
  dsn: "file:test.db"
  thumbnailDir: "./thumbs"
jobs:
  workers: 2
  queueCapacity: 16
search:
  dimensions: 64
server:
  address: "127.0.0.1:9000"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(configContent), 0o644))

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 250, cfg.Grid.PageSize)
	assert.Equal(suite.T(), "day", cfg.Grid.BucketSize)
	assert.Equal(suite.T(), 200.0, cfg.Grid.ThumbnailHeight)
	assert.True(suite.T(), cfg.Grid.DebitPrunedBuckets)
	assert.Equal(suite.T(), "file:test.db", cfg.Library.DSN)
	assert.Equal(suite.T(), "./thumbs", cfg.Library.ThumbnailDir)
	assert.Equal(suite.T(), 2, cfg.Jobs.Workers)
	assert.Equal(suite.T(), 16, cfg.Jobs.QueueCapacity)
	assert.Equal(suite.T(), 64, cfg.Search.Dimensions)
	assert.Equal(suite.T(), "127.0.0.1:9000", cfg.Server.Address)
	// untouched sections keep their defaults
	assert.Equal(suite.T(), internal.DefaultAspectRatio, cfg.Grid.AspectRatio)
}

func (suite *ConfigTestSuite) TestLoadConfigFromEnvironment() {
	suite.T().Setenv("VPG_GRID_PAGESIZE", "42")
	suite.T().Setenv("VPG_JOBS_WORKERS", "8")

	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 42, cfg.Grid.PageSize)
	assert.Equal(suite.T(), 8, cfg.Jobs.Workers)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte("grid: [unclosed"), 0o644))

	_, err := LoadConfig(configFile)
	assert.Error(suite.T(), err)
}

func (suite *ConfigTestSuite) TestValidation() {
	tests := []struct {
		name    string
		content string
	}{
		{"zero page size", "grid:\n  pageSize: 0\n"},
		{"unknown bucket size", "grid:\n  bucketSize: week\n"},
		{"no workers", "jobs:\n  workers: 0\n"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			configFile := filepath.Join(suite.tempDir, "invalid.yaml")
			require.NoError(suite.T(), os.WriteFile(configFile, []byte(tt.content), 0o644))

			_, err := LoadConfig(configFile)
			assert.Error(suite.T(), err)
		})
	}
}

func (suite *ConfigTestSuite) TestMissingExplicitFile() {
	_, err := LoadConfig(filepath.Join(suite.tempDir, "missing.yaml"))
	assert.Error(suite.T(), err)
}
