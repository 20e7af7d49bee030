package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvParameterStore(t *testing.T) {
	t.Setenv("SITE_BUCKET_PREFIX", "sites")
	t.Setenv("GITHUB_TOKEN", "secret")
	t.Setenv("DEPLOY_TABLE", "site-deployer-deploys-dev")

	store := NewEnvParameterStore("dev")
	config, err := store.GetConfig(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "sites", config.SiteBucketPrefix)
	assert.Equal(t, "secret", config.GithubToken)
	assert.Equal(t, "site-deployer-deploys-dev", config.DeployTable)
	assert.Equal(t, "hugo", config.HugoBinary, "hugo binary should default")
}

func TestEnvParameterStoreDefaults(t *testing.T) {
	t.Setenv("SITE_BUCKET_PREFIX", "")
	t.Setenv("HUGO_BINARY", "")

	store := NewEnvParameterStore("dev")
	config, err := store.GetConfig(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, config.SiteBucketPrefix)
	assert.Equal(t, "hugo", config.HugoBinary)
}
