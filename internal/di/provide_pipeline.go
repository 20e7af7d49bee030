package di

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/savaki/site-deployer/internal/builder"
	"github.com/savaki/site-deployer/internal/dao/deploydao"
	"github.com/savaki/site-deployer/internal/pipeline"
	"github.com/savaki/site-deployer/internal/services"
	"github.com/savaki/site-deployer/internal/uploader"
)

func ProvideStorageService(client *s3.Client) *services.StorageService {
	return services.NewStorageService(client)
}

func ProvideSourceService(config *services.Config) *services.SourceService {
	return services.NewSourceService(config.GithubToken)
}

func ProvideBuilder(config *services.Config) *builder.Builder {
	return builder.New(config.HugoBinary)
}

func ProvideUploader(storage *services.StorageService) *uploader.Uploader {
	return uploader.New(storage)
}

// ProvideDeployDAO provides the deploy history DAO. Returns nil when no
// table is configured, which disables history recording.
func ProvideDeployDAO(client *dynamodb.Client, config *services.Config) *deploydao.DAO {
	if config.DeployTable == "" {
		return nil
	}
	return deploydao.New(client, config.DeployTable)
}

func ProvidePipeline(
	source *services.SourceService,
	storage *services.StorageService,
	b *builder.Builder,
	u *uploader.Uploader,
	dao *deploydao.DAO,
	config *services.Config,
) *pipeline.Pipeline {
	return pipeline.New(source, storage, b, u, dao, config.SiteBucketPrefix)
}
