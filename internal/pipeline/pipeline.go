// Package pipeline chains the deploy sequence: fetch, build, publish, with
// rollback of the destination bucket when publishing fails part way.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/savaki/site-deployer/internal/archive"
	"github.com/savaki/site-deployer/internal/builder"
	"github.com/savaki/site-deployer/internal/dao/deploydao"
	"github.com/savaki/site-deployer/internal/hook"
	"github.com/savaki/site-deployer/internal/services"
	"github.com/savaki/site-deployer/internal/uploader"
	"github.com/savaki/site-deployer/internal/workspace"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
)

// ArchiveFetcher fetches repository and theme archives from the source host.
type ArchiveFetcher interface {
	FetchArchive(ctx context.Context, url string) (io.ReadCloser, error)
	FetchTheme(ctx context.Context) (io.ReadCloser, error)
}

// Pipeline executes one deploy per webhook delivery. Invocations share no
// mutable state; the destination bucket is the only cross-invocation state
// and is owned by the storage service.
type Pipeline struct {
	source   ArchiveFetcher
	storage  *services.StorageService
	builder  *builder.Builder
	uploader *uploader.Uploader
	dao      *deploydao.DAO // nil disables deploy history
	prefix   string
}

// Result describes a completed invocation.
type Result struct {
	Bucket   string // Destination bucket name
	Skipped  bool   // True when the bucket already existed
	Uploaded int    // Number of files uploaded
}

// New creates a Pipeline. The dao may be nil, in which case no deploy
// history is recorded.
func New(source ArchiveFetcher, storage *services.StorageService, b *builder.Builder, u *uploader.Uploader, dao *deploydao.DAO, prefix string) *Pipeline {
	return &Pipeline{
		source:   source,
		storage:  storage,
		builder:  b,
		uploader: u,
		dao:      dao,
		prefix:   prefix,
	}
}

// Deploy runs the full sequence for one push event. If the destination
// bucket already exists the event is a redelivery and the pipeline
// short-circuits without fetching, building, or uploading. On any failure
// after the bucket was created, the bucket is deleted and the original
// error is returned.
func (p *Pipeline) Deploy(ctx context.Context, event hook.PushEvent) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	bucket := event.BucketName(p.prefix)

	exists, err := p.storage.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Info().
			Str("repo", event.Repository.FullName).
			Str("bucket", bucket).
			Msg("Bucket already exists, nothing to deploy")
		p.recordSkipped(ctx, event, bucket)
		return &Result{Bucket: bucket, Skipped: true}, nil
	}

	sk := p.recordPending(ctx, event, bucket)

	result, bucketCreated, err := p.run(ctx, event, bucket)
	if err != nil {
		status := deploydao.DeployStatusFailed
		if bucketCreated {
			p.rollback(ctx, bucket, err)
			status = deploydao.DeployStatusRolledBack
		}
		p.recordStatus(ctx, event, sk, status, err)
		return nil, err
	}

	logger.Info().
		Str("repo", event.Repository.FullName).
		Str("bucket", bucket).
		Int("files", result.Uploaded).
		Msg("Deployed site")
	p.recordStatus(ctx, event, sk, deploydao.DeployStatusDeployed, nil)

	return result, nil
}

// run executes the build-and-publish path. bucketCreated reports whether the
// destination bucket existed when the error occurred, so the caller knows
// whether rollback is required.
func (p *Pipeline) run(ctx context.Context, event hook.PushEvent, bucket string) (result *Result, bucketCreated bool, err error) {
	// Workspace creation and the archive request have no dependency on each
	// other and run concurrently.
	var (
		ws          *workspace.Workspace
		archiveBody io.ReadCloser
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		ws, err = workspace.New()
		return err
	})
	group.Go(func() (err error) {
		archiveBody, err = p.source.FetchArchive(gctx, event.TarballURL())
		return err
	})
	err = group.Wait()
	if ws != nil {
		defer func() {
			if closeErr := ws.Close(); closeErr != nil {
				zerolog.Ctx(ctx).Warn().Err(closeErr).Msg("Failed to remove workspace")
			}
		}()
	}
	if archiveBody != nil {
		defer archiveBody.Close()
	}
	if err != nil {
		return nil, false, err
	}

	if err := archive.Extract(archiveBody, ws.Root()); err != nil {
		return nil, false, err
	}
	if err := archive.RelocateRoot(ws.Root(), "src", "public"); err != nil {
		return nil, false, err
	}

	if err := p.installTheme(ctx, ws); err != nil {
		return nil, false, err
	}

	if err := p.builder.Build(ctx, services.ThemeName, ws.Src(), ws.Public()); err != nil {
		return nil, false, err
	}

	// Everything from here on has externally visible side effects.
	if err := p.storage.CreateBucket(ctx, bucket); err != nil {
		return nil, false, err
	}

	count, err := p.uploader.UploadDir(ctx, bucket, ws.Public())
	if err != nil {
		return nil, true, err
	}

	return &Result{Bucket: bucket, Uploaded: count}, true, nil
}

func (p *Pipeline) installTheme(ctx context.Context, ws *workspace.Workspace) error {
	body, err := p.source.FetchTheme(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(ws.Themes(), 0o755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}
	if err := archive.Extract(body, ws.Themes()); err != nil {
		return err
	}
	return archive.RelocateRoot(ws.Themes(), services.ThemeName)
}

// rollback deletes the partially created bucket. Best effort: a deletion
// failure is logged and the caller still reports the original error.
func (p *Pipeline) rollback(ctx context.Context, bucket string, cause error) {
	logger := zerolog.Ctx(ctx)
	logger.Error().
		Err(cause).
		Str("bucket", bucket).
		Msg("Deploy failed after bucket creation, rolling back")

	if err := p.storage.DeleteBucket(ctx, bucket); err != nil {
		logger.Error().Err(err).Str("bucket", bucket).Msg("Rollback failed to delete bucket")
	}
}

func (p *Pipeline) recordPending(ctx context.Context, event hook.PushEvent, bucket string) string {
	if p.dao == nil {
		return ""
	}

	sk := ksuid.New().String()
	_, err := p.dao.Create(ctx, deploydao.CreateInput{
		Repo:       event.Repository.FullName,
		SK:         sk,
		CommitHash: event.HeadCommit.ID,
		Bucket:     bucket,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to record deploy")
	}
	return sk
}

func (p *Pipeline) recordSkipped(ctx context.Context, event hook.PushEvent, bucket string) {
	sk := p.recordPending(ctx, event, bucket)
	p.recordStatus(ctx, event, sk, deploydao.DeployStatusSkipped, nil)
}

func (p *Pipeline) recordStatus(ctx context.Context, event hook.PushEvent, sk string, status deploydao.DeployStatus, cause error) {
	if p.dao == nil || sk == "" {
		return
	}

	input := deploydao.UpdateInput{
		PK:     deploydao.NewPK(event.Repository.FullName),
		SK:     sk,
		Status: &status,
	}
	if cause != nil {
		msg := cause.Error()
		input.ErrorMsg = &msg
	}

	if err := p.dao.UpdateStatus(ctx, input); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to update deploy record")
	}
}
