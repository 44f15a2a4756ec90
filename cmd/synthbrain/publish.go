package main

import (
	"context"
	"log/slog"
	"time"

	cfgpkg "synthbrain/internal/config"
	"synthbrain/internal/pipeline"
	"synthbrain/internal/storage"
)

type uploader interface {
	PublishFile(ctx context.Context, t time.Time, localPath string) (string, error)
	PublishBytes(ctx context.Context, t time.Time, filename string, data []byte) (string, error)
}

var newUploader = func(ctx context.Context, bucket, prefix, region string) (uploader, error) {
	return storage.New(ctx, bucket, prefix, region)
}

var now = func() time.Time { return time.Now().UTC() }

// publishResult uploads the run's artifact when publishing is enabled.
// The local file is kept whether or not the upload succeeds.
func publishResult(ctx context.Context, cfg cfgpkg.Config, res pipeline.Result) error {
	if !cfg.Publish {
		return nil
	}
	if err := cfgpkg.ValidateForPublish(cfg); err != nil {
		return configError(err)
	}
	up, err := newUploader(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.Region)
	if err != nil {
		return err
	}

	var key string
	switch {
	case res.Path != "":
		key, err = up.PublishFile(ctx, now(), res.Path)
	case len(res.Content) > 0:
		key, err = up.PublishBytes(ctx, now(), res.Name, res.Content)
	default:
		slog.Warn("nothing to publish")
		return nil
	}
	if err != nil {
		return &pipeline.Error{Kind: pipeline.KindTransport, Op: "publish", Err: err}
	}
	slog.Info("publish completed", "bucket", cfg.S3Bucket, "key", key, "region", cfg.Region)
	return nil
}
