package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
)

// NewUploader returns the configured uploader, or nil when uploads are disabled.
func NewUploader(ctx context.Context, logger *common.Logger, cfg config.UploadConfig) (interfaces.Uploader, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "s3":
		u, err := NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("bucket", cfg.S3.Bucket).Str("folder", cfg.Folder).Msg("S3 upload enabled")
		return u, nil
	case "drive":
		u, err := NewDriveUploader(ctx, cfg.Drive)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("folder", cfg.Folder).Msg("Drive upload enabled")
		return u, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}
