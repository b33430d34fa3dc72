package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"lecture2obs/config"
)

// Archiver disposes of the raw capture after a successful pipeline run:
// upload to S3-compatible storage when configured, move into the local
// archive directory when configured, delete otherwise. On failure the
// orchestrator never calls it, so failed captures stay where they were
// recorded.
type Archiver struct {
	dir    string
	client *minio.Client
	bucket string
}

// Keep leaves the capture untouched. Used for batch reprocessing, where the
// input file belongs to the caller.
type Keep struct{}

func (Keep) Store(ctx context.Context, audioPath string) error {
	return nil
}

func New(cfg config.Recording) (*Archiver, error) {
	a := &Archiver{dir: cfg.ArchiveDir}
	if cfg.S3 != nil {
		client, err := minio.New(cfg.S3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
			Secure: cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("archive storage: %w", err)
		}
		a.client = client
		a.bucket = cfg.S3.Bucket
	}
	return a, nil
}

func (a *Archiver) Store(ctx context.Context, audioPath string) error {
	if a.client != nil {
		objectName := filepath.Base(audioPath)
		if _, err := a.client.FPutObject(ctx, a.bucket, objectName, audioPath, minio.PutObjectOptions{
			ContentType: "audio/wav",
		}); err != nil {
			return fmt.Errorf("upload capture to archive bucket: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("bucket", a.bucket).Str("object", objectName).Msg("capture uploaded to archive bucket")
	}

	if a.dir == "" {
		zerolog.Ctx(ctx).Info().Str("audio", audioPath).Msg("no archive directory configured, deleting capture")
		return os.Remove(audioPath)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	dest := filepath.Join(a.dir, filepath.Base(audioPath))
	if err := moveFile(audioPath, dest); err != nil {
		return fmt.Errorf("archive capture: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("dest", dest).Msg("capture archived")
	return nil
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
