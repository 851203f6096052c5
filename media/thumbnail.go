package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/filesystem"
)

const (
	DefaultFFmpegPath       = "ffmpeg"
	DefaultThumbnailRetries = 2
	ThumbnailExtension      = ".jpg"
	thumbnailOffsetSeconds  = "5"
	thumbnailScaleFilter    = "scale=320:-1"
)

var ErrThumbnail = errors.New("media: thumbnail generation failed")

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}

// Thumbnailer keeps one JPEG per video in dir, regenerating it whenever the
// video file is newer than the cached image.
type Thumbnailer struct {
	dir     string
	ffmpeg  string
	fs      filesystem.Filesystem
	run     Runner
	retries uint64
	group   singleflight.Group
	logger  *slog.Logger
}

func NewThumbnailer(dir, ffmpeg string, fs filesystem.Filesystem, logger *slog.Logger) *Thumbnailer {
	if ffmpeg == "" {
		ffmpeg = DefaultFFmpegPath
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Thumbnailer{
		dir:     dir,
		ffmpeg:  ffmpeg,
		fs:      fs,
		run:     execRunner,
		retries: DefaultThumbnailRetries,
		logger:  logger,
	}
}

func (t *Thumbnailer) WithRunner(run Runner) *Thumbnailer {
	t.run = run
	return t
}

func (t *Thumbnailer) WithRetries(retries uint64) *Thumbnailer {
	t.retries = retries
	return t
}

func (t *Thumbnailer) Path(videoID int64) string {
	return filepath.Join(t.dir, strconv.FormatInt(videoID, 10)+ThumbnailExtension)
}

// Ensure returns the path of an up to date thumbnail for video, generating it
// when needed. Concurrent calls for the same video share one generation.
func (t *Thumbnailer) Ensure(ctx context.Context, video database.Video, videoPath string) (string, error) {
	thumbPath := t.Path(video.ID)

	_, err, _ := t.group.Do(thumbPath, func() (any, error) {
		fresh, err := t.fresh(thumbPath, videoPath)
		if err != nil {
			return nil, err
		}
		if fresh {
			return nil, nil
		}
		return nil, t.generate(ctx, videoPath, thumbPath)
	})
	if err != nil {
		return "", err
	}
	return thumbPath, nil
}

func (t *Thumbnailer) fresh(thumbPath, videoPath string) (bool, error) {
	videoInfo, err := t.fs.FileMetaData(videoPath)
	if err != nil {
		return false, err
	}

	thumbInfo, err := t.fs.FileMetaData(thumbPath)
	if errors.Is(err, filesystem.ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !thumbInfo.ModTime().Before(videoInfo.ModTime()), nil
}

func (t *Thumbnailer) generate(ctx context.Context, videoPath, thumbPath string) error {
	if err := t.fs.CreateDirectory(t.dir); err != nil {
		return fmt.Errorf("%w: %w", ErrThumbnail, err)
	}

	args := []string{
		"-y", "-loglevel", "error",
		"-ss", thumbnailOffsetSeconds,
		"-i", videoPath,
		"-vframes", "1",
		"-vf", thumbnailScaleFilter,
		thumbPath,
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(200*time.Millisecond),
			backoff.WithMaxInterval(2*time.Second),
		), t.retries),
		ctx,
	)

	started := time.Now()
	err := backoff.Retry(func() error {
		err := t.run(ctx, t.ffmpeg, args...)
		if errors.Is(err, exec.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil {
		if removeErr := t.fs.DeleteFile(thumbPath); removeErr != nil {
			t.logger.Warn("removing partial thumbnail failed", slog.String("path", thumbPath), slog.Any("error", removeErr))
		}
		return fmt.Errorf("%w: %w", ErrThumbnail, err)
	}

	t.logger.Debug("thumbnail generated",
		slog.String("path", thumbPath),
		slog.Duration("took", time.Since(started)),
	)
	return nil
}
