package portraits

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Output subdirectories created under the downloader's output directory.
const (
	PDXDir       = "pdx_data"
	GamewithDir  = "gamewith_data"
	OverrideDir  = "override_data"
	CorrectedDir = "corrected_data"
)

// pdxJPAdjustments maps JP monster ids to the ids PDX files them under.
var pdxJPAdjustments = func() map[int]int {
	m := make(map[int]int)
	for _, r := range [][2]int{{2601, 2635}, {3460, 3481}} {
		for id := r[0]; id <= r[1]; id++ {
			m[id] = id + 10000
		}
	}
	return m
}()

// PDXID returns the id used in PDX thumbnail URLs for a monster on server.
func PDXID(server string, id int) int {
	if strings.EqualFold(server, "JP") {
		if mapped, ok := pdxJPAdjustments[id]; ok {
			return mapped
		}
	}
	return id
}

// Stats summarizes a Run.
type Stats struct {
	Assets     int
	Skipped    int
	Downloaded int
	Failed     int
	Corrected  int
	Missing    int
}

// Options configures a Downloader. Each template has one %s verb.
type Options struct {
	OutputDir        string
	Server           string
	GamewithTemplate string
	PDXTemplate      string
	Delay            time.Duration
	HTTP             *http.Client
	Logger           *zap.Logger
}

// Downloader fetches thumbnails from two mirrors and picks one per monster.
type Downloader struct {
	opts   Options
	logger *zap.Logger
}

// NewDownloader constructs a Downloader.
//
// Precondition: opts.OutputDir must be non-empty.
func NewDownloader(opts Options) *Downloader {
	if opts.HTTP == nil {
		opts.HTTP = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{opts: opts, logger: logger}
}

func (d *Downloader) dir(name string) string {
	return filepath.Join(d.opts.OutputDir, name)
}

// Run processes every monster asset. Individual download failures are logged
// and counted; only directory creation and cancellation abort the run.
//
// Postcondition: for each processed monster, corrected_data holds the PDX
// image if one exists, else the gamewith image, else nothing.
func (d *Downloader) Run(ctx context.Context, assets []Asset) (Stats, error) {
	stats := Stats{Assets: len(assets)}
	for _, name := range []string{PDXDir, GamewithDir, OverrideDir, CorrectedDir} {
		if err := os.MkdirAll(d.dir(name), 0755); err != nil {
			return stats, fmt.Errorf("creating %s: %w", name, err)
		}
	}
	d.logger.Info("found assets", zap.Int("count", len(assets)), zap.String("server", d.opts.Server))

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		fileName := assetFileName(asset.URL)
		rawID, ok := MonsterID(fileName)
		if !ok {
			d.logger.Debug("skipping", zap.String("file", fileName))
			stats.Skipped++
			continue
		}
		if err := d.process(ctx, rawID, &stats); err != nil {
			return stats, err
		}
	}

	d.logger.Info("portrait download complete",
		zap.Int("assets", stats.Assets),
		zap.Int("skipped", stats.Skipped),
		zap.Int("downloaded", stats.Downloaded),
		zap.Int("failed", stats.Failed),
		zap.Int("corrected", stats.Corrected),
		zap.Int("missing", stats.Missing),
	)
	return stats, nil
}

func (d *Downloader) process(ctx context.Context, rawID string, stats *Stats) error {
	strippedID := strings.TrimLeft(rawID, "0")
	if strippedID == "" {
		strippedID = "0"
	}
	outName := strippedID + ".png"
	log := d.logger.With(zap.String("monster", strippedID))

	gamewithPath := filepath.Join(d.dir(GamewithDir), outName)
	switch {
	case strings.EqualFold(d.opts.Server, "NA"):
		// gamewith only carries JP monsters.
	case exists(gamewithPath):
		log.Debug("skipping existing file", zap.String("path", gamewithPath))
	default:
		url := fmt.Sprintf(d.opts.GamewithTemplate, rawID)
		if err := d.fetch(ctx, url, gamewithPath, stats, log); err != nil {
			return err
		}
	}

	pdxPath := filepath.Join(d.dir(PDXDir), outName)
	if exists(pdxPath) {
		log.Debug("skipping existing file", zap.String("path", pdxPath))
	} else {
		pdxID := strippedID
		if n, err := strconv.Atoi(strippedID); err == nil {
			pdxID = strconv.Itoa(PDXID(d.opts.Server, n))
		}
		url := fmt.Sprintf(d.opts.PDXTemplate, pdxID)
		if err := d.fetch(ctx, url, pdxPath, stats, log); err != nil {
			return err
		}
	}

	correctedPath := filepath.Join(d.dir(CorrectedDir), outName)
	var src string
	switch {
	case exists(pdxPath):
		src = pdxPath
	case exists(gamewithPath):
		src = gamewithPath
	default:
		log.Warn("failed to copy any file", zap.String("path", correctedPath))
		stats.Missing++
		return nil
	}
	if err := copyFile(src, correctedPath); err != nil {
		log.Warn("copy failed", zap.String("from", src), zap.Error(err))
		stats.Missing++
		return nil
	}
	stats.Corrected++
	return nil
}

// fetch downloads url to path, counting the outcome. It returns an error only
// when ctx is done.
func (d *Downloader) fetch(ctx context.Context, url, path string, stats *Stats, log *zap.Logger) error {
	err := download(ctx, d.opts.HTTP, url, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("download failed", zap.String("url", url), zap.Error(err))
		stats.Failed++
	} else {
		stats.Downloaded++
	}
	return sleep(ctx, d.opts.Delay)
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// download writes url's body to path via a temporary file so a failed
// transfer never leaves a partial image behind.
func download(ctx context.Context, hc *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
