// Package geoip resolves the country of queried servers from a MaxMind GeoLite2 database.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/vars"
)

// ErrDisabled is returned when no database path is configured.
var ErrDisabled = errors.New("geoip is disabled")

// Client downloads the database. Its timeout bounds the whole transfer.
var Client = &http.Client{Timeout: 2 * time.Minute}

// EnsureDB makes sure path holds a database younger than maxAge,
// downloading a fresh copy from url when it is missing or outdated.
// An outdated file is kept when url is empty.
func EnsureDB(ctx context.Context, path, url string, maxAge time.Duration) error {
	if path == "" {
		return ErrDisabled
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && time.Since(info.ModTime()) < maxAge:
		log.Debug().Str("path", path).Msg("GeoIP database is up to date")
		return nil
	case err == nil:
		log.Info().Str("path", path).Msg("GeoIP database is outdated, updating...")
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", path).Msg("GeoIP database missing, downloading...")
	default:
		return err
	}

	if url == "" {
		if err == nil {
			return nil
		}
		return fmt.Errorf("%s is missing and no download URL is set", path)
	}

	return download(ctx, path, url)
}

// download writes url to path through a temporary file in the same directory.
func download(ctx context.Context, path, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", vars.UserAgent())

	resp, err := Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	log.Info().Str("path", path).Int64("bytes", n).Msg("GeoIP database downloaded")

	return nil
}
