// Package obssumm downloads RHESSI observing summary data from the public
// data archive mirrors. Only whole days are supported.
package obssumm

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"rhessibproj/internal/models"
)

// DataServers are the RHESSI archive mirrors
var DataServers = []string{
	"http://hesperia.gsfc.nasa.gov/hessidata/",
	"http://hessi.ssl.berkeley.edu/hessidata/",
	"http://soleil.i4ds.ch/hessidata/",
}

// ErrBadStatus is returned when the server answers with a non-2xx status
var ErrBadStatus = errors.New("unexpected HTTP status")

// URLForDate returns the archive location of the day containing t
func URLForDate(server string, t time.Time) string {
	return server + t.UTC().Format("2006/01/02")
}

// FileName is the local name a day's download is stored under
func FileName(t time.Time) string {
	return "obssumm_" + t.UTC().Format("20060102")
}

// Fetcher downloads observing summary files
type Fetcher struct {
	// Server is the archive root, one of DataServers by default
	Server string

	Client *http.Client
	Log    *logrus.Logger
}

// NewFetcher creates a fetcher for the first mirror
func NewFetcher(log *logrus.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Server: DataServers[0],
		Client: &http.Client{Timeout: timeout},
		Log:    log,
	}
}

// Fetch downloads the data of the day the time range starts on into dir.
// It returns the local file name and the response headers.
func (f *Fetcher) Fetch(ctx context.Context, tr models.TimeRange, dir string) (string, http.Header, error) {
	url := URLForDate(f.Server, tr.Start)
	if f.Log != nil {
		f.Log.Infof("Downloading file: %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to create request for %s", url)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.Header, errors.Wrapf(ErrBadStatus, "%s returned %s", url, resp.Status)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", resp.Header, errors.Wrapf(err, "failed to create %s", dir)
	}
	filename := filepath.Join(dir, FileName(tr.Start))
	file, err := os.Create(filename)
	if err != nil {
		return "", resp.Header, errors.Wrapf(err, "failed to create %s", filename)
	}

	n, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filename)
		return "", resp.Header, errors.Wrapf(err, "failed to store %s", url)
	}

	if f.Log != nil {
		f.Log.Debugf("Stored %d bytes in %s", n, filename)
	}
	return filename, resp.Header, nil
}
