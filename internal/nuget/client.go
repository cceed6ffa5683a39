// Package nuget retrieves the Win32 metadata package from a NuGet v3 feed.
package nuget

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

const (
	DefaultIndexURL = "https://api.nuget.org/v3/index.json"
	PackageID       = "microsoft.windows.sdk.win32metadata"
)

var (
	ErrNoBaseAddress = errors.New("nuget: feed has no PackageBaseAddress resource")
	ErrNoVersions    = errors.New("nuget: package has no versions")
	ErrNoMetadata    = errors.New("nuget: package has no .winmd entry")
)

// StatusError reports a non-200 response from the feed.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nuget: GET %s: status %d", e.URL, e.StatusCode)
}

type Client struct {
	http     *http.Client
	indexURL string
	pkg      string
	log      *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithIndexURL(url string) Option {
	return func(cl *Client) { cl.indexURL = url }
}

func WithLogger(log *zap.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     http.DefaultClient,
		indexURL: DefaultIndexURL,
		pkg:      PackageID,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest downloads the highest published version of the metadata package and
// writes its first .winmd entry to dest.
func (c *Client) Latest(ctx context.Context, dest string) (*version.Version, error) {
	base, err := c.baseAddress(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := c.versions(ctx, base)
	if err != nil {
		return nil, err
	}
	latest := versions[len(versions)-1]
	c.log.Info("latest metadata package", zap.String("version", latest.Original()))

	v := latest.Original()
	nupkg, err := c.get(ctx, fmt.Sprintf("%s%s/%s/%s.%s.nupkg", base, c.pkg, v, c.pkg, v))
	if err != nil {
		return nil, err
	}
	if err := extractMetadata(nupkg, dest); err != nil {
		return nil, err
	}
	c.log.Info("metadata written", zap.String("path", dest))
	return latest, nil
}

// Versions lists the published versions of the package in ascending order.
func (c *Client) Versions(ctx context.Context) ([]*version.Version, error) {
	base, err := c.baseAddress(ctx)
	if err != nil {
		return nil, err
	}
	return c.versions(ctx, base)
}

func (c *Client) baseAddress(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.indexURL)
	if err != nil {
		return "", err
	}
	index, err := parse[serviceIndex](body)
	if err != nil {
		return "", fmt.Errorf("nuget: service index: %w", err)
	}
	for _, r := range index.Resources {
		if strings.Contains(r.Type, "PackageBaseAddress") {
			c.log.Debug("package base address", zap.String("url", r.ID))
			return r.ID, nil
		}
	}
	return "", ErrNoBaseAddress
}

func (c *Client) versions(ctx context.Context, base string) ([]*version.Version, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s%s/index.json", base, c.pkg))
	if err != nil {
		return nil, err
	}
	list, err := parse[versionList](body)
	if err != nil {
		return nil, fmt.Errorf("nuget: version list: %w", err)
	}
	if len(list.Versions) == 0 {
		return nil, ErrNoVersions
	}

	ordered := make([]*version.Version, 0, len(list.Versions))
	for _, s := range list.Versions {
		v, err := version.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("nuget: parsing version %q: %w", s, err)
		}
		ordered = append(ordered, v)
	}
	sort.Sort(version.Collection(ordered))
	return ordered, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func extractMetadata(nupkg []byte, dest string) error {
	r, err := zip.NewReader(bytes.NewReader(nupkg), int64(len(nupkg)))
	if err != nil {
		return fmt.Errorf("nuget: reading package: %w", err)
	}
	for _, f := range r.File {
		if filepath.Ext(f.Name) != ".winmd" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("nuget: reading %s: %w", f.Name, err)
		}
		if dir := filepath.Dir(dest); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		return os.WriteFile(dest, data, 0o644)
	}
	return ErrNoMetadata
}

func parse[T any](source []byte) (T, error) {
	var v T
	err := json.Unmarshal(source, &v)
	return v, err
}

type serviceIndex struct {
	Resources []resource `json:"resources"`
}

type resource struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
}

type versionList struct {
	Versions []string `json:"versions"`
}
