package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/module"
)

// Source produces module descriptors from one origin. A source failure
// contributes an empty set for the load cycle, never a failed load.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Fetch returns the source's current descriptors. Implementations
	// validate untrusted entries before returning them.
	Fetch(ctx context.Context) ([]module.Descriptor, error)
}

// LocalSource serves the compiled-in local registry. Entries always have
// inline capabilities and are the most trusted merge level.
type LocalSource struct {
	entries []module.Descriptor
}

// NewLocalSource creates a source over compiled-in descriptors. The core
// descriptor is prepended when absent so it is always present and first.
func NewLocalSource(entries []module.Descriptor) *LocalSource {
	hasCore := false
	for _, d := range entries {
		if d.ID == module.CoreModuleID {
			hasCore = true
			break
		}
	}
	if !hasCore {
		core := module.Descriptor{
			ID:           module.CoreModuleID,
			RoutePath:    "/",
			IsLocal:      true,
			DisplayName:  "Atlas Core",
			Capabilities: &module.CapabilityMap{Slots: map[module.Slot][]module.Widget{}},
		}
		entries = append([]module.Descriptor{core}, entries...)
	}

	out := make([]module.Descriptor, len(entries))
	for i := range entries {
		out[i] = entries[i].Clone()
		out[i].IsLocal = true
		out[i].Origin = module.SourceLocal
	}
	return &LocalSource{entries: out}
}

func (s *LocalSource) Name() string { return "local" }

func (s *LocalSource) Fetch(ctx context.Context) ([]module.Descriptor, error) {
	out := make([]module.Descriptor, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[i].Clone()
	}
	return out, nil
}

// manifestDocument is the wire shape of the local manifest file.
type manifestDocument struct {
	Modules []json.RawMessage `json:"modules"`
}

// ManifestSource reads the optional local manifest. Absence of the file
// (or a 404 / non-JSON response for URL-backed manifests) is treated as
// "no local manifest", not an error.
type ManifestSource struct {
	location string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.SugaredLogger
}

// NewManifestSource creates a manifest source for a file path or URL.
func NewManifestSource(location string, timeout time.Duration, logger *zap.SugaredLogger) *ManifestSource {
	return &ManifestSource{
		location: location,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (s *ManifestSource) Name() string { return "manifest" }

// Location returns the resolved manifest location. File-backed manifests
// resolve to an absolute path suitable for fsnotify watching; URL-backed
// manifests return an empty path.
func (s *ManifestSource) Location() (string, error) {
	if s.location == "" {
		return "", nil
	}
	resolved, isFile, err := detectLocation(s.location)
	if err != nil || !isFile {
		return "", err
	}
	return resolved, nil
}

func (s *ManifestSource) Fetch(ctx context.Context) ([]module.Descriptor, error) {
	if s.location == "" {
		return nil, nil
	}

	resolved, isFile, err := detectLocation(s.location)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, err.Error())
	}

	var body []byte
	if isFile {
		body, err = os.ReadFile(resolved)
		if os.IsNotExist(err) {
			s.logger.Debugw("No local manifest present", "path", resolved)
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrapf(errors.ErrSourceUnavailable, "reading manifest: %v", err)
		}
	} else {
		body, err = s.fetchURL(ctx, resolved)
		if err != nil || body == nil {
			return nil, err
		}
	}

	var doc manifestDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		// A non-JSON body usually means a generic fallback page was
		// served in place of the manifest. Treat as absent.
		s.logger.Debugw("Manifest body is not JSON, treating as absent",
			"location", resolved)
		return nil, nil
	}

	return validateRaw(doc.Modules, s.Name(), s.logger), nil
}

func (s *ManifestSource) fetchURL(ctx context.Context, manifestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "building manifest request: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "fetching manifest: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		s.logger.Debugw("No local manifest at URL", "url", manifestURL)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable,
			"manifest fetch: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "json") {
		// SPA dev servers answer unknown paths with the index page.
		s.logger.Debugw("Manifest response is not JSON, treating as absent",
			"url", manifestURL,
			"content_type", contentType)
		return nil, nil
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxSourceBody))
}

// BackendSource fetches the tenant module list endpoint: a JSON array of
// raw descriptor objects. Every element passes through the validator.
type BackendSource struct {
	url    string
	token  string
	client *http.Client
	logger *zap.SugaredLogger
}

// NewBackendSource creates a backend list source. An empty URL disables it.
func NewBackendSource(backendURL, token string, timeout time.Duration, logger *zap.SugaredLogger) *BackendSource {
	return &BackendSource{
		url:    backendURL,
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *BackendSource) Name() string { return "backend" }

func (s *BackendSource) Fetch(ctx context.Context) ([]module.Descriptor, error) {
	if s.url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "building backend request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "fetching backend module list: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable,
			"backend module list: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBody))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "reading backend response: %v", err)
	}

	var rawList []json.RawMessage
	if err := json.Unmarshal(body, &rawList); err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "backend response is not a JSON array: %v", err)
	}

	return validateRaw(rawList, s.Name(), s.logger), nil
}

// maxSourceBody bounds descriptor source responses.
const maxSourceBody = 4 << 20

// validateRaw runs every raw entry through the validator, dropping
// invalid entries with a logged reason instead of discarding the batch.
func validateRaw(rawList []json.RawMessage, sourceName string, logger *zap.SugaredLogger) []module.Descriptor {
	out := make([]module.Descriptor, 0, len(rawList))
	for i, raw := range rawList {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warnw("Dropping undecodable descriptor",
				"source", sourceName,
				"index", i,
				"error", err)
			continue
		}
		d := module.Validate(v)
		if d == nil {
			logger.Warnw("Dropping invalid descriptor",
				"source", sourceName,
				"index", i,
				"error", errors.ErrMalformedDescriptor)
			continue
		}
		out = append(out, *d)
	}
	return out
}

// detectLocation resolves a manifest or bundle location string into
// either an absolute file path or a URL, using go-getter's detection.
// Returns the resolved location and whether it is a local file.
func detectLocation(location string) (string, bool, error) {
	// Handle tilde expansion first (go-getter doesn't do this)
	if strings.HasPrefix(location, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, errors.Wrap(err, "failed to get home directory")
		}
		location = filepath.Join(home, location[2:])
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location, false, nil
	}

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}

	detected, err := getter.Detect(location, pwd, getter.Detectors)
	if err != nil {
		return "", false, errors.Wrap(err, "invalid location")
	}

	u, err := url.Parse(detected)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to parse location")
	}

	switch u.Scheme {
	case "file":
		return u.Path, true, nil
	case "http", "https":
		return detected, false, nil
	case "":
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", false, errors.Wrap(err, "failed to make absolute path")
		}
		return abs, true, nil
	default:
		return "", false, errors.Newf("unsupported location scheme: %s", u.Scheme)
	}
}
