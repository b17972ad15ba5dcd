// Package remote loads capability bundles for modules that declare a
// remote entry location but no inline capability set. Loads for distinct
// modules run independently: a slow or failing load never affects any
// other module.
package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/atlasview/atlas/errors"
)

// CapabilitiesKey is the well-known export key every capability bundle
// must expose through its container.
const CapabilitiesKey = "./capabilities"

// Container is the remote bundle contract: an object exposing named
// exports. HTTP-backed containers serve JSON exports; in-process
// containers (locally linked bundles, tests) may expose functions and
// awaitables that require the unwrap protocol.
type Container interface {
	// Get returns the export registered under key. A missing export is
	// an error.
	Get(key string) (interface{}, error)
}

// ContainerFetcher obtains the container behind a remote entry location.
type ContainerFetcher func(ctx context.Context, entryURL string) (Container, error)

// mapContainer is a Container over a fixed export table.
type mapContainer struct {
	exports map[string]interface{}
}

// NewContainer wraps an export table in a Container. Used by in-process
// bundles and tests.
func NewContainer(exports map[string]interface{}) Container {
	return &mapContainer{exports: exports}
}

func (c *mapContainer) Get(key string) (interface{}, error) {
	v, ok := c.exports[key]
	if !ok {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure,
			"bundle has no export %q", key)
	}
	return v, nil
}

// maxBundleBody bounds remote bundle documents.
const maxBundleBody = 8 << 20

// bundleDocument is the wire shape of an HTTP capability bundle: a JSON
// object whose top-level keys are export names.
type bundleDocument map[string]json.RawMessage

// FetchContainer retrieves a bundle document over HTTP and exposes its
// top-level keys as container exports.
func FetchContainer(ctx context.Context, client *http.Client, entryURL string) (Container, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entryURL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure, "building bundle request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure, "fetching bundle: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure,
			"bundle fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleBody))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure, "reading bundle: %v", err)
	}

	var doc bundleDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure, "bundle is not a JSON object: %v", err)
	}

	exports := make(map[string]interface{}, len(doc))
	for key, raw := range doc {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		exports[key] = v
	}

	return NewContainer(exports), nil
}
