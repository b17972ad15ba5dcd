package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atlasview/atlas/config"
	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/module"
	"github.com/atlasview/atlas/registry"
)

// Loader resolves remote capability bundles and patches them back into
// the registry. Failures are terminal for the attempt: no retry or
// backoff is scheduled, and the module stays pending until a future load
// cycle tries again.
type Loader struct {
	fetch   ContainerFetcher
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithContainerFetcher overrides bundle acquisition. In-process bundles
// and tests use this to serve containers without HTTP.
func WithContainerFetcher(fetch ContainerFetcher) Option {
	return func(l *Loader) {
		l.fetch = fetch
	}
}

// NewLoader creates a Loader from configuration.
func NewLoader(cfg config.LoaderConfig, logger *zap.SugaredLogger, opts ...Option) *Loader {
	timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4.0
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	l := &Loader{
		fetch: func(ctx context.Context, entryURL string) (Container, error) {
			return FetchContainer(ctx, client, entryURL)
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ApplyConfig retunes the fetch rate limit in place. Config reloads call
// this so limit changes take effect without a restart; the fetch timeout
// stays fixed at construction.
func (l *Loader) ApplyConfig(cfg config.LoaderConfig) {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4.0
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l.limiter.SetLimit(rate.Limit(rps))
	l.limiter.SetBurst(burst)
}

// Resolve fetches and normalizes the capability bundle for one pending
// descriptor. Invoked only for descriptors with a remote entry location
// and no capabilities yet.
func (l *Loader) Resolve(ctx context.Context, desc module.Descriptor) (*module.CapabilityMap, error) {
	if !desc.NeedsRemoteLoad() {
		return nil, errors.Newf("module %s does not need a remote load", desc.ID)
	}

	// Short id correlating the log lines of one attempt.
	attempt := uuid.NewString()[:8]

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteLoadFailure, "rate limit wait: %v", err)
	}

	l.logger.Debugw("Resolving remote capabilities",
		"module", desc.ID,
		"url", desc.RemoteEntryURL,
		"attempt", attempt)

	container, err := l.fetch(ctx, desc.RemoteEntryURL)
	if err != nil {
		return nil, err
	}

	export, err := container.Get(CapabilitiesKey)
	if err != nil {
		return nil, err
	}

	unwrapped, err := unwrapExport(ctx, export)
	if err != nil {
		return nil, err
	}

	caps, err := extractCapabilities(unwrapped)
	if err != nil {
		return nil, err
	}

	l.logger.Infow("Remote capabilities resolved",
		"module", desc.ID,
		"attempt", attempt)
	return caps, nil
}

// ResolveAll launches an independent load for every pending remote
// descriptor in the registry and patches successful results back in.
// Results are applied against the load generation captured at launch, so
// a reload that supersedes the cycle discards late arrivals. Returns
// once all loads have finished.
func (l *Loader) ResolveAll(ctx context.Context, reg *registry.Registry) {
	pending, generation := reg.Pending()
	if len(pending) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, desc := range pending {
		wg.Add(1)
		go func(d module.Descriptor) {
			defer wg.Done()
			l.resolveOne(ctx, reg, d, generation)
		}(desc)
	}
	wg.Wait()
}

// ResolveAllAsync is ResolveAll without waiting: composition reflects
// whatever subset of modules have resolved capabilities at call time,
// and widgets pop in as loads complete.
func (l *Loader) ResolveAllAsync(ctx context.Context, reg *registry.Registry) {
	pending, generation := reg.Pending()
	for _, desc := range pending {
		go l.resolveOne(ctx, reg, desc, generation)
	}
}

// resolveOne is the isolation boundary for a single module: any failure
// is logged and absorbed here, never shared with other loads.
func (l *Loader) resolveOne(ctx context.Context, reg *registry.Registry, desc module.Descriptor, generation uint64) {
	caps, err := l.Resolve(ctx, desc)
	if err != nil {
		l.logger.Warnw("Remote capability load failed",
			"module", desc.ID,
			"url", desc.RemoteEntryURL,
			"error", err)
		return
	}
	reg.ApplyCapabilities(desc.ID, caps, generation)
}
