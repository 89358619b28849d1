package prober

import (
	"context"
	"net/http"
	"time"
	"webprobe/internal/config"
	"webprobe/pkg/domain"
	"webprobe/pkg/logger"
	"webprobe/pkg/metrics"
	"webprobe/pkg/serrors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultRequestTimeout bounds every single request of a probe.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultUserAgent is the browser User-Agent sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/66.0.3359.117 Safari/537.36"

	tracerName = "webprobe/internal/prober"
)

// Options configure an HTTPProber.
type Options struct {
	// Client issues the requests. Nil means NewHTTPClient(DefaultRequestTimeout).
	Client HTTPDoer
	// UserAgent is sent with every request. Empty means DefaultUserAgent.
	UserAgent string
	// StrictWWWCheck escalates to https://www. only when the https response itself
	// redirects. When false the original http status decides for 302 and 307.
	StrictWWWCheck bool
	// Metrics receives request and outcome measurements. May be nil.
	Metrics *metrics.Probe
	// TracerProvider creates the request spans. Nil means the global provider.
	TracerProvider trace.TracerProvider
}

// NewOptions builds Options from the application config. Metrics and tracing
// are left for the caller to wire.
func NewOptions(cfg *config.Config) Options {
	timeout := cfg.Probe.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return Options{
		Client:         NewHTTPClient(timeout),
		UserAgent:      cfg.Probe.UserAgent,
		StrictWWWCheck: cfg.Probe.StrictWWWCheck,
	}
}

// NewHTTPClient returns a client that never follows redirects, so 3xx answers
// reach the prober as they are, and that gives up on a request after timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// HTTPProber implements Prober with the http -> https -> https://www. fallback
// protocol. It is safe for concurrent use.
type HTTPProber struct {
	client    HTTPDoer
	userAgent string
	strictWWW bool
	metrics   *metrics.Probe
	tracer    trace.Tracer
}

var _ Prober = (*HTTPProber)(nil)

// New creates an HTTPProber.
func New(opts Options) *HTTPProber {
	p := &HTTPProber{
		client:    opts.Client,
		userAgent: opts.UserAgent,
		strictWWW: opts.StrictWWWCheck,
		metrics:   opts.Metrics,
	}
	if p.client == nil {
		p.client = NewHTTPClient(DefaultRequestTimeout)
	}
	if p.userAgent == "" {
		p.userAgent = DefaultUserAgent
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	p.tracer = tp.Tracer(tracerName)

	return p
}

// Probe determines the canonical reachable URL of d.
//
// It GETs http://d first. A 301, 302 or 307 there escalates to https://d and,
// when the www check holds, to https://www.d; the first of those answering
// with anything but 404 wins. Otherwise a non-404 http answer wins. When
// http://d cannot be reached at all, https://www.d is tried once. Anything
// else is Absent. Requests are issued one after the other.
//
// A probe whose requests were aborted by cancelling ctx is Absent, so a Found
// result always comes from a complete run of the protocol.
func (p *HTTPProber) Probe(ctx context.Context, d domain.Domain) domain.ProbeResult {
	ctx = logger.WithFields(ctx, zap.String("domain", d.String()))
	logger.Info(ctx, "checking domain")

	res, variant := p.probe(ctx, d)
	p.metrics.RecordOutcome(ctx, res.IsFound(), string(variant))

	return res
}

func (p *HTTPProber) probe(ctx context.Context, d domain.Domain) (domain.ProbeResult, domain.Variant) {
	plain, err := p.get(ctx, domain.VariantHTTP, d)
	if err != nil {
		logger.Debug(ctx, "http unreachable, trying https://www.", zap.Error(err))

		return p.fallback(ctx, d)
	}

	if isRedirect(plain) {
		if res, variant, ok := p.escalate(ctx, d, plain); ok {
			return res, variant
		}
	}

	if plain != http.StatusNotFound {
		return domain.Found(plain, domain.VariantHTTP.URL(d)), domain.VariantHTTP
	}

	return domain.Absent(), ""
}

// escalate follows a redirecting http answer to the https variants. It reports
// false when neither of them produced a result and the http answer decides.
// An aborted request ends the probe as Absent.
func (p *HTTPProber) escalate(ctx context.Context, d domain.Domain, plain int) (domain.ProbeResult, domain.Variant, bool) {
	secure, err := p.get(ctx, domain.VariantHTTPS, d)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Absent(), "", true
		}
		logger.Warn(ctx, "could not connect", zap.String("url", domain.VariantHTTPS.URL(d)), zap.Error(err))

		return domain.Absent(), "", false
	}

	if p.needsWWW(plain, secure) {
		www, err := p.get(ctx, domain.VariantWWW, d)
		switch {
		case err != nil && ctx.Err() != nil:
			return domain.Absent(), "", true
		case err != nil:
			logger.Warn(ctx, "could not connect", zap.String("url", domain.VariantWWW.URL(d)), zap.Error(err))
		case www != http.StatusNotFound:
			return domain.Found(www, domain.VariantWWW.URL(d)), domain.VariantWWW, true
		}
	}

	if secure != http.StatusNotFound {
		return domain.Found(secure, domain.VariantHTTPS.URL(d)), domain.VariantHTTPS, true
	}

	return domain.Absent(), "", false
}

// needsWWW decides whether https://www. must be tried after a redirecting http
// answer. The lenient form mirrors the historical check, which only looks at
// the https status for 301 and reuses the http status for 302 and 307. The
// strict form requires the https answer itself to redirect.
func (p *HTTPProber) needsWWW(plain, secure int) bool {
	if p.strictWWW {
		return isRedirect(secure)
	}

	return secure == http.StatusMovedPermanently ||
		plain == http.StatusFound ||
		plain == http.StatusTemporaryRedirect
}

func (p *HTTPProber) fallback(ctx context.Context, d domain.Domain) (domain.ProbeResult, domain.Variant) {
	www, err := p.get(ctx, domain.VariantWWW, d)
	if err != nil {
		logger.Warn(ctx, "could not connect", zap.String("url", domain.VariantWWW.URL(d)), zap.Error(err))

		return domain.Absent(), ""
	}
	if www == http.StatusNotFound {
		return domain.Absent(), ""
	}

	return domain.Found(www, domain.VariantWWW.URL(d)), domain.VariantWWW
}

// get issues a single GET for the variant of d and returns the status code.
// The body is discarded unread.
func (p *HTTPProber) get(ctx context.Context, variant domain.Variant, d domain.Domain) (int, error) {
	url := variant.URL(d)

	ctx, span := p.tracer.Start(ctx, "probe "+string(variant),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url.full", url),
			attribute.String("webprobe.variant", string(variant)),
		))
	defer span.End()

	start := time.Now()
	status, err := p.do(ctx, url)
	p.metrics.RecordRequest(ctx, string(variant), status, err != nil, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreachable")

		return 0, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	return status, nil
}

func (p *HTTPProber) do(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, serrors.Wrap(serrors.ErrUnreachable, err, "could not create request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, serrors.Wrap(serrors.ErrUnreachable, err, "could not send request")
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}

	return resp.StatusCode, nil
}

func isRedirect(status int) bool {
	return status == http.StatusMovedPermanently ||
		status == http.StatusFound ||
		status == http.StatusTemporaryRedirect
}
