// Package prober decides, for one domain, whether a web endpoint is reachable
// and which URL variant of it is canonical.
package prober

import (
	"context"
	"net/http"
	"webprobe/pkg/domain"
)

// Prober probes a single domain. Implementations never fail: every network
// problem is absorbed and turned into a fallback attempt or an Absent result.
//
//go:generate mockgen -package mockprober -source=interface.go -destination=mock/mockprober.go *
type Prober interface {
	Probe(ctx context.Context, d domain.Domain) domain.ProbeResult
}

// HTTPDoer is the HTTP capability the prober needs. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
