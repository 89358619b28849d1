package domain

import "strconv"

// Domain is a hostname to be probed for web reachability. It is not validated;
// malformed values simply fail every request and end up Absent.
type Domain string

// String returns the domain as a plain string.
func (d Domain) String() string { return string(d) }

// Variant identifies one of the URL forms a domain is probed with.
type Variant string

const (
	// VariantHTTP is plain http://{domain}.
	VariantHTTP Variant = "http"
	// VariantHTTPS is https://{domain}.
	VariantHTTPS Variant = "https"
	// VariantWWW is https://www.{domain}.
	VariantWWW Variant = "https-www"
)

// URL builds the URL probed for the domain under this variant.
func (v Variant) URL(d Domain) string {
	switch v {
	case VariantHTTPS:
		return "https://" + string(d)
	case VariantWWW:
		return "https://www." + string(d)
	default:
		return "http://" + string(d)
	}
}

// ProbeResult is the terminal outcome of probing one domain. The zero value is
// Absent; a Found result carries the status code and the URL that answered.
type ProbeResult struct {
	found      bool
	statusCode int
	url        string
}

// Found returns a result for an endpoint that answered with statusCode at url.
func Found(statusCode int, url string) ProbeResult {
	return ProbeResult{found: true, statusCode: statusCode, url: url}
}

// Absent returns a result for a domain with no reachable endpoint.
func Absent() ProbeResult { return ProbeResult{} }

// IsFound reports whether an endpoint was found.
func (r ProbeResult) IsFound() bool { return r.found }

// StatusCode is the HTTP status of the found endpoint, or 0 when Absent.
func (r ProbeResult) StatusCode() int { return r.statusCode }

// URL is the canonical URL of the found endpoint, or "" when Absent.
func (r ProbeResult) URL() string { return r.url }

func (r ProbeResult) String() string {
	if !r.found {
		return "absent"
	}

	return strconv.Itoa(r.statusCode) + " " + r.url
}

// Result pairs a domain with the outcome of its probe.
type Result struct {
	Domain Domain
	Probe  ProbeResult
}

// ResultSet holds one Result per probed domain in completion order, which is
// not necessarily the order the domains were submitted in.
type ResultSet []Result

// Found returns the entries whose probe found an endpoint, keeping their order.
func (rs ResultSet) Found() []Result {
	out := make([]Result, 0, len(rs))
	for _, r := range rs {
		if r.Probe.IsFound() {
			out = append(out, r)
		}
	}

	return out
}
