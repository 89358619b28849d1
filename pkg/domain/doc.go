// Package domain contains the core types shared across the prober: the
// domains read from input, the URL variants probed for each of them and the
// results produced. The types are free of infrastructure concerns so they can
// be passed between the prober, the dispatcher and the result writers.
package domain
