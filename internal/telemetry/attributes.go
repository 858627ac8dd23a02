// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	CrawlPageKey    = "crawl.page"
	CrawlReviewsKey = "crawl.reviews"
	ReviewURLKey    = "review.url"
	TracksKey       = "review.tracks"

	TrackIDKey  = "track.id"
	ProviderKey = "track.provider"
	ModeKey     = "run.mode"
	ActionKey   = "track.action"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// TrackAttributes creates span attributes identifying a track.
func TrackAttributes(trackID, provider, reviewURL string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TrackIDKey, trackID),
		attribute.String(ProviderKey, provider),
		attribute.String(ReviewURLKey, reviewURL),
	}
}

// PageAttributes creates span attributes for one listing page.
func PageAttributes(page, reviews int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CrawlPageKey, page),
		attribute.Int(CrawlReviewsKey, reviews),
	}
}
