// Package metrics exposes Prometheus collectors for the store pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	feedDownloadsTotal  *prometheus.CounterVec
	feedParseRowsTotal  *prometheus.CounterVec
	postsPublishedTotal *prometheus.CounterVec
	postsDeletedTotal   prometheus.Counter
	discountsTotal      prometheus.Counter
	ordersTotal         *prometheus.CounterVec

	once sync.Once
)

// Download outcomes recorded by ObserveDownload.
const (
	DownloadUpdated   = "updated"
	DownloadUnchanged = "unchanged"
	DownloadError     = "error"
)

// Post variants recorded by ObservePost.
const (
	PostDiscount     = "discount"
	PostRegular      = "regular"
	PostTextFallback = "text_fallback"
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		feedDownloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_feed_downloads_total",
				Help: "Total feed download attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		feedParseRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_feed_parse_rows_total",
				Help: "Total feed rows seen by the parser, labeled by admission result.",
			},
			[]string{"result"},
		)

		postsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_posts_published_total",
				Help: "Total channel posts published, labeled by message variant.",
			},
			[]string{"variant"},
		)

		postsDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "store_posts_deleted_total",
				Help: "Total stale channel posts deleted by the reaper.",
			},
		)

		discountsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "store_price_drops_total",
				Help: "Total price drops observed against the ledger.",
			},
		)

		ordersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_orders_submitted_total",
				Help: "Total CRM order submissions, labeled by status.",
			},
			[]string{"status"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDownload increments the feed download counter for the outcome.
func ObserveDownload(outcome string) {
	if feedDownloadsTotal != nil {
		feedDownloadsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveParse records row admission counts for one parse pass.
func ObserveParse(admitted, emptyName, excluded int) {
	if feedParseRowsTotal == nil {
		return
	}
	feedParseRowsTotal.WithLabelValues("admitted").Add(float64(admitted))
	feedParseRowsTotal.WithLabelValues("empty_name").Add(float64(emptyName))
	feedParseRowsTotal.WithLabelValues("excluded").Add(float64(excluded))
}

// ObservePost increments the published-post counter for the variant.
func ObservePost(variant string) {
	if postsPublishedTotal != nil {
		postsPublishedTotal.WithLabelValues(variant).Inc()
	}
}

// ObservePostDeleted increments the reaper delete counter.
func ObservePostDeleted() {
	if postsDeletedTotal != nil {
		postsDeletedTotal.Inc()
	}
}

// ObserveDiscount increments the observed price-drop counter.
func ObserveDiscount() {
	if discountsTotal != nil {
		discountsTotal.Inc()
	}
}

// ObserveOrder increments the order submission counter for the status.
func ObserveOrder(status string) {
	if ordersTotal != nil {
		ordersTotal.WithLabelValues(status).Inc()
	}
}
