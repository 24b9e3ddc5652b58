// SPDX-License-Identifier: AGPL-3.0-only
package stats

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookshare",
		Name:      "api_requests_total",
		Help:      "Requests sent to the backend, by operation and outcome.",
	}, []string{"op", "outcome"})

	Rollbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookshare",
		Name:      "optimistic_rollbacks_total",
		Help:      "Optimistic mutations reverted after a failed request.",
	}, []string{"op"})

	RejectedToggles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bookshare",
		Name:      "rejected_toggles_total",
		Help:      "Like toggles refused because another toggle on the post was in flight.",
	})

	RelayMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookshare",
		Name:      "relay_messages_total",
		Help:      "Chat frames crossing the live channel.",
	}, []string{"direction"})

	FeedPages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bookshare",
		Name:      "feed_pages_loaded_total",
		Help:      "Feed pages fetched successfully.",
	})
)

func init() {
	prometheus.MustRegister(APIRequests, Rollbacks, RejectedToggles, RelayMessages, FeedPages)
}
