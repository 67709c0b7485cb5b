package discord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiCallCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_discord_api_calls",
	Help: "Number of discord REST calls made for moderation, by method and outcome",
}, []string{"method", "outcome"})

var hierarchyCacheCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_discord_hierarchy_cache",
	Help: "Hierarchy cache lookups, by kind (guild, member) and result (hit, miss)",
}, []string{"kind", "result"})
