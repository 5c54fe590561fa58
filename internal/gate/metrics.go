// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// blockedActions counts events suppressed for unauthenticated sessions,
// by action kind.
var blockedActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatehouse_blocked_actions_total",
	Help: "Total number of gameplay events blocked for unauthenticated sessions",
}, []string{"action"})
