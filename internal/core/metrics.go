// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loginsTotal counts successful authentications by kind: login,
	// register, or ip_record.
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatehouse_logins_total",
		Help: "Total number of successful authentications",
	}, []string{"kind"})

	// authTimeouts counts sessions disconnected for staying pending
	// past the timeout.
	authTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_auth_timeouts_total",
		Help: "Total number of sessions disconnected on authentication timeout",
	})

	// storeErrors counts unexpected credential store failures.
	storeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatehouse_store_errors_total",
		Help: "Total number of credential store failures",
	})
)
