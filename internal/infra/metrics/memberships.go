package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		membershipsActivatedTotal,
		membershipsExpiredTotal,
	)
}

var (
	membershipsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memberships_activated_total",
			Help: "Memberships created by completed payments.",
		},
	)

	membershipsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memberships_expired_total",
			Help: "Memberships moved to expired by the expiry sweep.",
		},
	)
)

func IncMembershipActivated() { membershipsActivatedTotal.Inc() }

func AddMembershipsExpired(n int) {
	if n > 0 {
		membershipsExpiredTotal.Add(float64(n))
	}
}
