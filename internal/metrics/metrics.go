package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ipStrResolveCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobdispatch_ip_str_resolve_total",
		Help: "The number of IP strings resolved against CMDB, by detected format",
	}, []string{"format"})

	resolvedHostCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobdispatch_resolved_hosts_total",
		Help: "The number of hosts matched from IP strings",
	}, []string{"format"})

	invalidIPCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobdispatch_invalid_ips_total",
		Help: "The number of input IPs that matched no CMDB host",
	}, []string{"format"})

	jobDispatchCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobdispatch_jobs_total",
		Help: "The number of script jobs sent to the job platform",
	}, []string{"result"})

	callbackCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobdispatch_node_callbacks_total",
		Help: "The number of node callbacks received from the job platform",
	}, []string{"result"})
)

// Init registers the collectors with the given registerer
func Init(registerer prometheus.Registerer) {
	registerer.MustRegister(ipStrResolveCount, resolvedHostCount, invalidIPCount, jobDispatchCount, callbackCount)
}

// IPStrResolved records one resolved IP string with its matched and invalid counts
func IPStrResolved(format string, resolved, invalid int) {
	ipStrResolveCount.WithLabelValues(format).Inc()
	resolvedHostCount.WithLabelValues(format).Add(float64(resolved))
	invalidIPCount.WithLabelValues(format).Add(float64(invalid))
}

// JobDispatched counts a fast_execute_script call by outcome
func JobDispatched(success bool) {
	jobDispatchCount.WithLabelValues(resultLabel(success)).Inc()
}

// CallbackReceived counts a node callback by whether it reached its workflow
func CallbackReceived(success bool) {
	callbackCount.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
