package metrics

import (
	"net/http"

	"github.com/Allenxuxu/toolkit/sync/atomic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricsPath = "/metrics"

var (
	Enable atomic.Bool
	rg     = prometheus.NewRegistry()
)

var (
	PollTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pollmux_poll_total",
	})
	PollReady = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pollmux_poll_ready_entries_total",
	})
	PollDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pollmux_poll_duration_microseconds",
	})
	WakeupSignals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pollmux_wakeup_signal_total",
	})
	FanoutWorkers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pollmux_poll_fanout_workers_total",
	})
)

func PrometheusMustRegister(cs ...prometheus.Collector) {
	rg.MustRegister(cs...)
}

func MustRun(path, address string) {
	if path == "" {
		path = defaultMetricsPath
	}

	rg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
		PollTotal,
		PollReady,
		PollDuration,
		WakeupSignals,
		FanoutWorkers,
	)

	Enable.Set(true)
	defer Enable.Set(false)

	http.Handle(path, promhttp.HandlerFor(rg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(address, nil); err != nil {
		panic(err)
	}
}
