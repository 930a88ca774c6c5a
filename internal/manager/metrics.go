package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	fitJobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitd",
		Subsystem: "manager",
		Name:      "fit_jobs_active",
		Help:      "Training jobs currently holding an admission slot",
	})

	loadedModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitd",
		Subsystem: "manager",
		Name:      "loaded_models",
		Help:      "Models resident in the cache",
	})

	fitJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitd",
			Subsystem: "manager",
			Name:      "fit_jobs_total",
			Help:      "Training jobs by outcome (done, failed, rejected)",
		},
		[]string{"result"},
	)

	modelLoadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitd",
		Subsystem: "manager",
		Name:      "model_loads_total",
		Help:      "Models read from storage into the cache",
	})

	predictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitd",
		Subsystem: "manager",
		Name:      "predictions_total",
		Help:      "Rows predicted across all models",
	})
)

func init() {
	prometheus.MustRegister(fitJobsActive, loadedModels, fitJobsTotal, modelLoadsTotal, predictionsTotal)
}
