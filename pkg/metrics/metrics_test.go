package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every metric family is registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.replaysTotal.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["spread_forecast_rating_replays_total"], ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithLossBuckets([]float64{1, 2}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names use the custom namespace", func() {
				manager.predictionsTotal.Add(3)
				So(testutil.ToFloat64(manager.predictionsTotal), ShouldEqual, 3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "test_unit_")
			})
		})

		Convey("When two managers share one registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording trials", func() {
			before := testutil.ToFloat64(globalManager.trialsTotal.WithLabelValues(StageRating, OutcomeOK))
			So(RecordTrial(StageRating, OutcomeOK, 0.32), ShouldBeNil)
			So(RecordTrial(StageRegressor, OutcomeFailed, 0), ShouldBeNil)

			Convey("Then the stage counter moves", func() {
				after := testutil.ToFloat64(globalManager.trialsTotal.WithLabelValues(StageRating, OutcomeOK))
				So(after-before, ShouldEqual, 1)
			})

			Convey("And unknown stages are rejected", func() {
				err := RecordTrial("warmup", OutcomeOK, 1)
				So(errors.Is(err, ErrUnknownStage), ShouldBeTrue)
			})
		})

		Convey("When recording feature rows", func() {
			before := testutil.ToFloat64(globalManager.featureRowsExcluded.WithLabelValues("no_prior_match"))
			RecordFeatureRows(10, map[string]int{"no_prior_match": 4, "incomplete_form": 2})

			Convey("Then exclusions are counted per reason", func() {
				after := testutil.ToFloat64(globalManager.featureRowsExcluded.WithLabelValues("no_prior_match"))
				So(after-before, ShouldEqual, 4)
			})
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				RecordReplay(12.5)
				RecordFoldLatency(3)
				RecordSearchExhausted(StageRegressor)
				RecordTrainingRun(OutcomeOK, 1.2)
				RecordPredictions(5)
				RecordPredictionFailure("missing_prior_data")
				RecordMatchesIngested(40)
				RecordMatchDuplicate()
				UpdateLedgerSize(40, 8)
				UpdateWorkerActiveCount(4)
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				UpdateStoreRecords(StageRating, 27)
				RecordHTTPRequest("/train", "POST", "200")
				RecordHTTPRequestDuration("/train", "POST", "200", 15)
				RecordErrorByComponent("search", "fit_failed")
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.ledgerMatches), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.storeRecords.WithLabelValues(StageRating)), ShouldEqual, 27)
			})
		})

		Convey("When exposing the registry", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
