package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/spread/internal/config"
	"github.com/okian/spread/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainWiring(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("SPREAD_ADDR", ":8080")
		_ = os.Setenv("SPREAD_WORKER_COUNT", "2")
		_ = os.Setenv("SPREAD_FOLDS", "3")
		_ = os.Setenv("SPREAD_MAX_LIST_LIMIT", "20")
		defer func() {
			_ = os.Unsetenv("SPREAD_ADDR")
			_ = os.Unsetenv("SPREAD_WORKER_COUNT")
			_ = os.Unsetenv("SPREAD_FOLDS")
			_ = os.Unsetenv("SPREAD_MAX_LIST_LIMIT")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")

		convey.Convey("When the service and routes are built from it", func() {
			svc := newService(cfg, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc, cfg.MaxListLimit)

			convey.Convey("Then the service reflects the configuration", func() {
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats["trialStore"], convey.ShouldEqual, "memory")
			})

			convey.Convey("Then docs, health and stats are served", func() {
				for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then the list limit comes from the configuration", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratings?limit=21", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("Then the system updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the service updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			svc := newService(config.New(), logger.Get())
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then single updates do not panic on an unstarted service", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(newService(config.New(), logger.Get())) }, convey.ShouldNotPanic)
		})
	})
}
