package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tj-capital/tvlsync/internal/analytics"
	"github.com/tj-capital/tvlsync/internal/ingest"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only analytics API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		th, err := analytics.LoadThresholds()
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = fmt.Sprintf(":%d", cfg.Server.Port)
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           newRouter(st, th),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serving", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "serve")
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func newRouter(st store.Store, th analytics.Thresholds) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/status", func(w http.ResponseWriter, req *http.Request) {
		out := []*store.TableStatus{}
		for _, d := range ingest.DefaultRegistry().All() {
			ts, err := st.TableStatus(req.Context(), d.Table())
			if err != nil {
				continue
			}
			out = append(out, ts)
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Route("/v1/tables/{table}", func(r chi.Router) {
		r.Get("/buckets", func(w http.ResponseWriter, req *http.Request) {
			series, snap, bands, ok := loadView(w, req, st, th)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"table":   series.Table,
				"date":    snap.Date,
				"buckets": analytics.BucketSnapshot(snap, bands),
			})
		})

		r.Get("/change", func(w http.ResponseWriter, req *http.Request) {
			series, snap, _, ok := loadView(w, req, st, th)
			if !ok {
				return
			}
			lookback := queryInt(req, "lookback", 1)
			changes, err := analytics.PctChange(series, snap.Date, lookback)
			if err != nil {
				writeAnalyticsError(w, err)
				return
			}
			// NaN is not valid JSON; undefined changes are omitted.
			defined := make(map[string]float64, len(changes))
			for name, pct := range changes {
				if !math.IsNaN(pct) {
					defined[name] = pct
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"table":    series.Table,
				"date":     snap.Date,
				"lookback": lookback,
				"change":   defined,
			})
		})

		r.Get("/top", func(w http.ResponseWriter, req *http.Request) {
			series, snap, bands, ok := loadView(w, req, st, th)
			if !ok {
				return
			}
			lookback := queryInt(req, "lookback", 1)
			topN := queryInt(req, "top", 5)
			gainers, err := analytics.TopGainers(series, snap.Date, lookback, bands, topN)
			if err != nil {
				writeAnalyticsError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"table":    series.Table,
				"date":     snap.Date,
				"lookback": lookback,
				"top":      topN,
				"gainers":  gainers,
			})
		})
	})

	return r
}

// loadView resolves the table, series, as-of snapshot, and band list
// shared by the analytics handlers. On failure it writes the error
// response and returns ok=false.
func loadView(w http.ResponseWriter, req *http.Request, st store.Store, th analytics.Thresholds) (*model.Series, *model.Snapshot, []analytics.Band, bool) {
	table := chi.URLParam(req, "table")
	bands, err := th.For(table)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return nil, nil, nil, false
	}

	series, err := st.LoadSeries(req.Context(), table)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, nil, nil, false
	}

	date := req.URL.Query().Get("date")
	if date == "" && len(series.Dates) > 0 {
		date = series.Dates[len(series.Dates)-1]
	}
	snap, err := analytics.SnapshotAt(series, date)
	if err != nil {
		writeAnalyticsError(w, err)
		return nil, nil, nil, false
	}
	return series, snap, bands, true
}

func writeAnalyticsError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, analytics.ErrDateNotFound) || errors.Is(err, analytics.ErrInsufficientHistory) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func queryInt(req *http.Request, key string, def int) int {
	if s := req.URL.Query().Get(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
