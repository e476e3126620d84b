package daemon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/cmd/common"
	"github.com/sagan/ptxseed/xseed"
)

var command = &cobra.Command{
	Use:   "daemon",
	Short: "Run cross-seed scans and recheck polls periodically.",
	Long: `Run cross-seed scans and recheck polls periodically, until interrupted.
Intervals are set by xseed.scanInterval (default 12h) and xseed.recheckInterval (default 5m) config.
If xseed.metricsListen is set (eg. ":9100"), prometheus metrics are served at /metrics.`,
	Args: cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE: daemon,
}

var (
	noInitialScan = false
)

func init() {
	command.Flags().BoolVarP(&noInitialScan, "no-initial-scan", "", false, "Do not scan at start, wait for the first interval")
	cmd.RootCmd.AddCommand(command)
}

func daemon(_ *cobra.Command, args []string) error {
	engine, err := common.NewEngine(common.EngineOptions{})
	if err != nil {
		return err
	}
	defer engine.Close()
	ctx, cancel := common.SignalContext()
	defer cancel()
	xseedConfig := engine.Config.Xseed

	xseed.RegisterMetrics()
	var server *http.Server
	if xseedConfig.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Addr: xseedConfig.MetricsListen, Handler: mux}
		go func() {
			log.Infof("Serving metrics at %s/metrics", xseedConfig.MetricsListen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(xseedConfig.RecheckIntervalValue)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				engine.Recheck.Poll(ctx)
			}
		}
	}()

	scan := func() {
		if _, err := engine.RunScan(ctx, false); err != nil && !common.IsCancelled(err) {
			log.Errorf("Scan failed: %v", err)
		}
	}
	log.Warnf("Daemon started: scan every %s, recheck every %s",
		xseedConfig.ScanIntervalValue, xseedConfig.RecheckIntervalValue)
	if !noInitialScan {
		scan()
	}
	ticker := time.NewTicker(xseedConfig.ScanIntervalValue)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			scan()
		}
	}
	log.Warnf("Daemon stopping")
	wg.Wait()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}
	return nil
}
