package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tokfleet/pkg/api"
	"tokfleet/pkg/config"
	"tokfleet/pkg/engine"
	"tokfleet/pkg/fingerprint"
	"tokfleet/pkg/instance"
	"tokfleet/pkg/logger"
	"tokfleet/pkg/metrics"
	"tokfleet/pkg/store"
	"tokfleet/pkg/window"
)

var (
	runAccounts    int
	runPreset      string
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo fleet against simulated instances",
	Long: `Run spins up an in-memory fleet: demo accounts, simulated instance
windows, fingerprint injection, preset application and staggered
automation start. Useful for exercising the full pipeline without a
real browser engine attached.`,
	RunE: runFleet,
}

func init() {
	runCmd.Flags().IntVarP(&runAccounts, "accounts", "n", 3, "number of demo accounts")
	runCmd.Flags().StringVar(&runPreset, "preset", engine.DefaultPresetName, "automation preset to apply")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "address for the Prometheus endpoint (empty disables it)")
	rootCmd.AddCommand(runCmd)
}

func runFleet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	// Demo timing: do not make the operator sit through real stagger
	// and settle delays.
	cfg.Stagger.MinDelay = 200 * time.Millisecond
	cfg.Stagger.MaxDelay = time.Second
	cfg.Automation.SettleDelay = 100 * time.Millisecond

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("tokfleet starting")

	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	if runMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(runMetricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics endpoint failed")
			}
		}()
		log.WithField("addr", runMetricsAddr).Info("metrics endpoint listening")
	}

	st := store.NewMemoryStore()
	var accountIDs []string
	for i := 1; i <= runAccounts; i++ {
		account, err := st.CreateAccount(fmt.Sprintf("demo_user_%d", i), fmt.Sprintf("Demo User %d", i))
		if err != nil {
			return fmt.Errorf("creating demo account: %w", err)
		}
		accountIDs = append(accountIDs, account.ID)
	}

	factory := window.NewFakeFactory()
	factory.AutoReady = true
	screen := window.StaticScreen{Area: window.Rect{
		Width:  cfg.Screen.Width,
		Height: cfg.Screen.Height,
	}}

	injector := fingerprint.NewInjector(st, cfg.Fingerprint, log, nil)
	pool := instance.NewPool(st, factory, screen, injector, instance.Settings{
		DeviceKey:       cfg.Pool.DeviceKey,
		InstancesPerRow: cfg.Pool.InstancesPerRow,
		Spacing:         cfg.Pool.Spacing,
		MaxInstances:    cfg.Pool.MaxInstances,
		AutoArrange:     cfg.Pool.AutoArrange,
	}, log, collector)
	eng := engine.NewEngine(st, pool, cfg, nil, log, collector, nil)
	svc := api.NewService(st, pool, eng, log)

	if resp := svc.BulkApplyPreset(accountIDs, runPreset); !resp.Success {
		return fmt.Errorf("applying preset: %s", resp.Error)
	}
	log.WithField("preset", runPreset).Info("preset applied to all demo accounts")

	resp := svc.BulkStartStaggered(accountIDs)
	for _, outcome := range resp.Data.([]api.BulkOutcome) {
		if !outcome.Success {
			log.WithField("account_id", outcome.AccountID).Error("start failed: " + outcome.Error)
		}
	}

	for _, snapshot := range pool.ListActive() {
		fmt.Printf("%-40s %s  %dx%d  automation=%v speed=%dms\n",
			snapshot.Title, snapshot.Device,
			snapshot.Bounds.Width, snapshot.Bounds.Height,
			snapshot.AutomationOn, snapshot.ScrollSpeed)
	}

	log.Info("fleet running, press Ctrl+C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	eng.Shutdown()
	return nil
}
