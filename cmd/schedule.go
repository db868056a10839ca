package main

import (
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/robfig/cron"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/monitoring"
	"github.com/sells-group/variance-cli/internal/pipeline"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline every day at schedule.time",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("schedule"); err != nil {
			return err
		}
		spec, err := cronSpec(cfg.Schedule.Time)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := pipeline.New(cfg, st, newSender(false), monitoring.NewAlerter(cfg.Monitoring))

		var mu sync.Mutex
		job := func() {
			if !mu.TryLock() {
				zap.L().Warn("schedule: previous run still in progress, skipping")
				return
			}
			defer mu.Unlock()

			res, err := p.Run(ctx, pipeline.Options{})
			if err != nil {
				zap.L().Error("schedule: run failed", zap.Error(err))
				return
			}
			zap.L().Info("schedule: run complete", zap.String("run_id", res.RunID), zap.Int("files", len(res.Files)))
		}

		c := cron.New()
		if err := c.AddFunc(spec, job); err != nil {
			return eris.Wrapf(err, "schedule: invalid spec %q", spec)
		}
		c.Start()
		zap.L().Info("schedule: started", zap.String("time", cfg.Schedule.Time), zap.String("spec", spec))

		<-ctx.Done()
		c.Stop()
		mu.Lock() // wait for an in-flight run
		mu.Unlock() //nolint:staticcheck
		zap.L().Info("schedule: stopped")
		return nil
	},
}

// cronSpec turns "HH:MM" into a six-field cron expression firing once a day.
func cronSpec(hhmm string) (string, error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 {
		return "", eris.Errorf("schedule: time %q must be HH:MM", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", eris.Errorf("schedule: invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return "", eris.Errorf("schedule: invalid minute in %q", hhmm)
	}
	return "0 " + strconv.Itoa(m) + " " + strconv.Itoa(h) + " * * *", nil
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
