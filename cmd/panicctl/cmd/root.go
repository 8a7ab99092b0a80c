package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shenikar/safety_dispatch/internal/panicctl"
	"github.com/shenikar/safety_dispatch/pkg/client"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// cfgPath - путь к файлу настроек
	cfgPath string
	// holdFor - длительность удержания для команды hold
	holdFor time.Duration

	rootCmd = &cobra.Command{
		Use:   "panicctl",
		Short: "Panic button client for the safety dispatch service.",
		Long: `Drives the panic button against the dispatch API.

The alert is sent only after the button is held for the configured arming window.
Releasing earlier cancels the gesture and nothing is sent.`,
		SilenceUsage: true,
	}

	holdCmd = &cobra.Command{
		Use:   "hold",
		Short: "Press the panic button and hold it for the given duration.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			release := make(chan struct{})
			go func() {
				timer := time.NewTimer(holdFor)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
				}
				close(release)
			}()

			return run(ctx, release)
		},
	}

	pressCmd = &cobra.Command{
		Use:   "press",
		Short: "Press the panic button and hold it until Ctrl+C.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// SIGINT означает отпускание кнопки, а не отмену отправки
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT)
			defer signal.Stop(sig)

			release := make(chan struct{})
			go func() {
				select {
				case <-sig:
				case <-ctx.Done():
				}
				close(release)
			}()

			return run(ctx, release)
		},
	}
)

func run(ctx context.Context, release <-chan struct{}) error {
	settings, err := panicctl.Load(cfgPath)
	if err != nil {
		return err
	}

	log := panicctl.NewLogger(settings.LogLevel)
	defer func() { _ = log.Sync() }()

	triggerLog := logrus.New()
	triggerLog.SetOutput(os.Stderr)
	triggerLog.SetLevel(logrus.WarnLevel)

	api := client.New(settings.ServerURL, settings.APIKey, settings.Timeout)
	trigger := panicctl.NewTrigger(settings, api, triggerLog)
	session := panicctl.NewSession(trigger, settings.EmergencyNumber, log, os.Stdout)

	_, err = session.Hold(ctx, release)
	if errors.Is(err, panicctl.ErrReleased) {
		return nil
	}
	return err
}

// Execute запускает CLI и завершает процесс с ненулевым кодом при ошибке
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra регистрирует флаги в init
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", panicctl.DefaultSettingsFilename, "path to settings file")
	holdCmd.Flags().DurationVar(&holdFor, "for", 3500*time.Millisecond, "how long to hold the button")

	rootCmd.AddCommand(holdCmd, pressCmd)
}
