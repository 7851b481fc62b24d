package main

import (
	gocontext "context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/dataflow-engine/internal/server"
	"github.com/example/dataflow-engine/pkg/logging"
)

var configFlags struct {
	pipelineFile string
	listenAddr   string
	logLevel     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dataflow-engine",
		Short: "Run and introspect dataflow pipelines",
	}
	root.PersistentFlags().StringVar(&configFlags.pipelineFile, "pipeline-file", "", "path to a pipeline definition file (overrides DATAFLOW_PIPELINE_FILE)")
	root.PersistentFlags().StringVar(&configFlags.listenAddr, "listen-addr", "", "HTTP listen address (overrides DATAFLOW_LISTEN_ADDR)")
	root.PersistentFlags().StringVar(&configFlags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(), newRunCmd(), newResumeCmd(), newResetCacheCmd())
	return root
}

func resolveConfig() (runtimeConfig, pipelineSpec, error) {
	v := viper.New()
	if configFlags.listenAddr != "" {
		v.Set("listen_addr", configFlags.listenAddr)
	}
	if configFlags.logLevel != "" {
		v.Set("log_level", configFlags.logLevel)
	}
	if configFlags.pipelineFile != "" {
		v.Set("pipeline_file", configFlags.pipelineFile)
	}

	cfg, err := loadRuntimeConfig(v)
	if err != nil {
		return cfg, pipelineSpec{}, err
	}

	logging.SetLevelFromString(cfg.LogLevel)

	spec, err := loadPipelineSpec(cfg.PipelineFile)
	if err != nil {
		return cfg, pipelineSpec{}, err
	}
	return cfg, spec, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP introspection and control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, spec, err := resolveConfig()
			if err != nil {
				return err
			}
			p, _, err := buildPipeline(spec, cfg)
			if err != nil {
				return err
			}

			srv := server.NewServer(p)

			ctx, stop := signal.NotifyContext(gocontext.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				logging.Infof("shutting down dataflow engine")
				shutdownCtx, cancel := gocontext.WithTimeout(gocontext.Background(), 5*time.Second)
				defer cancel()
				if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, http.ErrServerClosed) {
					logging.Errorf("graceful shutdown failed: %v", shutdownErr)
				}
			}()

			logging.Infof("dataflow engine listening on %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the configured pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, spec, err := resolveConfig()
			if err != nil {
				return err
			}
			p, _, err := buildPipeline(spec, cfg)
			if err != nil {
				return err
			}
			return p.Execute(gocontext.Background())
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the configured pipeline from its last checkpoint, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, spec, err := resolveConfig()
			if err != nil {
				return err
			}
			p, _, err := buildPipeline(spec, cfg)
			if err != nil {
				return err
			}
			if key, ok := p.ResumePoint(); ok {
				logging.Infof("resuming from checkpoint %s", key)
			} else {
				logging.Infof("no usable checkpoint; running from the beginning")
			}
			return p.Execute(gocontext.Background())
		},
	}
}

func newResetCacheCmd() *cobra.Command {
	var deleteDir bool
	cmd := &cobra.Command{
		Use:   "reset-cache",
		Short: "Clear the checkpoint cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, spec, err := resolveConfig()
			if err != nil {
				return err
			}
			_, store, err := buildPipeline(spec, cfg)
			if err != nil {
				return err
			}
			if err := store.Reset(deleteDir); err != nil {
				return err
			}
			logging.Infof("checkpoint cache reset (delete_dir=%v)", deleteDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteDir, "delete-dir", false, "also remove the on-disk checkpoint directory")
	return cmd
}
