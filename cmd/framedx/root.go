package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/frame-dx-server/internal/cache"
	"github.com/frame-dx-server/internal/config"
	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/kb"
	"github.com/frame-dx-server/internal/logging"
	"github.com/frame-dx-server/internal/service"
)

// version is set at build time via -ldflags.
var version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg        *config.LiteConfig
	framesFile string
	logger     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "framedx",
		Short: "Frame-based differential diagnosis",
		Long:  "framedx ranks disease frames against reported findings using\nweighted findings and must_have / must_not_have rules.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.cfg = config.LoadLiteConfig()
			if !cmd.Flags().Changed("frames") {
				a.framesFile = a.cfg.FramesFile
			}
			level := a.cfg.LogLevel
			if v, _ := cmd.Flags().GetString("log-level"); v != "" {
				level = v
			}
			a.logger = logging.New(level, a.cfg.LogFormat, cmd.ErrOrStderr())
		},
		Version: version,
	}

	root.PersistentFlags().StringVar(&a.framesFile, "frames", "", "frame hierarchy file (YAML or JSON); defaults to $FRAMEDX_FRAMES_FILE or the built-in set")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(a),
		newSymptomsCmd(a),
		newDiagnoseCmd(a),
		newMCPCmd(a),
		newSetupCmd(a),
	)
	return root
}

// engine loads the frame store and wires a diagnosis service over it.
func (a *app) engine(ctx context.Context) (*kb.Holder, *service.DiagnosisService, error) {
	loader := kb.FileLoader(a.framesFile)
	store, err := loader(ctx)
	if err != nil {
		return nil, nil, err
	}
	frames := kb.NewHolder(store, loader, a.logger)

	engineCfg := domain.EngineConfig{MaxSymptoms: a.cfg.MaxSymptoms}
	engine := service.NewRankingEngine(frames, engineCfg, a.logger)
	resultCache := cache.NewMemoryCache(a.cfg.CacheMaxItems, a.cfg.CacheTTL)

	return frames, service.NewDiagnosisService(a.logger, engine, resultCache, nil), nil
}
