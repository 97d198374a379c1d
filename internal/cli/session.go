package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"spp-print/internal/config"
	"spp-print/internal/job"
	"spp-print/internal/platform"
	"spp-print/internal/plugin"
	"spp-print/internal/printer"
	"spp-print/internal/settings"
)

// session holds what one command needs to talk to the printer.
type session struct {
	cfg      *config.Config
	log      *logrus.Logger
	adapter  *platform.Adapter
	registry *printer.Registry
	plugin   *plugin.Plugin
}

func newLogger(v config.Values) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(v.Level())
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	return log
}

// newSession builds the platform adapter, the registry and the plugin.
// view may be nil for commands that never show the selection.
func newSession(cliCtx *cli.Context, view plugin.SelectionView) (*session, error) {
	cfg, err := configFrom(cliCtx)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.Values)

	store, err := settings.NewFileStore(cfg.Values.SettingsDir, settings.PrinterNamespace)
	if err != nil {
		return nil, err
	}

	enc, err := job.New(cfg.Values.JobOptions())
	if err != nil {
		return nil, err
	}

	adapter, err := platform.New(cfg.Values.PlatformOptions(), log)
	if err != nil {
		return nil, err
	}

	registry := printer.NewRegistry(adapter, store)
	transport := printer.NewTransport(registry, adapter,
		printer.WithLogger(log),
		printer.WithEncoder(enc),
	)

	return &session{
		cfg:      cfg,
		log:      log,
		adapter:  adapter,
		registry: registry,
		plugin:   plugin.New(registry, transport, adapter, view, log),
	}, nil
}

func (s *session) Close() {
	if err := s.adapter.Close(); err != nil {
		s.log.WithError(err).Debug("closing the platform adapter failed")
	}
}
