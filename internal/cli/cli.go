// Package cli is the spp-print command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"

	"spp-print/internal/config"
	"spp-print/internal/job"
	"spp-print/internal/platform"
	"spp-print/internal/tspl"
)

// These values are set at compile-time.
var (
	Version  = "dev"
	Revision = "unknown"
)

const cfgKey = "config"

// Run runs the commandline application.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp().RunContext(ctx, os.Args)
}

func newApp() *cli.App {
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Fprintf(cCtx.App.Writer, "%s (%s)\n", Version, Revision)
	}

	return &cli.App{
		Name:                   "spp-print",
		Usage:                  "Print to a paired Bluetooth serial printer.",
		Version:                Version + " (" + Revision + ")",
		Description:            "Pick a paired Bluetooth printer once, then send text to it over the Serial Port Profile.",
		Compiled:               time.Now(),
		EnableBashCompletion:   true,
		UseShortOptionHandling: true,
		Suggest:                true,
		Flags:                  globalFlags(),
		Before:                 loadConfig,
		Commands: []*cli.Command{
			devicesCommand(),
			selectCommand(),
			showCommand(),
			printCommand(),
			statusCommand(),
			portsCommand(),
		},
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err == nil {
				return
			}

			printError(err)
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config-dir",
			EnvVars: []string{"SPP_PRINT_CONFIG_DIR"},
			Usage:   "Read spp-print.conf from this directory.",
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			EnvVars: []string{"SPP_PRINT_ADAPTER"},
			Usage:   "Specify an adapter to use. (For example, hci0)",
		},
		&cli.StringFlag{
			Name:    "transport",
			Aliases: []string{"t"},
			EnvVars: []string{"SPP_PRINT_TRANSPORT"},
			Usage:   "Specify how to reach the printer. (" + strings.Join(platform.Transports, ", ") + ")",
		},
		&cli.IntFlag{
			Name:    "channel",
			EnvVars: []string{"SPP_PRINT_CHANNEL"},
			Usage:   "Specify the RFCOMM channel of the printer.",
		},
		&cli.StringFlag{
			Name:    "serial-port",
			EnvVars: []string{"SPP_PRINT_SERIAL_PORT"},
			Usage:   "Specify the serial port bound to the printer. (For example, COM5)",
		},
		&cli.IntFlag{
			Name:    "baud-rate",
			EnvVars: []string{"SPP_PRINT_BAUD_RATE"},
			Usage:   "Specify the baud rate of the serial port.",
		},
		&cli.StringFlag{
			Name:    "ble-service",
			EnvVars: []string{"SPP_PRINT_BLE_SERVICE"},
			Usage:   "Specify the GATT service UUID of a BLE printer.",
		},
		&cli.StringFlag{
			Name:    "ble-characteristic",
			EnvVars: []string{"SPP_PRINT_BLE_CHARACTERISTIC"},
			Usage:   "Specify the GATT characteristic UUID of a BLE printer.",
		},
		&cli.IntFlag{
			Name:    "ble-chunk-size",
			EnvVars: []string{"SPP_PRINT_BLE_CHUNK_SIZE"},
			Usage:   "Specify the largest write sent to a BLE printer.",
		},
		&cli.StringFlag{
			Name:    "charset",
			Aliases: []string{"c"},
			EnvVars: []string{"SPP_PRINT_CHARSET"},
			Usage:   "Specify the character set of the printer. (For example, cp437)",
		},
		&cli.IntFlag{
			Name:    "columns",
			EnvVars: []string{"SPP_PRINT_COLUMNS"},
			Usage:   "Wrap text at this many columns.",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			EnvVars: []string{"SPP_PRINT_FORMAT"},
			Usage:   "Specify the output format. (" + job.FormatText + ", " + job.FormatTSPL + ")",
		},
		&cli.StringFlag{
			Name:    "label-size",
			Aliases: []string{"l"},
			EnvVars: []string{"SPP_PRINT_LABEL_SIZE"},
			Usage:   "Specify the label size for the tspl format. (" + strings.Join(tspl.SizeNames(), ", ") + ")",
		},
		&cli.IntFlag{
			Name:    "density",
			EnvVars: []string{"SPP_PRINT_DENSITY"},
			Usage:   "Specify the print density for the tspl format. (0-15)",
		},
		&cli.Float64Flag{
			Name:    "font-size",
			EnvVars: []string{"SPP_PRINT_FONT_SIZE"},
			Usage:   "Specify the font size in points for the tspl format.",
		},
		&cli.StringFlag{
			Name:    "settings-dir",
			EnvVars: []string{"SPP_PRINT_SETTINGS_DIR"},
			Usage:   "Specify where the saved printer is kept.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"SPP_PRINT_LOG_LEVEL"},
			Usage:   "Specify the log level. (For example, debug)",
		},
		&cli.DurationFlag{
			Name:    "enable-timeout",
			EnvVars: []string{"SPP_PRINT_ENABLE_TIMEOUT"},
			Usage:   "Specify how long to wait for the adapter to power on.",
		},
		&cli.DurationFlag{
			Name:    "connect-timeout",
			EnvVars: []string{"SPP_PRINT_CONNECT_TIMEOUT"},
			Usage:   "Specify how long to wait for the printer to connect. (0 keeps the platform default)",
		},
	}
}

// loadConfig merges the configuration file and the global flags, and stores
// the result for the commands.
func loadConfig(cliCtx *cli.Context) error {
	// required for koanf to merge all global flags under the root namespace.
	cliCtx.Command.Name = "global"

	k, cfg := koanf.New("."), config.NewConfig()
	if err := cfg.Load(k, cliCtx.String("config-dir"), cliCtx); err != nil {
		return err
	}
	if err := cfg.ValidateValues(); err != nil {
		return err
	}

	cliCtx.App.Metadata = map[string]any{cfgKey: cfg}

	return nil
}

func configFrom(cliCtx *cli.Context) (*config.Config, error) {
	cfg, ok := cliCtx.App.Metadata[cfgKey].(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration was not loaded")
	}

	return cfg, nil
}
