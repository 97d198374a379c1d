package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"spp-print/internal/platform"
	"spp-print/internal/plugin"
	"spp-print/internal/printer"
	"spp-print/internal/ui/terminal"
)

func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:    "devices",
		Aliases: []string{"d"},
		Usage:   "List paired devices.",
		Action: func(cliCtx *cli.Context) error {
			s, err := newSession(cliCtx, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			devices, err := s.registry.ListPairedDevices()
			if err != nil {
				return explain(err)
			}

			if len(devices) == 0 {
				printWarn(plugin.MsgNoDevices)
				return nil
			}

			return writeDevices(cliCtx.App.Writer, devices)
		},
	}
}

func writeDevices(w io.Writer, devices []printer.PairedDevice) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", d.Address, name)
	}

	return tw.Flush()
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Aliases:   []string{"s"},
		Usage:     "Choose the printer from the paired devices.",
		ArgsUsage: "[address]",
		Action: func(cliCtx *cli.Context) error {
			view := terminal.New()

			s, err := newSession(cliCtx, view)
			if err != nil {
				return err
			}
			defer s.Close()

			if address := strings.TrimSpace(cliCtx.Args().First()); address != "" {
				if err := s.registry.SavePrinter(address); err != nil {
					return err
				}
				fmt.Fprintln(cliCtx.App.Writer, plugin.MsgSavedPrinter+address)

				return nil
			}

			return s.plugin.OpenDeviceSelectionUI(cliCtx.Context)
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show the saved printer.",
		Action: func(cliCtx *cli.Context) error {
			s, err := newSession(cliCtx, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			address, ok, err := s.registry.GetPrinter()
			if err != nil {
				return err
			}
			if !ok {
				return printer.ErrNoPrinterConfigured
			}

			fmt.Fprintln(cliCtx.App.Writer, address)

			return nil
		},
	}
}

func printCommand() *cli.Command {
	return &cli.Command{
		Name:      "print",
		Aliases:   []string{"p"},
		Usage:     "Print text to the saved printer.",
		ArgsUsage: "[text...] (reads standard input when no text is given or text is -)",
		Action: func(cliCtx *cli.Context) error {
			text, err := printText(cliCtx)
			if err != nil {
				return err
			}

			s, err := newSession(cliCtx, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.plugin.Print(cliCtx.Context, text)
		},
	}
}

func printText(cliCtx *cli.Context) (string, error) {
	args := cliCtx.Args().Slice()
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cliCtx.App.Reader)
	if err != nil {
		return "", fmt.Errorf("reading standard input: %w", err)
	}

	return string(data), nil
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether printing can work right now.",
		Action: func(cliCtx *cli.Context) error {
			s, err := newSession(cliCtx, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.plugin.Status(cliCtx.Context)
			if err != nil {
				return err
			}

			saved := "none"
			if st.Saved {
				saved = st.Printer
			}

			tw := tabwriter.NewWriter(cliCtx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "supported:\t%s\n", yesNo(st.Supported))
			fmt.Fprintf(tw, "enabled:\t%s\n", yesNo(st.Enabled))
			fmt.Fprintf(tw, "permission:\t%s\n", yesNo(st.Permission))
			fmt.Fprintf(tw, "transport:\t%s\n", s.cfg.Values.Transport)
			fmt.Fprintf(tw, "printer:\t%s\n", saved)

			return tw.Flush()
		},
	}
}

func portsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ports",
		Usage: "List serial ports, for the serial transport.",
		Action: func(cliCtx *cli.Context) error {
			ports, err := platform.Ports()
			if err != nil {
				return err
			}

			if len(ports) == 0 {
				printWarn("No serial ports found.")
				return nil
			}

			for _, p := range ports {
				fmt.Fprintln(cliCtx.App.Writer, p)
			}

			return nil
		},
	}
}

// explain replaces registry errors with the message a user should see.
func explain(err error) error {
	switch {
	case errors.Is(err, printer.ErrUnsupported):
		return errors.New(plugin.MsgUnsupported)

	case errors.Is(err, printer.ErrPermissionDenied):
		return errors.New(plugin.MsgPermissionRequired)

	case errors.Is(err, printer.ErrRadioDisabled):
		return errors.New(plugin.MsgRadioDisabled)
	}

	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
