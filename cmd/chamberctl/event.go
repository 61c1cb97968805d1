package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-chamber/chamber"
)

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Read or switch a digital event",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <number>",
			Short: "Read an event",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := parseNumber("event", args[0])
				if err != nil {
					return err
				}
				inst, err := a.open(cmd)
				if err != nil {
					return err
				}
				ev, err := inst.GetEvent(cmd.Context(), n)
				if err != nil {
					return err
				}

				return printYAML(cmd, ev)
			},
		},
		&cobra.Command{
			Use:       "set <number> on|off",
			Short:     "Switch an event",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"on", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := parseNumber("event", args[0])
				if err != nil {
					return err
				}
				var on bool
				switch strings.ToLower(args[1]) {
				case "on", "true", "1":
					on = true
				case "off", "false", "0":
				default:
					return chamber.ValidationErrorf("event state %q is not on or off", args[1])
				}
				inst, err := a.open(cmd)
				if err != nil {
					return err
				}

				return inst.SetEvent(cmd.Context(), n, on)
			},
		},
	)

	return cmd
}
