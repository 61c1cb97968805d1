package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-chamber/chamber"
)

func newDatetimeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datetime",
		Short: "Read or set the controller clock",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Read the controller clock",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				inst, err := a.open(cmd)
				if err != nil {
					return err
				}
				t, err := inst.GetDatetime(cmd.Context())
				if err != nil {
					return err
				}

				return printYAML(cmd, map[string]string{"datetime": t.Format(time.DateTime)})
			},
		},
		&cobra.Command{
			Use:   "set [\"YYYY-MM-DD HH:MM:SS\"]",
			Short: "Set the controller clock, to the local time when omitted",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t := time.Now()
				if len(args) == 1 {
					var err error
					if t, err = time.ParseInLocation(time.DateTime, args[0], time.Local); err != nil {
						return chamber.ValidationErrorf("invalid datetime %q", args[0])
					}
				}
				inst, err := a.open(cmd)
				if err != nil {
					return err
				}

				return inst.SetDatetime(cmd.Context(), t)
			},
		},
	)

	return cmd
}

func newRefrigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refrig",
		Short: "Read or set the refrigeration mode",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Read the refrigeration mode",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				inst, err := a.open(cmd)
				if err != nil {
					return err
				}
				r, err := inst.GetRefrig(cmd.Context())
				if err != nil {
					return err
				}

				return printYAML(cmd, r)
			},
		},
		&cobra.Command{
			Use:   "set off|auto|manual [capacity]",
			Short: "Set the refrigeration mode; manual takes a capacity in percent",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				r := chamber.Refrig{Mode: chamber.RefrigMode(args[0])}
				if len(args) == 2 {
					v, err := strconv.ParseFloat(args[1], 64)
					if err != nil {
						return chamber.ValidationErrorf("invalid capacity %q", args[1])
					}
					r.Setpoint = v
				}
				inst, err := a.open(cmd)
				if err != nil {
					return err
				}

				return inst.SetRefrig(cmd.Context(), r)
			},
		},
	)

	return cmd
}

func newRawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <request>",
		Short: "Send a request as is and print the reply",
		Long: `The request format depends on the controller: an ASCII command for Espec
controllers, a hex encoded Modbus PDU for Watlow controllers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			reply, err := inst.Raw(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)

			return err
		},
	}
}

func newSampleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Read the clock, status and every loop in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			s, err := inst.Sample(cmd.Context())
			if err != nil {
				return err
			}

			return printYAML(cmd, s)
		},
	}
}

func newIdentifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identify",
		Short: "Ask the controller for its model and capability profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			model, prof, err := inst.Identify(cmd.Context())
			if err != nil {
				return err
			}

			return printYAML(cmd, struct {
				Model   string          `yaml:"model"`
				Profile chamber.Profile `yaml:"profile"`
			}{model, prof})
		},
	}
}
