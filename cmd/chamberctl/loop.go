package main

import (
	"github.com/spf13/cobra"

	"github.com/arloliu/go-chamber/chamber"
)

func newLoopCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Read or write a control loop",
		Long: `Loops are addressed by their configured name (such as "temperature") or
as loop:N and cascade:N.`,
	}
	cmd.AddCommand(newLoopGetCmd(a), newLoopSetCmd(a))

	return cmd
}

func newLoopGetCmd(a *app) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "get <loop>",
		Short: "Read loop fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ref, err := parseLoopArg(args[0])
			if err != nil {
				return err
			}
			fs := make([]chamber.Field, 0, len(fields))
			for _, f := range fields {
				field, err := chamber.ParseField(f)
				if err != nil {
					return err
				}
				fs = append(fs, field)
			}

			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			var loop *chamber.Loop
			if name != "" {
				loop, err = inst.GetLoopByName(cmd.Context(), name, fs...)
			} else {
				loop, err = inst.GetLoop(cmd.Context(), ref.Number, ref.Type, fs...)
			}
			if loop != nil {
				if perr := printYAML(cmd, loop); perr != nil {
					return perr
				}
			}

			return err
		},
	}
	cmd.Flags().StringSliceVarP(&fields, "field", "f", nil, "fields to read, all when omitted")

	return cmd
}

type loopSetFlags struct {
	mode          string
	setpoint      float64
	min           float64
	max           float64
	enable        bool
	power         float64
	devPositive   float64
	devNegative   float64
	enableCascade bool
}

func newLoopSetCmd(a *app) *cobra.Command {
	flags := &loopSetFlags{}

	cmd := &cobra.Command{
		Use:   "set <loop>",
		Short: "Write loop fields",
		Long: `Only the flags given are written. The mode is applied first; fields the
controller cannot write are skipped with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ref, err := parseLoopArg(args[0])
			if err != nil {
				return err
			}
			s, err := flags.settings(cmd)
			if err != nil {
				return err
			}

			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			if name != "" {
				return inst.SetLoopByName(cmd.Context(), name, s)
			}

			return inst.SetLoop(cmd.Context(), ref.Number, ref.Type, s)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&flags.mode, "mode", "", "loop mode (On, Off, Auto, ...)")
	fl.Float64Var(&flags.setpoint, "setpoint", 0, "setpoint")
	fl.Float64Var(&flags.min, "min", 0, "setpoint range minimum, requires --max")
	fl.Float64Var(&flags.max, "max", 0, "setpoint range maximum, requires --min")
	fl.BoolVar(&flags.enable, "enable", false, "enable or disable the loop")
	fl.Float64Var(&flags.power, "power", 0, "output power in percent")
	fl.Float64Var(&flags.devPositive, "dev-positive", 0, "cascade positive deviation, requires --dev-negative")
	fl.Float64Var(&flags.devNegative, "dev-negative", 0, "cascade negative deviation, requires --dev-positive")
	fl.BoolVar(&flags.enableCascade, "enable-cascade", false, "enable or disable cascade control")
	cmd.MarkFlagsRequiredTogether("min", "max")
	cmd.MarkFlagsRequiredTogether("dev-positive", "dev-negative")

	return cmd
}

func (f *loopSetFlags) settings(cmd *cobra.Command) (*chamber.LoopSettings, error) {
	fl := cmd.Flags()
	s := &chamber.LoopSettings{}
	if fl.Changed("mode") {
		s.Mode = &f.mode
	}
	if fl.Changed("setpoint") {
		s.Setpoint = &f.setpoint
	}
	if fl.Changed("min") {
		s.Range = &chamber.Range{Min: f.min, Max: f.max}
	}
	if fl.Changed("enable") {
		s.Enable = &f.enable
	}
	if fl.Changed("power") {
		s.Power = &f.power
	}
	if fl.Changed("dev-positive") {
		s.Deviation = &chamber.Deviation{Positive: f.devPositive, Negative: f.devNegative}
	}
	if fl.Changed("enable-cascade") {
		s.EnableCascade = &f.enableCascade
	}
	if len(s.Fields()) == 0 {
		return nil, chamber.ValidationErrorf("no loop fields given")
	}

	return s, nil
}
