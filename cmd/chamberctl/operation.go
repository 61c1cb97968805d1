package main

import (
	"github.com/spf13/cobra"

	"github.com/arloliu/go-chamber/chamber"
)

func newOperationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operation",
		Aliases: []string{"op"},
		Short:   "Read or change the run mode",
	}
	cmd.AddCommand(newOperationGetCmd(a), newOperationSetCmd(a), newOperationModesCmd(a))

	return cmd
}

func newOperationGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Read the run mode, running program and active alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			st, err := inst.GetOperation(cmd.Context(), nil)
			if err != nil {
				return err
			}

			return printYAML(cmd, st)
		},
	}
}

func newOperationSetCmd(a *app) *cobra.Command {
	var program, step int

	cmd := &cobra.Command{
		Use:   "set <mode>",
		Short: "Change the run mode",
		Long: `Modes: off, standby, constant, program, program_pause, program_resume and
program_advance. Starting a program needs --program.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := chamber.ParseCommand(args[0])
			if err != nil {
				return err
			}
			req := chamber.OperationRequest{Mode: mode}
			if cmd.Flags().Changed("program") {
				req.Program = &chamber.ProgramRef{Number: program, Step: step}
			}

			inst, err := a.open(cmd)
			if err != nil {
				return err
			}

			return inst.SetOperation(cmd.Context(), req)
		},
	}
	cmd.Flags().IntVar(&program, "program", 0, "program to start")
	cmd.Flags().IntVar(&step, "step", 1, "step to start the program at")

	return cmd
}

func newOperationModesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the run modes this chamber supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}

			return printYAML(cmd, inst.OperationModes())
		},
	}
}
