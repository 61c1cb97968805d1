package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-chamber/chamber"
)

func newProgramCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "program",
		Short: "Read, write and list stored programs",
	}
	cmd.AddCommand(
		newProgramGetCmd(a),
		newProgramSetCmd(a),
		newProgramDeleteCmd(a),
		newProgramListCmd(a),
		newProgramDetailsCmd(a),
	)

	return cmd
}

func newProgramGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <number>",
		Short: "Read a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber("program", args[0])
			if err != nil {
				return err
			}
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			p, err := inst.GetProgram(cmd.Context(), n)
			if err != nil {
				return err
			}

			return printYAML(cmd, p)
		},
	}
}

func newProgramSetCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set <number>",
		Short: "Write a program from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber("program", args[0])
			if err != nil {
				return err
			}
			p, err := readProgram(file)
			if err != nil {
				return err
			}
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}

			return inst.SetProgram(cmd.Context(), n, p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "program file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readProgram(path string) (*chamber.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := &chamber.Program{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

func newProgramDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Delete a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber("program", args[0])
			if err != nil {
				return err
			}
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}

			return inst.SetProgram(cmd.Context(), n, nil)
		},
	}
}

func newProgramListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			list, err := inst.GetProgramList(cmd.Context())
			if err != nil {
				return err
			}

			return printYAML(cmd, list)
		},
	}
}

func newProgramDetailsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "details <number>",
		Short: "Show the name and step count of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber("program", args[0])
			if err != nil {
				return err
			}
			inst, err := a.open(cmd)
			if err != nil {
				return err
			}
			d, err := inst.GetProgramDetails(cmd.Context(), n)
			if err != nil {
				return err
			}

			return printYAML(cmd, d)
		},
	}
}
