package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/config"
	"github.com/arloliu/go-chamber/logger"
)

type app struct {
	configPath string
	controller string
	iface      string
	serialPort string
	host       string
	port       int
	adr        int
	logLevel   string

	// buildOpts are passed to config.Build after the defaults.
	buildOpts []config.Option
	inst      *config.Instance
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chamberctl",
		Short: "Read and drive an environmental test chamber",
		Long: `chamberctl talks to Watlow F4T, Watlow F4 and Espec P300/SCP-220 chamber
controllers over a serial line or TCP.

The chamber is described by a YAML file (--config). Without a file the
connection flags describe it and the family profile defaults apply.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "chamber configuration file")
	flags.StringVar(&a.controller, "controller", "", "controller family without a config file (watlowf4t, watlowf4, p300, scp220)")
	flags.StringVar(&a.iface, "interface", "", "serial or tcp")
	flags.StringVar(&a.serialPort, "serialport", "", "serial port name")
	flags.StringVar(&a.host, "host", "", "controller host name or address")
	flags.IntVar(&a.port, "port", 0, "controller TCP port")
	flags.IntVar(&a.adr, "adr", 0, "Modbus unit id or Espec address")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		newLoopCmd(a),
		newEventCmd(a),
		newOperationCmd(a),
		newProgramCmd(a),
		newDatetimeCmd(a),
		newRefrigCmd(a),
		newRawCmd(a),
		newSampleCmd(a),
		newIdentifyCmd(a),
	)

	return rootCmd
}

// loadConfig reads the configuration file, or builds one from the flags,
// and applies the flag overrides.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		if cmd.Flags().Changed("controller") {
			return nil, errors.New("--controller cannot be combined with --config")
		}
		cfg, err = config.Load(a.configPath)
	} else {
		if a.controller == "" {
			return nil, errors.New("either --config or --controller is required")
		}
		var doc []byte
		doc, err = yaml.Marshal(map[string]string{"controller": a.controller})
		if err != nil {
			return nil, err
		}
		cfg, err = config.Parse(doc)
	}
	if err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("interface") {
		cfg.Interface = a.iface
	}
	if fl.Changed("serialport") {
		cfg.SerialPort = a.serialPort
	}
	if fl.Changed("host") {
		cfg.Host = a.host
	}
	if fl.Changed("port") {
		cfg.Port = a.port
	}
	if fl.Changed("adr") {
		cfg.Adr = a.adr
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// open builds the chamber on first use.
func (a *app) open(cmd *cobra.Command) (*config.Instance, error) {
	if a.inst != nil {
		return a.inst, nil
	}
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := []config.Option{config.WithLogger(logger.NewSlogWriter(cmd.ErrOrStderr(), cfg.Level(), false, true))}
	inst, err := config.Build(cfg, append(opts, a.buildOpts...)...)
	if err != nil {
		return nil, err
	}
	a.inst = inst

	return inst, nil
}

// execute runs the command line and closes the chamber it opened.
func (a *app) execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}

	return err
}

func (a *app) close() error {
	if a.inst == nil {
		return nil
	}
	err := a.inst.Close()
	a.inst = nil

	return err
}

// printYAML writes v to the command output as YAML.
func printYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

// parseLoopArg accepts a loop name, or "loop:N" and "cascade:N".
func parseLoopArg(arg string) (name string, ref chamber.LoopRef, err error) {
	typ, num, ok := strings.Cut(arg, ":")
	if !ok {
		return arg, chamber.LoopRef{}, nil
	}
	t, err := chamber.ParseLoopType(typ)
	if err != nil {
		return "", chamber.LoopRef{}, err
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", chamber.LoopRef{}, chamber.ValidationErrorf("invalid loop number %q", num)
	}

	return "", chamber.LoopRef{Type: t, Number: n}, nil
}

func parseNumber(what, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, chamber.ValidationErrorf("invalid %s %q", what, arg)
	}

	return n, nil
}
