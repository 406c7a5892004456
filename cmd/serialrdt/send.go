package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amken3d/serialrdt/host/serial"
	"github.com/amken3d/serialrdt/protocol"
	"github.com/amken3d/serialrdt/rdt"
	"github.com/amken3d/serialrdt/rdtconfig"
)

func newSendCommand() *cobra.Command {
	envCfg, err := rdtconfig.Load(context.Background())
	if err != nil {
		envCfg = &rdtconfig.SessionConfig{}
	}

	var f commonFlags
	var inputPath string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a payload to a receiving peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, f, inputPath)
		},
	}
	bindCommonFlags(cmd, &f, envCfg)
	cmd.Flags().StringVar(&inputPath, "input", "-", "file to send, or - for stdin")
	return cmd
}

func runSend(cmd *cobra.Command, f commonFlags, inputPath string) error {
	cfg := f.toConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	payload, err := readPayload(inputPath)
	if err != nil {
		return fmt.Errorf("serialrdt: read payload: %w", err)
	}

	log := newLogger(f.verbose)
	metrics := protocol.NewMetrics(nil)

	port, err := serial.Open(&serial.Config{Device: cfg.Device, Baud: cfg.Baud, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("serialrdt: open %s: %w", cfg.Device, err)
	}
	defer port.Close()

	channel := serial.NewPhysicalChannel(port)
	session, err := rdt.NewSession(cfg.RdtMode(), channel, cfg.SeqSpace(), cfg.PktSize, cfg.TimeoutMS, log, metrics)
	if err != nil {
		return fmt.Errorf("serialrdt: new session: %w", err)
	}
	defer session.Close()

	log.WithField("bytes", len(payload)).Info("sending payload")
	if err := session.Send(cmd.Context(), payload, 0); err != nil {
		return fmt.Errorf("serialrdt: send: %w", err)
	}
	log.Info("send complete")
	return nil
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
