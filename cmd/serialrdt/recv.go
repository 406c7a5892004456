package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amken3d/serialrdt/host/serial"
	"github.com/amken3d/serialrdt/protocol"
	"github.com/amken3d/serialrdt/rdt"
	"github.com/amken3d/serialrdt/rdtconfig"
)

func newRecvCommand() *cobra.Command {
	envCfg, err := rdtconfig.Load(context.Background())
	if err != nil {
		envCfg = &rdtconfig.SessionConfig{}
	}

	var f commonFlags
	var outputPath string
	var length int

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Receive a payload from a sending peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecv(cmd, f, outputPath, length)
		},
	}
	bindCommonFlags(cmd, &f, envCfg)
	cmd.Flags().StringVar(&outputPath, "output", "-", "file to write the received payload to, or - for stdout")
	cmd.Flags().IntVar(&length, "length", 0, "expected payload length in bytes (required)")
	return cmd
}

func runRecv(cmd *cobra.Command, f commonFlags, outputPath string, length int) error {
	cfg := f.toConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if length <= 0 {
		return fmt.Errorf("serialrdt: --length must be a positive number of bytes")
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

	buf := make([]byte, length)
	log.WithField("bytes", length).Info("waiting for payload")
	if err := session.Recv(cmd.Context(), buf, 0); err != nil {
		return fmt.Errorf("serialrdt: recv: %w", err)
	}
	log.Info("receive complete")

	return writePayload(outputPath, buf)
}

func writePayload(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
