// Command serialrdt drives one reliable-data-transfer session over a
// physical serial link, sending or receiving a single payload per
// invocation.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amken3d/serialrdt/rdtconfig"
)

// commonFlags are shared between send and recv; each binds them onto its
// own SessionConfig loaded from the environment, so an unset flag falls
// back to its RDT_* env var / default.
type commonFlags struct {
	device    string
	baud      int
	timeoutMS int64
	pktSize   int
	maxSeq    uint8
	mode      string
	verbose   bool
}

func bindCommonFlags(cmd *cobra.Command, f *commonFlags, cfg *rdtconfig.SessionConfig) {
	flags := cmd.Flags()
	flags.StringVar(&f.device, "device", cfg.Device, "serial device path")
	flags.IntVar(&f.baud, "baud", cfg.Baud, "baud rate")
	flags.Int64Var(&f.timeoutMS, "timeout-ms", cfg.TimeoutMS, "retransmission timeout in milliseconds")
	flags.IntVar(&f.pktSize, "pkt-size", cfg.PktSize, "data bytes per frame")
	flags.Uint8Var(&f.maxSeq, "max-seq", cfg.MaxSeq, "largest sequence number (must be 2^n-1)")
	flags.StringVar(&f.mode, "mode", cfg.Mode, "selective_repeat or go_back_n")
	flags.BoolVar(&f.verbose, "verbose", false, "enable debug logging")
}

func (f *commonFlags) toConfig() *rdtconfig.SessionConfig {
	return &rdtconfig.SessionConfig{
		Device:    f.device,
		Baud:      f.baud,
		TimeoutMS: f.timeoutMS,
		PktSize:   f.pktSize,
		MaxSeq:    f.maxSeq,
		Mode:      f.mode,
	}
}

func newLogger(verbose bool) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(log)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "serialrdt",
		Short: "Reliable data transfer over a serial link",
	}
	root.AddCommand(newSendCommand())
	root.AddCommand(newRecvCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
