package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/dockens/stagehand/internal/printer"
)

var (
	workerDevice string
	workerBaud   int

	workerCmd = &cobra.Command{
		Use:    "print-worker",
		Hidden: true,
		Short:  "Hold the printer's serial port open and relay print jobs",
		Args:   cobra.NoArgs,
		RunE:   runPrintWorker,
	}
)

func init() {
	workerCmd.Flags().StringVar(&workerDevice, "device", "/dev/rfcomm0", "serial device node")
	workerCmd.Flags().IntVar(&workerBaud, "baud", 9600, "serial baud rate")
}

func runPrintWorker(*cobra.Command, []string) error {
	mode := &serial.Mode{
		BaudRate: workerBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(workerDevice, mode)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", workerDevice, err)
	}
	// The port is deliberately never closed. Closing an RFCOMM serial port
	// can wedge the Bluetooth link until the next power cycle; letting
	// process exit tear it down avoids that.
	return printer.ServeWorker(port, os.Stdin, os.Stdout)
}
