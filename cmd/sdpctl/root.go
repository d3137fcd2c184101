package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	serialDevice string
	baudRate     int
	configPath   string
	debug        bool
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:     "sdpctl",
	Short:   "Simple Data Protocol link controller",
	Long:    `sdpctl opens a serial link and speaks the Simple Data Protocol (SDP) framed byte codec over it.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serialDevice, "serial", "s", "/dev/ttyUSB0", "Serial device path")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Serial baud rate")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML node configuration file (optional)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug-level diagnostics")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(ackCmd)
}
