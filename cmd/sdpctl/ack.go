package main

import (
	"github.com/spf13/cobra"
)

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Send a bare empty positive acknowledgment (SOF, ACK, EOF)",
	RunE:  runAck,
}

func runAck(cmd *cobra.Command, args []string) error {
	node, ch, err := openNode(1, nil)
	if err != nil {
		return err
	}
	defer ch.Close()
	return node.SendEmptyAck()
}
