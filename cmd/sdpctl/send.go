package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librescoot/simple-data-protocol/pkg/sdp"
)

var sendHex string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a request frame and print the response",
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendHex, "hex", "", "Payload bytes, hex-encoded")
	sendCmd.MarkFlagRequired("hex")
}

func runSend(cmd *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(sendHex)
	if err != nil {
		return fmt.Errorf("decode --hex payload: %w", err)
	}

	node, ch, err := openNode(1, nil)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := node.EnableReceiver(); err != nil {
		return err
	}
	defer node.DisableReceiver()

	resp, err := node.SendRequest(sdp.FromBytes(raw))
	if err != nil {
		return fmt.Errorf("send_request failed: %w", err)
	}
	fmt.Println(hex.EncodeToString(resp))
	return nil
}
