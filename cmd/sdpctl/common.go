package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/librescoot/simple-data-protocol/pkg/config"
	"github.com/librescoot/simple-data-protocol/pkg/diagnostics"
	"github.com/librescoot/simple-data-protocol/pkg/sdp"
	"github.com/librescoot/simple-data-protocol/pkg/transport"
)

// loadConfig resolves the node configuration record: the YAML file at
// configPath if one was given, otherwise the §4.9 defaults.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// openNode wires a transport.Serial channel, a logrus diagnostics sink, and
// an sdp.Node: open the port first, then build the node around it so the
// node's timeouts come from the resolved config rather than its defaults.
func openNode(id int, handler sdp.Handler) (*sdp.Node, *transport.Serial, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	ch, err := transport.Open(serialDevice, baudRate)
	if err != nil {
		return nil, nil, fmt.Errorf("open serial device %s: %w", serialDevice, err)
	}

	diag := diagnostics.New(log)
	node := sdp.New(handler, ch, id, cfg.MaxPayload, diag)
	node.SetTimeouts(cfg.RxFrameTimeout, cfg.TxFrameTimeout)
	node.SetResponseTimeout(cfg.ResponseTimeout)

	return node, ch, nil
}
