// Package diagnostics implements a sink for (node id, originating operation,
// human-readable cause) tuples, backed by logrus structured fields instead
// of formatted strings.
package diagnostics

import (
	"github.com/sirupsen/logrus"

	"github.com/librescoot/simple-data-protocol/pkg/sdp"
)

// Severity classifies a diagnostic cause into the three tiers this module
// actually produces: frame-tick tracing, recoverable protocol errors, and
// unexpected transport failures.
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityWarn
	SeverityError
)

// classify maps an operation name to the severity it's reported at. The
// max_payload warning from New and everything reported under "receive"
// (CRC mismatch, standalone DLE, oversize, timeout, read failures) are
// warnings; failures on the send and NACK-echo paths are errors; any other
// operation name is logged at debug level.
func classify(op string) Severity {
	switch op {
	case "new":
		return SeverityWarn
	case "receive":
		return SeverityWarn
	case "dispatch_echo_nack":
		return SeverityError
	case "send_request", "send_response", "send_empty_ack":
		return SeverityError
	default:
		return SeverityTrace
	}
}

// Sink is a logrus-backed sdp.Diagnostics implementation.
type Sink struct {
	log *logrus.Logger
}

var _ sdp.Diagnostics = (*Sink)(nil)

// New wraps an existing *logrus.Logger. Pass logrus.StandardLogger() to use
// the package-level default.
func New(log *logrus.Logger) *Sink {
	return &Sink{log: log}
}

// Report implements sdp.Diagnostics.
func (s *Sink) Report(nodeID int, op string, cause string) {
	entry := s.log.WithFields(logrus.Fields{
		"node": nodeID,
		"op":   op,
	})
	switch classify(op) {
	case SeverityError:
		entry.Error(cause)
	case SeverityWarn:
		entry.Warn(cause)
	default:
		entry.Debug(cause)
	}
}
