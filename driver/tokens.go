package driver

// ackToken and exitToken are the driver side of the two out-of-band byte
// sequences defined by the wire protocol (see device.Server for the
// server side of the same handshake).
var (
	ackToken  = []byte("ACK")
	exitToken = []byte("exit")
)
