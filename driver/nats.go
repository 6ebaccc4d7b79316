package driver

import (
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNATS connects to the NATS server used for payment events and the
// check-image object store.
func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
}
