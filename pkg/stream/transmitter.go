package stream

import (
	"github.com/airspeed-wireless/airspeed-go/pkg/link"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// LinkState is the view of the link the sender needs.
type LinkState interface {
	Connected() bool
	UnitSize() uint16
}

// NotifyFunc delivers one notification payload to the attached
// central. It is fire and forget: a nil return means the transport
// accepted the payload, not that the peer received it.
type NotifyFunc func(value []byte) error

// Transmitter slices payloads into fragments that fit the negotiated
// transmission unit and pushes them through the notify primitive.
type Transmitter struct {
	link   LinkState
	notify NotifyFunc
}

// NewTransmitter returns a transmitter sending over notify.
func NewTransmitter(link LinkState, notify NotifyFunc) *Transmitter {
	return &Transmitter{link: link, notify: notify}
}

// Send transmits buf. With no central attached it fails immediately
// with link.ErrNoActiveConnection. The unit size is read once at
// entry; every fragment of this pass uses it even if a renegotiation
// lands mid-pass. Fragments are the unit size minus the notification
// overhead, the last one carries the remainder, and the first
// transport failure aborts the pass. There is no partial-success
// reporting and no retry.
func (t *Transmitter) Send(buf []byte) error {
	if !t.link.Connected() {
		return link.ErrNoActiveConnection
	}

	effective := int(t.link.UnitSize()) - wire.NotifyOverhead

	if len(buf) <= effective {
		return t.notify(buf)
	}

	for off := 0; off < len(buf); {
		chunk := effective
		if rem := len(buf) - off; rem < chunk {
			chunk = rem
		}
		if err := t.notify(buf[off : off+chunk]); err != nil {
			return err
		}
		off += chunk
	}
	return nil
}
