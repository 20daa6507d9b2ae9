package r48

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type subscription struct {
	id       uint64
	ident    uint32
	mask     uint32
	listener FrameListener
}

// Bus manager is a wrapper around the CAN bus interface
// It dispatches received frames to listeners subscribed to an identifier/mask pair
type BusManager struct {
	mu            sync.Mutex
	bus           Bus // Bus interface that can be adapted
	logger        *log.Entry
	subscriptions []subscription
	nextId        uint64
	txCount       uint64
	rxCount       uint64
}

// Implements the FrameListener interface
// This handles all received CAN frames from Bus
func (bm *BusManager) Handle(frame Frame) {
	bm.mu.Lock()
	bm.rxCount++
	listeners := make([]FrameListener, 0, 1)
	for _, sub := range bm.subscriptions {
		if (frame.ID^sub.ident)&sub.mask == 0 {
			listeners = append(listeners, sub.listener)
		}
	}
	bm.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	bm.logger.Debugf("rx %v", frame)
	// Listeners are called without the lock so they may send from their callback
	for _, listener := range listeners {
		listener.Handle(frame)
	}
}

// Set bus
func (bm *BusManager) SetBus(bus Bus) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.bus = bus
}

func (bm *BusManager) Bus() Bus {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.bus
}

// Send a CAN message
// Limited error handling
func (bm *BusManager) Send(frame Frame) error {
	bm.mu.Lock()
	bus := bm.bus
	bm.mu.Unlock()

	if bus == nil {
		return ErrNoBus
	}
	bm.logger.Debugf("tx %v", frame)
	err := bus.Send(frame)
	if err != nil {
		bm.logger.Warnf("send failed %v : %v", frame, err)
		return fmt.Errorf("send 0x%08X: %w", frame.Identifier(), err)
	}
	bm.mu.Lock()
	bm.txCount++
	bm.mu.Unlock()
	return nil
}

// Subscribe to an extended identifier, the RTR flag is part of the match
// Returns a function to cancel the subscription
func (bm *BusManager) Subscribe(ident uint32, mask uint32, rtr bool, callback FrameListener) (func(), error) {
	if callback == nil {
		return nil, ErrIllegalArgument
	}
	bm.mu.Lock()
	defer bm.mu.Unlock()

	ident = (ident & CanEffMask) | CanEffFlag
	if rtr {
		ident |= CanRtrFlag
	}
	mask = (mask & CanEffMask) | CanEffFlag | CanRtrFlag

	bm.nextId++
	id := bm.nextId
	bm.subscriptions = append(bm.subscriptions, subscription{id: id, ident: ident, mask: mask, listener: callback})
	bm.logger.Debugf("subscribed to 0x%08X mask 0x%08X", ident&CanEffMask, mask&CanEffMask)
	return func() { bm.unsubscribe(id) }, nil
}

func (bm *BusManager) unsubscribe(id uint64) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	for i, sub := range bm.subscriptions {
		if sub.id == id {
			bm.subscriptions = append(bm.subscriptions[:i], bm.subscriptions[i+1:]...)
			return
		}
	}
}

// Number of frames successfully sent and received since creation
func (bm *BusManager) Stats() (tx uint64, rx uint64) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.txCount, bm.rxCount
}

func NewBusManager(bus Bus, logger *log.Logger) *BusManager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	bm := &BusManager{
		bus:           bus,
		logger:        logger.WithField("service", "[BUS]"),
		subscriptions: make([]subscription, 0),
	}
	return bm
}
