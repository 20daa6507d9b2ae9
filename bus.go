package r48

import (
	"fmt"
	"strings"
)

// SocketCAN identifier layout, the flags live in the upper bits of the ID
const (
	CanEffFlag uint32 = 0x80000000 // Extended frame format (29 bit identifier)
	CanRtrFlag uint32 = 0x40000000 // Remote transmission request
	CanErrFlag uint32 = 0x20000000 // Error frame
	CanSffMask uint32 = 0x000007FF
	CanEffMask uint32 = 0x1FFFFFFF
)

// A CAN frame
type Frame struct {
	ID    uint32
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

// Create a new extended frame with a full 8 byte payload
func NewFrame(identifier uint32, rtr bool, data [8]byte) Frame {
	id := (identifier & CanEffMask) | CanEffFlag
	if rtr {
		id |= CanRtrFlag
	}
	return Frame{ID: id, DLC: 8, Data: data}
}

// Identifier without the socketcan flags
func (f Frame) Identifier() uint32 {
	if f.Extended() {
		return f.ID & CanEffMask
	}
	return f.ID & CanSffMask
}

func (f Frame) Extended() bool {
	return f.ID&CanEffFlag != 0
}

func (f Frame) RTR() bool {
	return f.ID&CanRtrFlag != 0
}

// Payload restricted to DLC
func (f Frame) Payload() []byte {
	dlc := int(f.DLC)
	if dlc > len(f.Data) {
		dlc = len(f.Data)
	}
	return f.Data[:dlc]
}

func (f Frame) String() string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("0x%08X", f.Identifier()))
	if f.RTR() {
		out.WriteString(" R")
	}
	out.WriteString(fmt.Sprintf(" [%d]", f.DLC))
	for _, b := range f.Payload() {
		out.WriteString(fmt.Sprintf(" %02x", b))
	}
	return out.String()
}

// Interface for handling a received CAN frame
type FrameListener interface {
	Handle(frame Frame)
}

// A CAN Bus interface
type Bus interface {
	Connect(...any) error                   // Connect to the CAN bus
	Disconnect() error                      // Disconnect from CAN bus
	Send(frame Frame) error                 // Send a frame on the bus
	Subscribe(callback FrameListener) error // Subscribe to all received CAN frames
}
