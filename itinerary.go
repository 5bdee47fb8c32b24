package roadplan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MessageType is type of message exchanged with the vehicle
type MessageType int32

const (
	MessagePosition = MessageType(iota + 1)
	MessageRequest
	MessageInstruction
	MessageItinerary
	MessageEnd
	MessageState
)

func (iotaIdx MessageType) String() string {
	if iotaIdx < MessagePosition || iotaIdx > MessageState {
		return fmt.Sprintf("unknown(%d)", int32(iotaIdx))
	}
	return [...]string{"position", "request", "instruction", "itinerary", "end", "state"}[iotaIdx-1]
}

const (
	// HeaderSize is size of encoded MessageHeader
	HeaderSize = 16
	// ItineraryRecordSize is size of single encoded pose
	ItineraryRecordSize = 24
	// PositionSize is size of encoded VehiclePosition
	PositionSize = 28
	// MaxPayloadSize limits payload accepted by ReadMessage
	MaxPayloadSize = 64 << 20
)

// MessageHeader precedes every message. All values are little-endian
type MessageHeader struct {
	VehicleID   int32
	Type        MessageType
	PayloadSize uint64
}

// itineraryRecord is wire layout of single pose
type itineraryRecord struct {
	X        float32
	Y        float32
	Z        float32
	Theta    float32 // degrees
	Bridge   int32
	Overtake int32
}

// VehiclePosition is payload of MessagePosition
type VehiclePosition struct {
	X     float32
	Y     float32
	Z     float32
	Theta float32
	VX    float32
	VY    float32
	VZ    float32
}

// EncodeItinerary writes trajectory in vehicle format: int32 number of poses followed by
// (float32 x, y, z, theta in degrees, int32 bridge, overtake) for every pose
func EncodeItinerary(w io.Writer, trajectory Trajectory) error {
	err := binary.Write(w, binary.LittleEndian, int32(len(trajectory)))
	if err != nil {
		return errors.Wrap(err, "Can't write number of poses")
	}
	records := make([]itineraryRecord, len(trajectory))
	for i, pose := range trajectory {
		records[i] = itineraryRecord{
			X:        float32(pose.X),
			Y:        float32(pose.Y),
			Z:        float32(pose.Z),
			Theta:    float32(RadiansToDegrees(pose.Theta)),
			Bridge:   boolToInt32(pose.Zones.Bridge),
			Overtake: boolToInt32(pose.Zones.Overtake),
		}
	}
	err = binary.Write(w, binary.LittleEndian, records)
	if err != nil {
		return errors.Wrap(err, "Can't write poses")
	}
	return nil
}

// MarshalItinerary returns encoded trajectory (see EncodeItinerary)
func MarshalItinerary(trajectory Trajectory) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4+ItineraryRecordSize*len(trajectory)))
	err := EncodeItinerary(buf, trajectory)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeItinerary reads trajectory encoded by EncodeItinerary. Heading is converted back to radians
func DecodeItinerary(r io.Reader) (Trajectory, error) {
	var count int32
	err := binary.Read(r, binary.LittleEndian, &count)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read number of poses")
	}
	if count < 0 || int64(count)*ItineraryRecordSize > MaxPayloadSize {
		return nil, errors.Errorf("Bad number of poses: %d", count)
	}
	records := make([]itineraryRecord, count)
	err = binary.Read(r, binary.LittleEndian, records)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read poses")
	}
	trajectory := make(Trajectory, count)
	for i, record := range records {
		trajectory[i] = TrajectoryPoint{
			ID:    i,
			X:     float64(record.X),
			Y:     float64(record.Y),
			Z:     float64(record.Z),
			Theta: NormalizeAngle(DegreesToRadians(float64(record.Theta))),
			Zones: ZoneFlags{
				Bridge:   record.Bridge != 0,
				Overtake: record.Overtake != 0,
			},
		}
	}
	return trajectory, nil
}

// EncodePosition returns payload of MessagePosition
func EncodePosition(position VehiclePosition) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, PositionSize))
	// Writing into bytes.Buffer never fails
	_ = binary.Write(buf, binary.LittleEndian, position)
	return buf.Bytes()
}

// DecodePosition parses payload of MessagePosition
func DecodePosition(payload []byte) (VehiclePosition, error) {
	if len(payload) != PositionSize {
		return VehiclePosition{}, errors.Errorf("Bad size of position payload: %d", len(payload))
	}
	position := VehiclePosition{}
	err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &position)
	if err != nil {
		return VehiclePosition{}, errors.Wrap(err, "Can't read position")
	}
	return position, nil
}

// WriteMessage writes header and payload
func WriteMessage(w io.Writer, vehicleID int32, msgType MessageType, payload []byte) error {
	header := MessageHeader{
		VehicleID:   vehicleID,
		Type:        msgType,
		PayloadSize: uint64(len(payload)),
	}
	err := binary.Write(w, binary.LittleEndian, header)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	_, err = w.Write(payload)
	if err != nil {
		return errors.Wrap(err, "Can't write payload")
	}
	return nil
}

// ReadMessage reads header and payload of single message
func ReadMessage(r io.Reader) (MessageHeader, []byte, error) {
	header := MessageHeader{}
	err := binary.Read(r, binary.LittleEndian, &header)
	if err != nil {
		return MessageHeader{}, nil, errors.Wrap(err, "Can't read header")
	}
	if header.PayloadSize > MaxPayloadSize {
		return MessageHeader{}, nil, errors.Errorf("Payload is too big: %d bytes", header.PayloadSize)
	}
	payload := make([]byte, header.PayloadSize)
	_, err = io.ReadFull(r, payload)
	if err != nil {
		return MessageHeader{}, nil, errors.Wrap(err, "Can't read payload")
	}
	return header, payload, nil
}

func boolToInt32(value bool) int32 {
	if value {
		return 1
	}
	return 0
}
