package augment

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/sampler"
)

// ErrRoomProbability is returned when the room probabilities do not sum to 1.
var ErrRoomProbability = errors.New("room probabilities do not sum to 1")

const probabilityTolerance = 1e-8

// Room groups the RIRs recorded in one room.
type Room struct {
	ID   string
	RIRs []sampler.Item[RIR]
}

// Probability is the summed probability of the room's RIRs.
func (r *Room) Probability() float64 {
	return sampler.Total(r.RIRs)
}

// MakeRooms groups RIRs by room, in order of first appearance. Each room is
// weighted by the sum of its RIR probabilities, and these must sum to 1.
func MakeRooms(rirs []sampler.Item[RIR]) ([]sampler.Item[*Room], error) {
	var rooms []sampler.Item[*Room]
	byID := make(map[string]*Room)
	for _, it := range rirs {
		room, ok := byID[it.Value.RoomID]
		if !ok {
			room = &Room{ID: it.Value.RoomID}
			byID[room.ID] = room
			rooms = append(rooms, sampler.Item[*Room]{Value: room})
		}
		room.RIRs = append(room.RIRs, it)
	}

	var total float64
	for i := range rooms {
		p := rooms[i].Value.Probability()
		rooms[i].Probability = sampler.Prob(p)
		total += p
	}
	if math.Abs(total-1) >= probabilityTolerance {
		return nil, errors.Wrapf(ErrRoomProbability, "total %v", total)
	}
	return rooms, nil
}
