// Package device implements the Semi-Vibe-Device simulator: the
// authoritative register memory, its side-effect engine, and the TCP
// server that exposes it to a single driver client at a time.
package device

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/semivibe/semi-vibe-go/internal/protocol"
	"github.com/semivibe/semi-vibe-go/internal/registermap"
)

// Memory holds the authoritative register bytes for one simulated device
// and applies the masked-write, power-propagation, auto-clear-reset and
// sensor-walk semantics of spec.md §4.2. All access is serialized by mu;
// exactly one command runs to completion — including the sensor tick at
// its tail — before the next begins, matching the original
// semi_vibe_device.c's single global mutex.
type Memory struct {
	mu sync.Mutex

	connectedDevice uint8
	reservedMain    uint8
	powerState      uint8
	errorState      uint8

	sensorAID      uint8
	sensorAReading uint8
	sensorBID      uint8
	sensorBReading uint8

	actuatorLED    uint8
	actuatorFan    uint8
	actuatorHeater uint8
	actuatorDoors  uint8

	powerSensors   uint8
	powerActuators uint8
	resetSensors   uint8
	resetActuators uint8

	rng *rand.Rand
}

// Snapshot is a point-in-time copy of every register, used by tests. It
// mirrors the original's device_get_memory.
type Snapshot struct {
	ConnectedDevice uint8
	ReservedMain    uint8
	PowerState      uint8
	ErrorState      uint8

	SensorAID      uint8
	SensorAReading uint8
	SensorBID      uint8
	SensorBReading uint8

	ActuatorLED    uint8
	ActuatorFan    uint8
	ActuatorHeater uint8
	ActuatorDoors  uint8

	PowerSensors   uint8
	PowerActuators uint8
	ResetSensors   uint8
	ResetActuators uint8
}

// NewMemory creates device memory initialized per spec.md §4.2: both
// sensors and all actuators powered on, no errors, random initial sensor
// readings.
func NewMemory() *Memory {
	m := &Memory{
		connectedDevice: 0xFF,
		powerState:      0xFF,
		errorState:      0x00,
		sensorAID:       0xA1,
		sensorBID:       0xB2,
		powerSensors:    registermap.SensorPowerResetMask,
		powerActuators:  registermap.ActuatorPowerResetMask,
		rng:             rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().UnixNano())>>17|1)),
	}
	m.sensorAReading = uint8(m.rng.IntN(256))
	m.sensorBReading = uint8(m.rng.IntN(256))

	return m
}

// Snapshot returns a copy of every register under the engine's mutex.
func (m *Memory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		ConnectedDevice: m.connectedDevice,
		ReservedMain:    m.reservedMain,
		PowerState:      m.powerState,
		ErrorState:      m.errorState,
		SensorAID:       m.sensorAID,
		SensorAReading:  m.sensorAReading,
		SensorBID:       m.sensorBID,
		SensorBReading:  m.sensorBReading,
		ActuatorLED:     m.actuatorLED,
		ActuatorFan:     m.actuatorFan,
		ActuatorHeater:  m.actuatorHeater,
		ActuatorDoors:   m.actuatorDoors,
		PowerSensors:    m.powerSensors,
		PowerActuators:  m.powerActuators,
		ResetSensors:    m.resetSensors,
		ResetActuators:  m.resetActuators,
	}
}

// Dispatch interprets one parsed command and returns the response message,
// per spec.md §4.2's per-base rules. It then advances the sensor
// simulation before releasing the mutex, so "effects of command C are
// visible in subsequent reads after C's response, with the sensor tick
// applied exactly once before the next command is processed" (spec.md §5).
func (m *Memory) Dispatch(req protocol.Message) protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp := m.dispatchLocked(req)
	m.updateSensorsLocked()

	return resp
}

func (m *Memory) dispatchLocked(req protocol.Message) protocol.Message {
	if req.RW != protocol.Read && req.RW != protocol.Write {
		return protocol.NewError(protocol.Invalid)
	}

	base := registermap.Base(req.Base)

	access, known := registermap.BaseAccess(base)
	if !known {
		return protocol.NewError(protocol.Invalid)
	}

	switch access {
	case registermap.AccessNone:
		return protocol.NewError(protocol.Forbidden)
	case registermap.AccessReadOnly:
		return m.dispatchReadOnly(base, req)
	case registermap.AccessReadWrite:
		if base == registermap.BaseActuator {
			return m.dispatchActuator(req)
		}
		return m.dispatchControl(req)
	default:
		return protocol.NewError(protocol.Invalid)
	}
}

func (m *Memory) dispatchReadOnly(base registermap.Base, req protocol.Message) protocol.Message {
	if req.RW == protocol.Write {
		return protocol.NewError(protocol.Forbidden)
	}

	var value uint8
	var ok bool

	if base == registermap.BaseMain {
		value, ok = m.readMainLocked(req.Offset)
	} else {
		value, ok = m.readSensorLocked(req.Offset)
	}

	if !ok {
		return protocol.NewError(protocol.Invalid)
	}

	return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: value}
}

func (m *Memory) readMainLocked(offset uint8) (uint8, bool) {
	switch offset {
	case registermap.OffsetConnectedDevice:
		return m.connectedDevice, true
	case registermap.OffsetReservedMain:
		return m.reservedMain, true
	case registermap.OffsetPowerState:
		return m.powerState, true
	case registermap.OffsetErrorState:
		return m.errorState, true
	default:
		return 0, false
	}
}

func (m *Memory) readSensorLocked(offset uint8) (uint8, bool) {
	switch offset {
	case registermap.OffsetTempID:
		return m.sensorAID, true
	case registermap.OffsetTempValue:
		return m.sensorAReading, true
	case registermap.OffsetHumidID:
		return m.sensorBID, true
	case registermap.OffsetHumidValue:
		return m.sensorBReading, true
	default:
		return 0, false
	}
}

func (m *Memory) dispatchActuator(req protocol.Message) protocol.Message {
	switch req.Offset {
	case registermap.OffsetLED:
		return m.accessFullByte(&m.actuatorLED, req)
	case registermap.OffsetFan:
		return m.accessFullByte(&m.actuatorFan, req)
	case registermap.OffsetHeater:
		return m.accessMasked(&m.actuatorHeater, registermap.HeaterWriteMask, req)
	case registermap.OffsetDoors:
		return m.accessMasked(&m.actuatorDoors, registermap.DoorsWriteMask, req)
	default:
		return protocol.NewError(protocol.Invalid)
	}
}

// accessFullByte implements a read/write register whose writes store the
// full data byte verbatim (LED, fan).
func (m *Memory) accessFullByte(reg *uint8, req protocol.Message) protocol.Message {
	if req.RW == protocol.Read {
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: *reg}
	}

	*reg = req.Data
	return req // write echo (spec.md P5): verbatim, including pre-mask data
}

// accessMasked implements a read/write register whose writes are silently
// masked before storage (heater, doors), while the response still echoes
// the request's un-masked data per P5.
func (m *Memory) accessMasked(reg *uint8, mask uint8, req protocol.Message) protocol.Message {
	if req.RW == protocol.Read {
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: *reg}
	}

	*reg = req.Data & mask
	return req
}

func (m *Memory) dispatchControl(req protocol.Message) protocol.Message {
	switch req.Offset {
	case registermap.OffsetPowerSensors:
		return m.accessPower(&m.powerSensors, registermap.SensorPowerResetMask, req,
			registermap.ControlBitTempSensor, registermap.StateBitTempSensor,
			registermap.ControlBitHumidSensor, registermap.StateBitHumidSensor)
	case registermap.OffsetPowerActuators:
		return m.accessPower(&m.powerActuators, registermap.ActuatorPowerResetMask, req,
			registermap.ControlBitLED, registermap.StateBitLED,
			registermap.ControlBitFan, registermap.StateBitFan,
			registermap.ControlBitHeater, registermap.StateBitHeater,
			registermap.ControlBitDoors, registermap.StateBitDoors)
	case registermap.OffsetResetSensors:
		return m.accessReset(&m.resetSensors, registermap.SensorPowerResetMask, req, []resetTarget{
			{registermap.ControlBitTempSensor, registermap.StateBitTempSensor, nil},
			{registermap.ControlBitHumidSensor, registermap.StateBitHumidSensor, nil},
		})
	case registermap.OffsetResetActuators:
		return m.accessReset(&m.resetActuators, registermap.ActuatorPowerResetMask, req, []resetTarget{
			{registermap.ControlBitLED, registermap.StateBitLED, &m.actuatorLED},
			{registermap.ControlBitFan, registermap.StateBitFan, &m.actuatorFan},
			{registermap.ControlBitHeater, registermap.StateBitHeater, &m.actuatorHeater},
			{registermap.ControlBitDoors, registermap.StateBitDoors, &m.actuatorDoors},
		})
	default:
		return protocol.NewError(protocol.Invalid)
	}
}

// accessPower implements a power register write: store the masked data,
// then propagate each control bit into connected_device/power_state as a
// pair of (controlBit, stateBit) arguments.
func (m *Memory) accessPower(reg *uint8, mask uint8, req protocol.Message, bitPairs ...uint8) protocol.Message {
	if req.RW == protocol.Read {
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: *reg}
	}

	*reg = req.Data & mask

	for i := 0; i+1 < len(bitPairs); i += 2 {
		controlBit, stateBit := bitPairs[i], bitPairs[i+1]
		if req.Data&controlBit != 0 {
			m.connectedDevice |= stateBit
			m.powerState |= stateBit
		} else {
			m.connectedDevice &^= stateBit
			m.powerState &^= stateBit
		}
	}

	return req
}

// resetTarget pairs a reset register's control bit with the error_state bit
// it clears and (for actuators) the value register it zeros.
type resetTarget struct {
	controlBit uint8
	stateBit   uint8
	valueReg   *uint8
}

// accessReset implements a reset register write: for each bit set in the
// request, clear the matching error_state bit, zero the matching actuator
// value register (sensors have none), and auto-clear that bit in the
// reset register itself.
func (m *Memory) accessReset(reg *uint8, mask uint8, req protocol.Message, targets []resetTarget) protocol.Message {
	if req.RW == protocol.Read {
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: *reg}
	}

	*reg = req.Data & mask

	for _, t := range targets {
		if req.Data&t.controlBit == 0 {
			continue
		}
		m.errorState &^= t.stateBit
		if t.valueReg != nil {
			*t.valueReg = 0
		}
		*reg &^= t.controlBit // auto-clear
	}

	return req
}

// updateSensorsLocked advances the sensor random walk for any sensor that
// is currently powered, per spec.md §4.2. The exact distribution is not
// part of the observable contract (Open Question 3); only power-gating
// (P8) and the ~1% error-raise envelope are testable.
func (m *Memory) updateSensorsLocked() {
	if m.powerState&registermap.StateBitTempSensor != 0 {
		m.sensorAReading = walk(m.rng, m.sensorAReading, m.actuatorHeater)
		if m.rng.IntN(100) == 0 {
			m.errorState |= registermap.StateBitTempSensor
		}
	}

	if m.powerState&registermap.StateBitHumidSensor != 0 {
		m.sensorBReading = walk(m.rng, m.sensorBReading, m.actuatorFan)
		if m.rng.IntN(100) == 0 {
			m.errorState |= registermap.StateBitHumidSensor
		}
	}
}

// walk nudges reading by a small signed step, biased by influence (heater
// or fan value), and clamps to [0, 255].
func walk(rng *rand.Rand, reading, influence uint8) uint8 {
	step := rng.IntN(5) - 2 // [-2, 2]
	if influence > 0x80 {
		step += 1
	}

	next := int(reading) + step
	switch {
	case next < 0:
		return 0
	case next > 255:
		return 255
	default:
		return uint8(next)
	}
}
