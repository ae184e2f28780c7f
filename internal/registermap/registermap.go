// Package registermap describes the Semi-Vibe register map: the four base
// address spaces, their offsets, access rules, and write masks.
//
// This package is a leaf: it has no I/O and no dependency on the codec or
// the device/driver packages, mirroring how arloliu/go-secs keeps its
// secs2 item descriptors free of transport concerns.
package registermap

// Base identifies one of the four address spaces selected by the first
// hex digit of a frame.
type Base uint8

const (
	BaseReserved Base = 0x0
	BaseMain     Base = 0x1
	BaseSensor   Base = 0x2
	BaseActuator Base = 0x3
	BaseControl  Base = 0x4
)

func (b Base) String() string {
	switch b {
	case BaseReserved:
		return "RESERVED"
	case BaseMain:
		return "MAIN"
	case BaseSensor:
		return "SENSOR"
	case BaseActuator:
		return "ACTUATOR"
	case BaseControl:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Access describes whether a register may be read, written, or both.
type Access uint8

const (
	AccessNone      Access = iota // BaseReserved: any access is forbidden
	AccessReadOnly                // MAIN, SENSOR
	AccessReadWrite               // ACTUATOR, CONTROL
)

// MAIN offsets.
const (
	OffsetConnectedDevice = 0x00
	OffsetReservedMain    = 0x01
	OffsetPowerState      = 0x02
	OffsetErrorState      = 0x03
)

// SENSOR offsets.
const (
	OffsetTempID     = 0x10
	OffsetTempValue  = 0x11
	OffsetHumidID    = 0x20
	OffsetHumidValue = 0x21
)

// ACTUATOR offsets.
const (
	OffsetLED    = 0x10
	OffsetFan    = 0x20
	OffsetHeater = 0x30
	OffsetDoors  = 0x40
)

// CONTROL offsets.
const (
	OffsetPowerSensors   = 0xFB
	OffsetPowerActuators = 0xFC
	OffsetResetSensors   = 0xFD
	OffsetResetActuators = 0xFE
)

// Write masks for the partially-writable registers (spec.md §3).
const (
	HeaterWriteMask        = 0x0F
	DoorsWriteMask         = 0x55
	SensorPowerResetMask   = 0x11 // power_sensors / reset_sensors
	ActuatorPowerResetMask = 0x55 // power_actuators / reset_actuators
)

// StateBit* name the bit positions of connected_device, power_state and
// error_state — the shared "status" layout. See SPEC_FULL.md §4.1 for why
// these are distinct from the ControlBit* constants below even though some
// numeric values coincide.
const (
	StateBitTempSensor  = 0x01 // sa
	StateBitHumidSensor = 0x04 // sb
	StateBitLED         = 0x10
	StateBitFan         = 0x20
	StateBitHeater      = 0x40
	StateBitDoors       = 0x80
)

// ControlBit* name the bit positions within the narrow power/reset control
// registers (power_sensors, power_actuators, reset_sensors,
// reset_actuators), which use a different, register-local layout.
const (
	ControlBitTempSensor  = 0x01
	ControlBitHumidSensor = 0x10

	ControlBitLED    = 0x01
	ControlBitFan    = 0x04
	ControlBitHeater = 0x10
	ControlBitDoors  = 0x40
)

// Component identifies one of the six logical subsystems a driver can
// power, reset, or query the error state of.
type Component uint8

const (
	Temperature Component = iota
	Humidity
	LED
	Fan
	Heater
	Doors
)

func (c Component) String() string {
	switch c {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case LED:
		return "led"
	case Fan:
		return "fan"
	case Heater:
		return "heater"
	case Doors:
		return "doors"
	default:
		return "unknown"
	}
}

// IsSensor reports whether the component lives in the sensor power/reset
// registers (as opposed to the actuator ones).
func (c Component) IsSensor() bool {
	return c == Temperature || c == Humidity
}

// StateBit returns the component's bit position in connected_device /
// power_state / error_state.
func (c Component) StateBit() uint8 {
	switch c {
	case Temperature:
		return StateBitTempSensor
	case Humidity:
		return StateBitHumidSensor
	case LED:
		return StateBitLED
	case Fan:
		return StateBitFan
	case Heater:
		return StateBitHeater
	case Doors:
		return StateBitDoors
	default:
		return 0
	}
}

// ControlBit returns the component's bit position in its power/reset
// control register (power_sensors/reset_sensors for sensors,
// power_actuators/reset_actuators for actuators).
func (c Component) ControlBit() uint8 {
	switch c {
	case Temperature:
		return ControlBitTempSensor
	case Humidity:
		return ControlBitHumidSensor
	case LED:
		return ControlBitLED
	case Fan:
		return ControlBitFan
	case Heater:
		return ControlBitHeater
	case Doors:
		return ControlBitDoors
	default:
		return 0
	}
}

// PowerOffset returns the CONTROL-base offset of the power register that
// governs this component.
func (c Component) PowerOffset() uint8 {
	if c.IsSensor() {
		return OffsetPowerSensors
	}
	return OffsetPowerActuators
}

// ResetOffset returns the CONTROL-base offset of the reset register that
// governs this component.
func (c Component) ResetOffset() uint8 {
	if c.IsSensor() {
		return OffsetResetSensors
	}
	return OffsetResetActuators
}

// ControlWriteMask returns the write-mask of this component's power/reset
// register.
func (c Component) ControlWriteMask() uint8 {
	if c.IsSensor() {
		return SensorPowerResetMask
	}
	return ActuatorPowerResetMask
}

// BaseAccess returns the access rule for a base address. Bases outside
// 0..4 are not part of the map at all (callers should treat them as an
// unrecognized base, not AccessNone, per semi_vibe_device.c's behavior of
// returning `invalid` rather than `forbidden` for base values 5-F).
func BaseAccess(b Base) (Access, bool) {
	switch b {
	case BaseReserved:
		return AccessNone, true
	case BaseMain, BaseSensor:
		return AccessReadOnly, true
	case BaseActuator, BaseControl:
		return AccessReadWrite, true
	default:
		return AccessNone, false
	}
}
