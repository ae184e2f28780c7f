package driver

import (
	"fmt"

	"github.com/semivibe/semi-vibe-go/internal/registermap"
)

// Status is the decoded MAIN-base snapshot returned by GetStatus.
type Status struct {
	Connected        bool
	SensorsPowered   bool
	ActuatorsPowered bool
	HasErrors        bool
}

const sensorPowerMask = registermap.StateBitTempSensor | registermap.StateBitHumidSensor
const actuatorPowerMask = registermap.StateBitLED | registermap.StateBitFan | registermap.StateBitHeater | registermap.StateBitDoors

// GetStatus reads connected_device, power_state and error_state and
// projects them into a Status record per spec.md §4.4.
func (s *Session) GetStatus() (Status, error) {
	connected, err := s.readRegister(registermap.BaseMain, registermap.OffsetConnectedDevice)
	if err != nil {
		return Status{}, err
	}
	powerState, err := s.readRegister(registermap.BaseMain, registermap.OffsetPowerState)
	if err != nil {
		return Status{}, err
	}
	errorState, err := s.readRegister(registermap.BaseMain, registermap.OffsetErrorState)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Connected:        connected != 0,
		SensorsPowered:   powerState&sensorPowerMask != 0,
		ActuatorsPowered: powerState&actuatorPowerMask != 0,
		HasErrors:        errorState != 0,
	}, nil
}

// GetTemperature reads the temperature sensor's value register.
func (s *Session) GetTemperature() (uint8, error) {
	return s.readRegister(registermap.BaseSensor, registermap.OffsetTempValue)
}

// GetHumidity reads the humidity sensor's value register.
func (s *Session) GetHumidity() (uint8, error) {
	return s.readRegister(registermap.BaseSensor, registermap.OffsetHumidValue)
}

// GetLED reads the LED actuator register.
func (s *Session) GetLED() (uint8, error) {
	return s.readRegister(registermap.BaseActuator, registermap.OffsetLED)
}

// SetLED writes the LED actuator register verbatim.
func (s *Session) SetLED(value uint8) error {
	return s.writeRegister(registermap.BaseActuator, registermap.OffsetLED, value)
}

// GetFan reads the fan actuator register.
func (s *Session) GetFan() (uint8, error) {
	return s.readRegister(registermap.BaseActuator, registermap.OffsetFan)
}

// SetFan writes the fan actuator register verbatim.
func (s *Session) SetFan(value uint8) error {
	return s.writeRegister(registermap.BaseActuator, registermap.OffsetFan, value)
}

// GetHeater reads the heater actuator register, masked to its low nibble
// per spec.md §4.4 ("getter masks with 0x0F before returning").
func (s *Session) GetHeater() (uint8, error) {
	raw, err := s.readRegister(registermap.BaseActuator, registermap.OffsetHeater)
	if err != nil {
		return 0, err
	}
	return raw & registermap.HeaterWriteMask, nil
}

// SetHeater performs the heater's read-modify-write: read the current
// register, preserve the upper reserved nibble, and write back with the
// low nibble replaced by value.
func (s *Session) SetHeater(value uint8) error {
	current, err := s.readRegister(registermap.BaseActuator, registermap.OffsetHeater)
	if err != nil {
		return err
	}

	next := (current &^ registermap.HeaterWriteMask) | (value & registermap.HeaterWriteMask)

	return s.writeRegister(registermap.BaseActuator, registermap.OffsetHeater, next)
}

// doorBit maps a 1..4 door id to its bit position in the doors register.
func doorBit(id int) (uint8, error) {
	if id < 1 || id > 4 {
		return 0, ErrInvalidParameter
	}
	return 1 << uint(2*(id-1)), nil
}

// SetDoor sets or clears the bit for door id, masks with the doors
// register's write-mask, writes back, then reads back and verifies the
// target bit landed as expected (spec.md §4.4: doors are safety-relevant).
func (s *Session) SetDoor(id int, open bool) error {
	bit, err := doorBit(id)
	if err != nil {
		return err
	}

	current, err := s.readRegister(registermap.BaseActuator, registermap.OffsetDoors)
	if err != nil {
		return err
	}

	var next uint8
	if open {
		next = current | bit
	} else {
		next = current &^ bit
	}
	next &= registermap.DoorsWriteMask

	if err := s.writeRegister(registermap.BaseActuator, registermap.OffsetDoors, next); err != nil {
		return err
	}

	readBack, err := s.readRegister(registermap.BaseActuator, registermap.OffsetDoors)
	if err != nil {
		return err
	}

	gotOpen := readBack&bit != 0
	if gotOpen != open {
		s.mu.Lock()
		s.fail(ErrDevice, fmt.Sprintf("door %d verification mismatch", id))
		s.mu.Unlock()
		return ErrDevice
	}

	return nil
}

// GetDoorState always reads fresh from the device (no cache), per
// spec.md §4.4.
func (s *Session) GetDoorState(id int) (bool, error) {
	bit, err := doorBit(id)
	if err != nil {
		return false, err
	}

	current, err := s.readRegister(registermap.BaseActuator, registermap.OffsetDoors)
	if err != nil {
		return false, err
	}

	return current&bit != 0, nil
}

// SetPowerState updates only the bit for component in its applicable
// CONTROL power register, preserving the other bits.
func (s *Session) SetPowerState(component registermap.Component, on bool) error {
	offset := component.PowerOffset()
	bit := component.ControlBit()

	current, err := s.readRegister(registermap.BaseControl, offset)
	if err != nil {
		return err
	}

	var next uint8
	if on {
		next = current | bit
	} else {
		next = current &^ bit
	}

	return s.writeRegister(registermap.BaseControl, offset, next&component.ControlWriteMask())
}

// ResetComponent sets the single bit for component in its applicable
// CONTROL reset register and clears the other bits, then writes back. The
// device auto-clears the bit; this is a single-shot request.
func (s *Session) ResetComponent(component registermap.Component) error {
	offset := component.ResetOffset()
	bit := component.ControlBit()

	return s.writeRegister(registermap.BaseControl, offset, bit)
}

// GetPowerState reads MAIN.power_state and projects it to component's bit.
func (s *Session) GetPowerState(component registermap.Component) (bool, error) {
	powerState, err := s.readRegister(registermap.BaseMain, registermap.OffsetPowerState)
	if err != nil {
		return false, err
	}
	return powerState&component.StateBit() != 0, nil
}

// GetErrorState reads MAIN.error_state and projects it to component's bit.
func (s *Session) GetErrorState(component registermap.Component) (bool, error) {
	errorState, err := s.readRegister(registermap.BaseMain, registermap.OffsetErrorState)
	if err != nil {
		return false, err
	}
	return errorState&component.StateBit() != 0, nil
}
