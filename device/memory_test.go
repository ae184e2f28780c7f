package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semivibe/semi-vibe-go/internal/protocol"
	"github.com/semivibe/semi-vibe-go/internal/registermap"
)

func TestInitialSnapshot(t *testing.T) {
	mem := NewMemory()
	snap := mem.Snapshot()

	assert.Equal(t, uint8(0xFF), snap.ConnectedDevice)
	assert.Equal(t, uint8(0xFF), snap.PowerState)
	assert.Equal(t, uint8(0x00), snap.ErrorState)
	assert.Equal(t, uint8(0xA1), snap.SensorAID)
	assert.Equal(t, uint8(0xB2), snap.SensorBID)
	assert.Equal(t, uint8(registermap.SensorPowerResetMask), snap.PowerSensors)
	assert.Equal(t, uint8(registermap.ActuatorPowerResetMask), snap.PowerActuators)
}

func TestReservedBaseForbidden(t *testing.T) {
	mem := NewMemory()

	resp := mem.Dispatch(protocol.NewRead(0x0, 0x00))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.Forbidden, resp.Error)
}

func TestUnknownBaseInvalid(t *testing.T) {
	mem := NewMemory()

	resp := mem.Dispatch(protocol.NewRead(0x5, 0x00))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.Invalid, resp.Error)
}

// P2: writes to MAIN/SENSOR are rejected, state is unchanged.
func TestReadOnlyBasesRejectWrites(t *testing.T) {
	mem := NewMemory()

	before := mem.Snapshot()
	resp := mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseMain), registermap.OffsetConnectedDevice, 0x00))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.Forbidden, resp.Error)

	after := mem.Snapshot()
	assert.Equal(t, before.ConnectedDevice, after.ConnectedDevice)
}

// P6: rw nibble outside {0,1} yields invalid.
func TestBadRWNibbleIsInvalid(t *testing.T) {
	mem := NewMemory()

	req := protocol.NewRead(uint8(registermap.BaseActuator), registermap.OffsetLED)
	req.RW = 0x5

	resp := mem.Dispatch(req)
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.Invalid, resp.Error)
}

// P5: writes echo the request verbatim, including pre-mask data.
func TestWriteEchoesPreMaskData(t *testing.T) {
	mem := NewMemory()

	resp := mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseActuator), registermap.OffsetHeater, 0xFF))
	require.False(t, resp.IsError())
	assert.Equal(t, uint8(0xFF), resp.Data)

	readResp := mem.Dispatch(protocol.NewRead(uint8(registermap.BaseActuator), registermap.OffsetHeater))
	assert.Equal(t, uint8(0xFF&registermap.HeaterWriteMask), readResp.Data)
}

// P1: write-mask preservation for the doors register.
func TestDoorsWriteMask(t *testing.T) {
	mem := NewMemory()

	mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseActuator), registermap.OffsetDoors, 0xFF))
	readResp := mem.Dispatch(protocol.NewRead(uint8(registermap.BaseActuator), registermap.OffsetDoors))

	assert.Equal(t, uint8(registermap.DoorsWriteMask), readResp.Data)
}

// P3: power propagation for power_sensors.
func TestPowerSensorsPropagation(t *testing.T) {
	mem := NewMemory()

	mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseControl), registermap.OffsetPowerSensors, 0x00))

	snap := mem.Snapshot()
	assert.Equal(t, uint8(0), snap.PowerState&(registermap.StateBitTempSensor|registermap.StateBitHumidSensor))
	assert.Equal(t, uint8(0), snap.ConnectedDevice&(registermap.StateBitTempSensor|registermap.StateBitHumidSensor))
	assert.Equal(t, uint8(0), snap.PowerSensors)

	mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseControl), registermap.OffsetPowerSensors, registermap.ControlBitTempSensor))

	snap = mem.Snapshot()
	assert.NotZero(t, snap.PowerState&registermap.StateBitTempSensor)
	assert.NotZero(t, snap.ConnectedDevice&registermap.StateBitTempSensor)
	assert.Zero(t, snap.PowerState&registermap.StateBitHumidSensor)
}

// P4: reset auto-clear, including actuator value zeroing.
func TestResetActuatorsAutoClear(t *testing.T) {
	mem := NewMemory()

	mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseActuator), registermap.OffsetLED, 0x77))

	// Force an error bit so the reset has something to clear.
	mem.mu.Lock()
	mem.errorState |= registermap.StateBitLED
	mem.mu.Unlock()

	mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseControl), registermap.OffsetResetActuators, registermap.ControlBitLED))

	snap := mem.Snapshot()
	assert.Zero(t, snap.ResetActuators&registermap.ControlBitLED, "reset bit should auto-clear")
	assert.Zero(t, snap.ErrorState&registermap.StateBitLED, "error bit should clear")
	assert.Zero(t, snap.ActuatorLED, "actuator value should zero on reset")
}

// P8: sensor gating — an unpowered sensor's reading never changes.
func TestSensorGating(t *testing.T) {
	mem := NewMemory()

	mem.Dispatch(protocol.NewWrite(uint8(registermap.BaseControl), registermap.OffsetPowerSensors, 0x00))

	before := mem.Snapshot().SensorAReading

	for i := 0; i < 50; i++ {
		mem.Dispatch(protocol.NewRead(uint8(registermap.BaseSensor), registermap.OffsetTempValue))
	}

	after := mem.Snapshot().SensorAReading
	assert.Equal(t, before, after)
}
