package imu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccelCountsPerG(t *testing.T) {
	assert.Equal(t, 16384.0, AccelCountsPerG(0))
	assert.Equal(t, 8192.0, AccelCountsPerG(1))
	assert.Equal(t, 4096.0, AccelCountsPerG(2))
	assert.Equal(t, 2048.0, AccelCountsPerG(3))
	assert.Equal(t, 16384.0, AccelCountsPerG(9))
}

func TestIMURaw_Samples(t *testing.T) {
	at := time.Now()
	raw := IMURaw{Ax: 0, Ay: 4096, Az: -2048, Mx: 200, My: -400, Mz: 0}

	s := raw.Samples(2, at)
	require.Len(t, s, 1, "no magnetometer without HasMag")
	assert.Equal(t, Accelerometer, s[0].Type)
	assert.InDelta(t, StandardGravity, s[0].Values.Y, 1e-9)
	assert.InDelta(t, -StandardGravity/2, s[0].Values.Z, 1e-9)
	assert.Equal(t, at, s[0].Time)

	raw.HasMag = true
	s = raw.Samples(2, at)
	require.Len(t, s, 2)
	assert.Equal(t, Magnetometer, s[1].Type)
	assert.Equal(t, Vector{X: 20, Y: -40, Z: 0}, s[1].Values)
}

func TestVectorOps(t *testing.T) {
	x := Vector{X: 1}
	y := Vector{Y: 1}
	assert.Equal(t, Vector{Z: 1}, x.Cross(y))
	assert.Equal(t, 0.0, x.Dot(y))
	assert.Equal(t, 5.0, Vector{X: 3, Y: 4}.Norm())
	assert.Equal(t, Vector{X: 2, Y: -2}, Vector{X: 1, Y: -1}.Scale(2))
}

func TestParseSensorType(t *testing.T) {
	typ, err := ParseSensorType("accel")
	require.NoError(t, err)
	assert.Equal(t, Accelerometer, typ)
	typ, err = ParseSensorType("magnetometer")
	require.NoError(t, err)
	assert.Equal(t, Magnetometer, typ)
	_, err = ParseSensorType("gyro")
	assert.Error(t, err)
}
