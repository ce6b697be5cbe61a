package imu

import (
	"fmt"
	"math"
	"time"
)

// SensorType tags which stream a sample came from.
type SensorType string

const (
	Accelerometer SensorType = "accel"
	Magnetometer  SensorType = "mag"
)

// Vector is a single 3-axis reading (m/s² for accel, µT for mag).
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sample is one reading from one of the two sensor streams.
type Sample struct {
	Type   SensorType `json:"type"`
	Values Vector     `json:"values"`
	Time   time.Time  `json:"time"`
}

// ParseSensorType accepts the short and long names of both streams.
func ParseSensorType(s string) (SensorType, error) {
	switch s {
	case "accel", "accelerometer":
		return Accelerometer, nil
	case "mag", "magnetometer":
		return Magnetometer, nil
	}
	return "", fmt.Errorf("unknown sensor type %q", s)
}

func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vector) Dot(w Vector) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns v × w.
func (v Vector) Cross(w Vector) Vector {
	return Vector{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

func (v Vector) Scale(k float64) Vector {
	return Vector{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}
