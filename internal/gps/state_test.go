package gps

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyNMEA(t *testing.T) {
	s := NewState(time.Minute, zerolog.Nop())
	_, ok := s.Position()
	assert.False(t, ok)

	assert.True(t, s.applyNMEA("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"))
	fix, ok := s.Position()
	require.True(t, ok)
	assert.InDelta(t, 48.1173, fix.Lat, 1e-4)
	assert.InDelta(t, 11.5167, fix.Lon, 1e-4)
	assert.False(t, fix.Cached)

	assert.True(t, s.applyNMEA("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"))
	assert.False(t, s.applyNMEA("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00"), "bad checksum")
	assert.False(t, s.applyNMEA("not nmea"))
}

func TestApplyGPSD(t *testing.T) {
	s := NewState(time.Minute, zerolog.Nop())
	assert.False(t, s.applyGPSD(`{"class":"VERSION","release":"3.22"}`))
	assert.False(t, s.applyGPSD(`{"class":"TPV","mode":1}`))
	assert.False(t, s.applyGPSD(`{broken`))
	assert.True(t, s.applyGPSD(`{"class":"TPV","mode":3,"lat":52.52,"lon":13.405}`))

	fix, ok := s.Position()
	require.True(t, ok)
	assert.Equal(t, 52.52, fix.Lat)
	assert.Equal(t, 13.405, fix.Lon)
	assert.Equal(t, "52.520000, 13.405000", fix.String())
}

func TestPosition_Cached(t *testing.T) {
	s := NewState(time.Minute, zerolog.Nop())
	s.updateFix(1, 2)
	s.mu.Lock()
	s.lastFix = time.Now().Add(-2 * time.Minute)
	s.mu.Unlock()

	fix, ok := s.Position()
	require.True(t, ok)
	assert.True(t, fix.Cached)
	assert.Equal(t, "(1.000000, 2.000000)", fix.String())
}

func TestLastPacket(t *testing.T) {
	s := NewState(time.Minute, zerolog.Nop())
	_, ok := s.LastPacket()
	assert.False(t, ok)

	// A line without a fix still counts as data.
	err := s.consume(context.Background(), strings.NewReader("$GPTXT,01,01,02,ANTSTATUS=OK*3B\n"), s.applyNMEA)
	assert.ErrorContains(t, err, "closed")

	age, ok := s.LastPacket()
	require.True(t, ok)
	assert.Less(t, age, time.Minute)
	_, ok = s.Position()
	assert.False(t, ok)
}

func TestNilState(t *testing.T) {
	var s *State
	_, ok := s.Position()
	assert.False(t, ok)
	_, ok = s.LastPacket()
	assert.False(t, ok)
	assert.Equal(t, "", s.Source())
}

func TestConsume(t *testing.T) {
	s := NewState(time.Minute, zerolog.Nop())
	r := strings.NewReader("\n{\"class\":\"TPV\",\"mode\":2,\"lat\":1.5,\"lon\":-2.5}\n")
	err := s.consume(context.Background(), r, s.applyGPSD)
	assert.ErrorContains(t, err, "closed")

	fix, ok := s.Position()
	require.True(t, ok)
	assert.Equal(t, -2.5, fix.Lon)
}

func TestStart(t *testing.T) {
	s := NewState(time.Minute, zerolog.Nop())
	assert.NoError(t, s.Start(context.Background(), Config{Mode: ModeOff}))
	assert.NoError(t, s.Start(context.Background(), Config{}))
	assert.Error(t, s.Start(context.Background(), Config{Mode: "carrier-pigeon"}))
}
