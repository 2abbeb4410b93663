package machine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/coord"
)

func TestBus_Subscribe(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe(1)
	ch2, cancel2 := b.Subscribe(4)
	defer cancel2()

	b.Publish(Event{Type: EventData, Payload: Data{Line: "ok"}})
	b.Publish(Event{Type: EventData, Payload: Data{Line: "dropped for ch1"}})

	assert.Equal(t, Data{Line: "ok"}, (<-ch1).Payload)
	assert.Equal(t, Data{Line: "ok"}, (<-ch2).Payload)
	assert.Equal(t, Data{Line: "dropped for ch1"}, (<-ch2).Payload)

	cancel1()
	cancel1()
	_, ok := <-ch1
	assert.False(t, ok)

	// publishing after cancel must not panic
	b.Publish(Event{Type: EventClosed})
	assert.Equal(t, EventClosed, (<-ch2).Type)
}

func TestControllerState_Connected(t *testing.T) {
	assert.False(t, Disconnected.Connected())
	assert.False(t, Connecting.Connected())
	assert.True(t, Idle.Connected())
	assert.True(t, Paused.Connected())
}

func TestProbeGridOptions_Points(t *testing.T) {
	opt := ProbeGridOptions{DistanceX: 10, DistanceY: 5, Granularity: unitGrid()}
	pts, err := opt.Points()
	require.NoError(t, err)

	// spacing of 1 along both axes, rows alternate direction
	assert.Len(t, pts, 11*6)
	assert.Equal(t, coord.XY(0, 0), pts[0])
	assert.Equal(t, coord.XY(10, 0), pts[10])
	assert.Equal(t, coord.XY(10, 1), pts[11])
	assert.Equal(t, coord.XY(0, 1), pts[21])

	_, err = ProbeGridOptions{DistanceX: 1}.Points()
	assert.Error(t, err)
}

func TestProbeGridOptions_Program(t *testing.T) {
	opt := ProbeGridOptions{
		ProbeOptions: ProbeOptions{FeedRate: 50, MaxTravel: 10, Lift: 2},
		DistanceX:    1,
		DistanceY:    0,
		Granularity:  unitGrid(),
	}
	prog, n, err := opt.Program()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, strings.Join([]string{
		"G90 G21",
		"G00 Z2.000",
		"G00 X0.000 Y0.000",
		"G91 G38.2 Z-10.000 F50.000",
		"G90 G00 Z2.000",
		"G00 X1.000 Y0.000",
		"G91 G38.2 Z-10.000 F50.000",
		"G90 G00 Z2.000",
		"G00 X0.000 Y0.000",
	}, "\n")+"\n", prog)

	opt.FeedRate = 0
	_, _, err = opt.Program()
	assert.Error(t, err)
}

// unitGrid is a granularity that gives a grid spacing of exactly 1.
func unitGrid() float64 { return 1.4142135623730951 }
