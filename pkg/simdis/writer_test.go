package simdis

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

func TestLatLonOriginAndOffsets(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, platform.NewWorld(), 36.0, -115.0)

	lat, lon := w.LatLon(geom.Point{})
	if math.Abs(lat-36.0) > 1e-6 || math.Abs(lon-(-115.0)) > 1e-6 {
		t.Errorf("origin maps to %v,%v, want 36,-115", lat, lon)
	}

	// 60 nmi north is one degree of latitude, within projection error.
	lat, _ = w.LatLon(geom.Point{Y: 60})
	if math.Abs(lat-37.0) > 0.02 {
		t.Errorf("60 nmi north maps to lat %v, want about 37", lat)
	}

	// East offsets grow longitude, shrunk by cos(lat).
	_, lon = w.LatLon(geom.Point{X: 60})
	if lon <= -115.0 {
		t.Errorf("east offset did not increase longitude: %v", lon)
	}
}

func TestWriterRecords(t *testing.T) {
	world := platform.NewWorld()
	p := platform.New("striker-1", "blue", geom.Point{X: -10, Z: 20000}, platform.StatusActive)
	if err := world.Add(p); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, world, 36.0, -115.0)
	w.Initialize()
	w.Update(0)
	p.Location.X = -9
	w.Update(5)
	w.Update(10) // no change, no record
	w.Emit(sim.Event{Time: 10, Type: sim.EventKill, Subject: p.ID, SubjectName: "striker-1", ObjectName: "tgt"})
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Version\t24", "PlatformID\t1", "PlatformName\t1\t\"striker-1\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if got := strings.Count(out, "PlatformData\t1"); got != 2 {
		t.Errorf("got %d PlatformData records, want 2", got)
	}
	if !strings.Contains(out, "Event\t1\t10.000") {
		t.Error("kill event not recorded")
	}
}

func TestMidRunPlatformGetsDeclared(t *testing.T) {
	world := platform.NewWorld()
	var buf bytes.Buffer
	w := NewWriter(&buf, world, 0, 0)
	w.Initialize()

	missile := platform.New("sam-1", "red", geom.Point{}, platform.StatusActive)
	if err := world.Add(missile); err != nil {
		t.Fatal(err)
	}
	w.Update(42)
	_ = w.Flush()

	if !strings.Contains(buf.String(), "PlatformName\t1\t\"sam-1\"") {
		t.Error("mid-run platform was not declared")
	}
}
