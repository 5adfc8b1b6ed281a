// Package simdis exports simulation runs as SIMDIS ASCII scenario input
// (.asi) files: tab-separated keyword records declaring platforms, their
// time-stamped geodetic positions, and annotated events.
package simdis

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/wroge/wgs84"

	"github.com/jpr86/CHECKMATE-sub000/pkg/geom"
	"github.com/jpr86/CHECKMATE-sub000/pkg/platform"
	"github.com/jpr86/CHECKMATE-sub000/pkg/sim"
)

const (
	metersPerNmi  = 1852.0
	metersPerFoot = 0.3048
)

// Writer projects the world onto an .asi stream. It is both a platform
// observer (position records) and an event sink (annotation records); the
// core never depends on it.
type Writer struct {
	mu    sync.Mutex
	out   *bufio.Writer
	world *platform.World

	// toGeo converts EPSG:3857 back to EPSG:4326.
	toGeo  wgs84.Func
	origX  float64 // origin in 3857 meters
	origY  float64
	scale  float64 // local web-mercator scale factor, 1/cos(lat)
	nextID int
	ids    map[uuid.UUID]int
	last   map[uuid.UUID]geom.Point
	status map[uuid.UUID]platform.Status
}

// NewWriter builds a writer anchored at the scenario origin. Grid
// coordinates are nmi east/north of the origin; altitudes are feet.
func NewWriter(w io.Writer, world *platform.World, latDeg, lonDeg float64) *Writer {
	epsg := wgs84.EPSG()
	toMerc := epsg.Transform(4326, 3857)
	ox, oy, _ := toMerc(lonDeg, latDeg, 0)
	return &Writer{
		out:    bufio.NewWriter(w),
		world:  world,
		toGeo:  epsg.Transform(3857, 4326),
		origX:  ox,
		origY:  oy,
		scale:  1 / math.Cos(latDeg*math.Pi/180),
		nextID: 1,
		ids:    make(map[uuid.UUID]int),
		last:   make(map[uuid.UUID]geom.Point),
		status: make(map[uuid.UUID]platform.Status),
	}
}

// LatLon converts a grid point to geodetic degrees.
func (w *Writer) LatLon(p geom.Point) (latDeg, lonDeg float64) {
	x := w.origX + p.X*metersPerNmi*w.scale
	y := w.origY + p.Y*metersPerNmi*w.scale
	lon, lat, _ := w.toGeo(x, y, 0)
	return lat, lon
}

// Initialize writes the scenario header and declares every platform already
// in the world.
func (w *Writer) Initialize() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "Version\t24\n")
	fmt.Fprintf(w.out, "CoordSystem\t\"LLA\"\n")
	lat, lon := w.LatLon(geom.Point{})
	fmt.Fprintf(w.out, "RefLLA\t%.8f\t%.8f\t0.0\n", lat, lon)
	for _, p := range w.world.All() {
		w.declare(p)
	}
}

// Update records the position of every platform that changed since the last
// call. Platforms created mid-run (missiles) get declared on first sight.
func (w *Writer) Update(t float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.world.All() {
		id, known := w.ids[p.ID]
		if !known {
			id = w.declare(p)
		}
		if known && p.Location == w.last[p.ID] && p.Status == w.status[p.ID] {
			continue
		}
		w.last[p.ID] = p.Location
		w.status[p.ID] = p.Status
		if p.Status != platform.StatusActive {
			continue
		}
		lat, lon := w.LatLon(p.Location)
		fmt.Fprintf(w.out, "PlatformData\t%d\t%.3f\t%.8f\t%.8f\t%.2f\t%.4f\t%.4f\t0.0\n",
			id, t, lat, lon, p.Location.Z*metersPerFoot, p.Heading, p.Elevation)
	}
}

// Emit writes one annotation record.
func (w *Writer) Emit(ev sim.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.ids[ev.Subject]
	fmt.Fprintf(w.out, "Event\t%d\t%.3f\t%q\n", id, ev.Time, eventText(ev))
}

// Flush drains buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Flush()
}

func (w *Writer) declare(p *platform.Platform) int {
	id := w.nextID
	w.nextID++
	w.ids[p.ID] = id
	fmt.Fprintf(w.out, "PlatformID\t%d\n", id)
	fmt.Fprintf(w.out, "PlatformName\t%d\t%q\n", id, p.Name)
	fmt.Fprintf(w.out, "PlatformType\t%d\t%q\n", id, p.Side)
	return id
}

func eventText(ev sim.Event) string {
	if ev.ObjectName != "" {
		return fmt.Sprintf("%s %s -> %s", ev.Type, ev.SubjectName, ev.ObjectName)
	}
	if ev.Message != "" {
		return fmt.Sprintf("%s %s: %s", ev.Type, ev.SubjectName, ev.Message)
	}
	return fmt.Sprintf("%s %s", ev.Type, ev.SubjectName)
}
