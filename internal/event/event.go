// Package event defines the typed events that flow from every producer
// (keyboard, clock, resize signal, network worker, rotator, sys-info
// sampler, waterfall watcher) into the single dashboard loop, and the bounded
// bus that carries them.
package event

import (
	"log/slog"
	"time"

	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/sysinfo"
)

// Event is the closed set of messages the dashboard loop understands. Only
// types declared in this package implement it.
type Event interface {
	event()
}

// KeyCode identifies a decoded key press.
type KeyCode int

const (
	KeyUnknown KeyCode = iota
	KeyRune            // printable character, see Key.Rune
	KeyTab
	KeyBackTab
	KeyEnter
	KeyEscape
	KeyCtrlC
)

// Key is a single decoded key press.
type Key struct {
	Code KeyCode
	Rune rune
}

// String renders the key for debug logging.
func (k Key) String() string {
	switch k.Code {
	case KeyRune:
		return string(k.Rune)
	case KeyTab:
		return "Tab"
	case KeyBackTab:
		return "BackTab"
	case KeyEnter:
		return "Enter"
	case KeyEscape:
		return "Esc"
	case KeyCtrlC:
		return "Ctrl-C"
	default:
		return "Unknown"
	}
}

// Input carries one key press from the terminal reader.
type Input struct {
	Key Key
}

// Resize reports that the terminal geometry changed.
type Resize struct{}

// Tick is sent once per second by the clock producer.
type Tick struct{}

// Log carries one log record into the dashboard's log pane.
type Log struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// Shutdown asks the dashboard loop to exit after the current render.
type Shutdown struct{}

// Data is the payload of a CommandResponse.
type Data interface {
	data()
}

// Jobs is the freshly fetched job schedule for one station.
type Jobs struct {
	StationID uint64
	Pairs     []satnogs.JobObservation
}

// StationInfo is a refreshed station record.
type StationInfo struct {
	StationID uint64
	Info      satnogs.Station
}

// Failure reports that a network command could not be served.
type Failure struct {
	StationID uint64
	Command   string
	Err       error
}

func (Jobs) data()        {}
func (StationInfo) data() {}
func (Failure) data()     {}

// CommandResponse wraps a result produced by the network worker.
type CommandResponse struct {
	Data Data
}

// SystemInfo carries a host telemetry sample for the local stations.
type SystemInfo struct {
	StationIDs []uint64
	Info       sysinfo.Snapshot
}

// RotatorPosition is the latest azimuth/elevation reported by rotctld.
type RotatorPosition struct {
	Azimuth   float64
	Elevation float64
}

// WaterfallCreated opens a new waterfall session. Frequencies holds the
// offset of every FFT bin from the center frequency, in hertz.
type WaterfallCreated struct {
	ObservationID   uint64
	CenterFrequency float32
	Frequencies     []float32
}

// WaterfallData is one spectrum row.
type WaterfallData struct {
	Timestamp int64
	Power     []float32
}

// WaterfallClosed ends the session for the given observation.
type WaterfallClosed struct {
	ObservationID uint64
}

func (Input) event()            {}
func (Resize) event()           {}
func (Tick) event()             {}
func (Log) event()              {}
func (Shutdown) event()         {}
func (CommandResponse) event()  {}
func (SystemInfo) event()       {}
func (RotatorPosition) event()  {}
func (WaterfallCreated) event() {}
func (WaterfallData) event()    {}
func (WaterfallClosed) event()  {}

// Name returns a short, stable identifier for ev, used as a metrics label
// and as the "type" field of mirrored events.
func Name(ev Event) string {
	switch e := ev.(type) {
	case Input:
		return "input"
	case Resize:
		return "resize"
	case Tick:
		return "tick"
	case Log:
		return "log"
	case Shutdown:
		return "shutdown"
	case CommandResponse:
		switch e.Data.(type) {
		case Jobs:
			return "jobs"
		case StationInfo:
			return "station_info"
		case Failure:
			return "failure"
		}
		return "command_response"
	case SystemInfo:
		return "system_info"
	case RotatorPosition:
		return "rotator_position"
	case WaterfallCreated:
		return "waterfall_created"
	case WaterfallData:
		return "waterfall_data"
	case WaterfallClosed:
		return "waterfall_closed"
	default:
		return "unknown"
	}
}
