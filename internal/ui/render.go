package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/large-farva/groundwatch/internal/predict"
	"github.com/large-farva/groundwatch/internal/satnogs"
	"github.com/large-farva/groundwatch/internal/telemetry"
	"github.com/large-farva/groundwatch/internal/waterfall"
)

const (
	minWidth  = 40
	minHeight = 10

	leftWidth   = 34
	logRows     = 9
	spectrumH   = 8
	futureJobs  = 5
	labelColumn = 9
)

var (
	plain       = style{}
	borderStyle = style{fg: colDarkCyan}
	titleStyle  = style{fg: colYellow}
	labelStyle  = style{fg: colCyan}
	dimStyle    = style{fg: colDarkGray}
)

// draw lays out one frame: the station tabs and clock on top, the station
// panel on the left, map and polar plot on the right with the spectrum and
// waterfall below them, and the log pane along the bottom.
func (d *Dashboard) draw(c *canvas, now time.Time) {
	if c.w < minWidth || c.h < minHeight {
		msg := "terminal too small"
		c.text(max((c.w-len(msg))/2, 0), c.h/2, c.w, msg, style{fg: colRed})
		return
	}

	d.drawHeader(c, now)

	body := rect{0, 1, c.w, c.h - 1}
	if d.ui.ShowLogs && body.h > logRows+1+minHeight/2 {
		logs := rect{0, c.h - logRows - 1, c.w, logRows + 1}
		body.h -= logs.h
		d.drawLogs(c, logs)
	}

	left := rect{body.x, body.y, min(leftWidth, body.w), body.h}
	right := rect{left.x + left.w, body.y, body.w - left.w, body.h}
	if right.w < 20 {
		left.w, right = body.w, rect{}
	}
	d.drawStation(c, left, now)
	if right.empty() {
		return
	}

	plots := d.waterfall.Active() && (d.ui.Spectrum || d.ui.Waterfall)
	if plots {
		top := rect{right.x, right.y, right.w, right.h / 2}
		d.drawGeometry(c, top)
		d.drawSignal(c, rect{right.x, top.y + top.h, right.w, right.h - top.h})
		return
	}
	d.drawGeometry(c, right)
}

func (d *Dashboard) drawHeader(c *canvas, now time.Time) {
	clock := now.UTC().Format("2006-01-02 15:04:05 UTC")
	limit := c.w - len(clock) - 1

	x := 0
	for _, st := range d.state.Stations() {
		name := st.Name()
		if name == "" {
			name = "?"
		}
		label := fmt.Sprintf(" %d %s ", st.ID(), name)
		if st.Stale {
			label = fmt.Sprintf(" %d %s! ", st.ID(), name)
		}
		s := style{fg: statusColor(st.Info.Status)}
		if st.ID() == d.state.Active {
			s.bold = true
			s.bg = colTabBG
		}
		x = c.text(x, 0, limit, label, s)
		x = c.text(x, 0, limit, "│", borderStyle)
	}
	c.text(c.w-len(clock), 0, c.w, clock, style{fg: colWhite})
}

func statusColor(s satnogs.Status) color {
	switch s {
	case satnogs.StatusOnline:
		return colGreen
	case satnogs.StatusTesting:
		return colYellow
	case satnogs.StatusOffline:
		return colRed
	}
	return colGray
}

// panelWriter appends label/value lines to a rect, dropping what does not
// fit.
type panelWriter struct {
	c *canvas
	r rect
	y int
}

func (p *panelWriter) full() bool { return p.y >= p.r.h }

func (p *panelWriter) heading(s string) {
	if p.y > 0 {
		p.y++
	}
	p.line(s, titleStyle)
}

func (p *panelWriter) line(s string, st style) {
	if p.full() {
		return
	}
	p.c.text(p.r.x, p.r.y+p.y, p.r.x+p.r.w, s, st)
	p.y++
}

func (p *panelWriter) kv(label, value string, st style) {
	if p.full() {
		return
	}
	x := p.c.text(p.r.x, p.r.y+p.y, p.r.x+p.r.w, label, labelStyle)
	x = max(x+1, p.r.x+labelColumn)
	p.c.text(x, p.r.y+p.y, p.r.x+p.r.w, value, st)
	p.y++
}

func (d *Dashboard) drawStation(c *canvas, r rect, now time.Time) {
	st := d.state.ActiveStation()
	title := "Station"
	if st != nil {
		title = fmt.Sprintf("Station %d", st.ID())
	}
	c.box(r, title, borderStyle, titleStyle)
	p := &panelWriter{c: c, r: r.inner()}
	if st == nil {
		p.line("no station", dimStyle)
		return
	}

	name := st.Name()
	if name == "" {
		name = "(loading)"
	}
	p.line(name, style{bold: true})
	status := string(st.Info.Status)
	if status == "" {
		status = "unknown"
	}
	p.kv("Status", status, style{fg: statusColor(st.Info.Status)})
	switch {
	case st.Stale:
		p.kv("Network", "unreachable", style{fg: colRed})
	case !st.LastFetch.IsZero():
		p.kv("Updated", st.LastFetch.UTC().Format("15:04:05"), plain)
	}
	p.kv("QTH", fmt.Sprintf("%.3f %.3f %.0fm", st.Info.Lat, st.Info.Lng, st.Info.Altitude), plain)

	if si := st.SysInfo; si != nil {
		p.heading("System")
		if avg, ok := si.LoadAverage(); ok {
			cpu := fmt.Sprintf("%.1f%%", avg)
			if si.CPUTemp != nil {
				cpu += fmt.Sprintf(" %.1f°C", *si.CPUTemp)
			}
			p.kv("CPU", cpu, plain)
		}
		if si.LoadAvg != nil {
			p.kv("Load", fmt.Sprintf("%.2f %.2f %.2f", si.LoadAvg[0], si.LoadAvg[1], si.LoadAvg[2]), plain)
		}
		if pct, ok := si.MemUsedPercent(); ok {
			p.kv("Memory", fmt.Sprintf("%.1f%%", pct), plain)
		}
		if si.Uptime != nil {
			p.kv("Uptime", humanDuration(*si.Uptime), plain)
		}
	}

	if rot := d.state.Rotator; rot != nil {
		p.heading("Rotator")
		p.kv("Az/El", fmt.Sprintf("%.1f° %.1f°", rot.Azimuth, rot.Elevation), plain)
		if dAz, dEl, ok := d.state.PointingError(); ok {
			es := plain
			if math.Abs(dAz) > 5 || math.Abs(dEl) > 5 {
				es = style{fg: colYellow}
			}
			p.kv("Error", fmt.Sprintf("%+.1f° %+.1f°", dAz, dEl), es)
		}
	}

	job := st.LeadJob()
	if job == nil {
		p.heading("Next job")
		p.line("no jobs queued", dimStyle)
		return
	}
	if job.Active(now) {
		p.heading("Active job")
	} else {
		p.heading("Next job")
	}
	p.line(fmt.Sprintf("#%d %s", job.ID(), job.VesselName()), style{bold: true})
	if job.Active(now) {
		p.kv("Ends", "in "+humanDuration(job.End().Sub(now)), style{fg: colGreen})
	} else {
		p.kv("Starts", "in "+humanDuration(job.Start().Sub(now)), plain)
	}
	p.kv("Window", job.Start().UTC().Format("15:04")+"-"+job.End().UTC().Format("15:04"), plain)
	freq := fmt.Sprintf("%.3f MHz", job.FrequencyMHz())
	if job.Mode() != "" {
		freq += " " + job.Mode()
	}
	p.kv("Freq", freq, plain)
	if job.Pass != nil {
		p.kv("Max el", fmt.Sprintf("%.1f°", job.Pass.MaxElev), plain)
	}

	if v := job.Vessel; v != nil {
		pos := v.Position
		p.heading("Satellite")
		p.kv("Lat/Lon", fmt.Sprintf("%.2f %.2f", pos.Lat, pos.Lon), plain)
		p.kv("Alt", fmt.Sprintf("%.0f km", pos.AltKm), plain)
		p.kv("Vel", fmt.Sprintf("%.2f km/s", pos.Velocity), plain)
		p.kv("Az/El", fmt.Sprintf("%.1f° %.1f°", pos.Azimuth, pos.Elevation), plain)
		p.kv("Range", fmt.Sprintf("%.0f km", pos.RangeKm), plain)
		p.kv("Orbit", fmt.Sprintf("%d", pos.Orbit), plain)
	}

	if len(st.Jobs) > 1 {
		p.heading("Upcoming")
		for _, j := range st.Jobs[1:min(len(st.Jobs), futureJobs+1)] {
			p.line(j.Start().UTC().Format("15:04")+" "+j.VesselName(), plain)
		}
	}
}

// humanDuration renders d compactly, e.g. "2d 3h", "4m 05s".
func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	h := (d % (24 * time.Hour)) / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, h)
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// drawGeometry places the map and, when there is room, the polar plot to its
// right.
func (d *Dashboard) drawGeometry(c *canvas, r rect) {
	polarW := min(r.w/3, 2*r.h+2)
	if polarW < 16 {
		polarW = 0
	}
	d.drawMap(c, rect{r.x, r.y, r.w - polarW, r.h})
	if polarW > 0 {
		d.drawPolar(c, rect{r.x + r.w - polarW, r.y, polarW, r.h})
	}
}

func (d *Dashboard) drawMap(c *canvas, r rect) {
	c.box(r, "Map", borderStyle, titleStyle)
	in := r.inner()
	if in.empty() {
		return
	}
	project := func(p predict.Point) (int, int) {
		x := in.x + int(math.Round((p.Lon+180)/360*float64(in.w-1)))
		y := in.y + int(math.Round((90-p.Lat)/180*float64(in.h-1)))
		return x, y
	}

	for lon := -180.0; lon <= 180; lon += 30 {
		for lat := -90.0; lat <= 90; lat += 180 / float64(max(in.h, 1)) {
			x, y := project(predict.Point{Lon: lon, Lat: lat})
			c.set(x, y, '·', dimStyle)
		}
	}
	for lat := -60.0; lat <= 60; lat += 30 {
		ch := '·'
		if lat == 0 {
			ch = '-'
		}
		for x := in.x; x < in.x+in.w; x++ {
			_, y := project(predict.Point{Lat: lat})
			c.set(x, y, ch, dimStyle)
		}
	}

	for _, st := range d.state.Stations() {
		x, y := project(predict.Point{Lon: st.Info.Lng, Lat: st.Info.Lat})
		c.set(x, y, 'x', style{fg: colGray})
	}

	for _, v := range d.state.Vessels {
		x, y := project(predict.Point{Lon: v.Position.Lon, Lat: v.Position.Lat})
		c.set(x, y, '*', style{fg: colMagenta})
	}

	if v := d.state.LeadVessel(); v != nil {
		for _, p := range v.Footprint {
			x, y := project(p)
			c.set(x, y, '.', style{fg: colGreen})
		}

		// The first orbit of the track is the one being flown; later ones
		// are drawn fainter.
		split := v.TrackSplit(d.now())
		orbitLen := len(v.GroundTrack) / max(d.ui.Orbits, 1)
		for i, p := range v.GroundTrack {
			x, y := project(p.Point)
			switch {
			case i < split:
				c.set(x, y, '·', style{fg: colGray})
			case i < orbitLen:
				c.set(x, y, '•', style{fg: colYellow})
			default:
				c.set(x, y, '∙', style{fg: colGray})
			}
		}
	}

	if st := d.state.ActiveStation(); st != nil {
		x, y := project(predict.Point{Lon: st.Info.Lng, Lat: st.Info.Lat})
		c.set(x, y, 'X', style{fg: colRed, bold: true})
	}
	if v := d.state.LeadVessel(); v != nil {
		x, y := project(predict.Point{Lon: v.Position.Lon, Lat: v.Position.Lat})
		c.set(x, y, '@', style{fg: colYellow, bold: true})
	}
}

// drawPolar plots the pass in azimuth/elevation: north up, the horizon as
// the outer ring, zenith in the center. Cells are about twice as tall as
// wide, so x is stretched.
func (d *Dashboard) drawPolar(c *canvas, r rect) {
	c.box(r, "Pass", borderStyle, titleStyle)
	in := r.inner()
	if in.w < 5 || in.h < 3 {
		return
	}
	cx, cy := in.x+in.w/2, in.y+in.h/2
	radius := min(float64(in.w-1)/4, float64(in.h-1)/2)
	project := func(az, el float64) (int, int) {
		rr := (90 - el) / 90 * radius
		rad := az * math.Pi / 180
		return cx + int(math.Round(2*rr*math.Sin(rad))), cy - int(math.Round(rr*math.Cos(rad)))
	}

	for _, el := range []float64{0, 30, 60} {
		for az := 0.0; az < 360; az += 3 {
			x, y := project(az, el)
			c.set(x, y, '·', dimStyle)
		}
	}
	for _, l := range []struct {
		az float64
		ch rune
	}{{0, 'N'}, {90, 'E'}, {180, 'S'}, {270, 'W'}} {
		x, y := project(l.az, 0)
		c.set(x, y, l.ch, labelStyle)
	}

	if v := d.state.LeadVessel(); v != nil {
		for _, p := range v.PolarTrack {
			if p.Elevation < 0 {
				continue
			}
			x, y := project(p.Azimuth, p.Elevation)
			c.set(x, y, '•', style{fg: colCyan})
		}
		if v.Position.Elevation >= 0 {
			x, y := project(v.Position.Azimuth, v.Position.Elevation)
			c.set(x, y, '@', style{fg: colYellow, bold: true})
		}
	}
	if rot := d.state.Rotator; rot != nil {
		x, y := project(rot.Azimuth, max(rot.Elevation, 0))
		c.set(x, y, '+', style{fg: colMagenta, bold: true})
	}
}

// zoomWindow is the centered range of bins visible at zoom.
func zoomWindow(n int, zoom float64) (lo, hi int) {
	visible := max(1, int(float64(n)/max(zoom, 1)))
	visible = min(visible, n)
	lo = (n - visible) / 2
	return lo, lo + visible
}

// pooled returns the strongest bin of each of width equal slices of
// power[lo:hi].
func pooled(power []float32, lo, hi, width int) []float32 {
	out := make([]float32, width)
	span := hi - lo
	for x := range out {
		b0 := lo + x*span/width
		b1 := lo + (x+1)*span/width
		if b1 <= b0 {
			b1 = b0 + 1
		}
		b1 = min(b1, len(power))
		if b0 >= b1 {
			out[x] = float32(math.Inf(-1))
			continue
		}
		m := power[b0]
		for _, p := range power[b0+1 : b1] {
			m = max(m, p)
		}
		out[x] = m
	}
	return out
}

var eighths = []rune(" ▁▂▃▄▅▆▇█")

func (d *Dashboard) drawSignal(c *canvas, r rect) {
	wf := d.waterfall
	lo, hi := zoomWindow(len(wf.Frequencies), d.ui.WaterfallZoom)
	span := ""
	if hi > lo {
		span = fmt.Sprintf(" %+.1f..%+.1f kHz", wf.Frequencies[lo]/1e3, wf.Frequencies[hi-1]/1e3)
	}
	title := fmt.Sprintf("#%d %.3f MHz%s x%.0f", wf.ObservationID, d.centerFreq/1e6, span, d.ui.WaterfallZoom)

	spec := rect{}
	fall := r
	if d.ui.Spectrum {
		spec = rect{r.x, r.y, r.w, min(spectrumH, r.h)}
		if !d.ui.Waterfall {
			spec.h = r.h
		}
		fall = rect{r.x, r.y + spec.h, r.w, r.h - spec.h}
	}
	if !d.ui.Waterfall {
		fall = rect{}
	}

	if !spec.empty() {
		c.box(spec, "Spectrum "+title, borderStyle, titleStyle)
		if rec, ok := wf.Latest(); ok {
			d.drawSpectrum(c, spec.inner(), rec, lo, hi)
		}
	}
	if !fall.empty() {
		t := "Waterfall"
		if spec.empty() {
			t += " " + title
		}
		c.box(fall, t, borderStyle, titleStyle)
		d.drawWaterfall(c, fall.inner(), lo, hi)
	}
}

func (d *Dashboard) drawSpectrum(c *canvas, r rect, rec waterfall.Record, lo, hi int) {
	if r.empty() {
		return
	}
	cols := pooled(rec.Power, lo, hi, r.w)
	for x, db := range cols {
		t := normalizeDB(db, d.ui.DBMin, d.ui.DBMax)
		t = min(max(t, 0), 1)
		height := t * float64(r.h)
		full := int(height)
		frac := int((height - float64(full)) * 8)
		st := style{fg: viridis(t)}
		for i := 0; i < full; i++ {
			c.set(r.x+x, r.y+r.h-1-i, '█', st)
		}
		if full < r.h && frac > 0 {
			c.set(r.x+x, r.y+r.h-1-full, eighths[frac], st)
		}
	}
}

// drawWaterfall packs two rows into each cell: the upper half block takes
// the newer row as foreground and the older one as background.
func (d *Dashboard) drawWaterfall(c *canvas, r rect, lo, hi int) {
	if r.empty() {
		return
	}
	rows := d.waterfall.Rows(2 * r.h)
	for y := 0; y < r.h && 2*y < len(rows); y++ {
		top := pooled(rows[2*y].Power, lo, hi, r.w)
		var bottom []float32
		if 2*y+1 < len(rows) {
			bottom = pooled(rows[2*y+1].Power, lo, hi, r.w)
		}
		for x := range top {
			st := style{fg: viridis(normalizeDB(top[x], d.ui.DBMin, d.ui.DBMax))}
			if bottom != nil {
				st.bg = viridis(normalizeDB(bottom[x], d.ui.DBMin, d.ui.DBMax))
			}
			c.set(r.x+x, r.y+y, '▀', st)
		}
	}
}

func (d *Dashboard) drawLogs(c *canvas, r rect) {
	for x := r.x; x < r.x+r.w; x++ {
		c.set(x, r.y, '─', borderStyle)
	}
	c.text(r.x+1, r.y, r.x+r.w, " Log ", titleStyle)
	in := rect{r.x + 1, r.y + 1, r.w - 2, r.h - 1}

	logs := d.logs[max(len(d.logs)-in.h, 0):]
	for i, l := range logs {
		y := in.y + i
		level := telemetry.NewLogLine(l).Level
		x := c.text(in.x, y, in.x+in.w, l.Time.UTC().Format("15:04:05")+" ", plain)
		x = c.text(x, y, in.x+in.w, fmt.Sprintf("%-6s", strings.ToUpper(level)), levelStyle(level))
		c.text(x, y, in.x+in.w, strings.ReplaceAll(l.Message, "\n", " "), plain)
	}
}

func levelStyle(level string) style {
	switch level {
	case "error":
		return style{fg: colRed}
	case "warn":
		return style{fg: colYellow}
	}
	return plain
}
