package workout

import "fmt"

// CadenceBand is a target pedaling-rate range in rpm. Low <= High.
type CadenceBand struct {
	Low  int
	High int
}

func (c *CadenceBand) clone() *CadenceBand {
	if c == nil {
		return nil
	}
	b := *c
	return &b
}

func (c *CadenceBand) suffix() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf(", %dc-%dc", c.Low, c.High)
}

// Treatment is one rendered stage of a workout. The set of implementations
// is closed: FreeRide, SteadyEffort and RampEffort.
type Treatment interface {
	// Duration returns the stage length in whole seconds.
	Duration() int
	// Band returns the cadence band, or nil when none was given.
	Band() *CadenceBand
	String() string
	clone() Treatment
}

// FreeRide is a stage without target power.
//
//	5m@_
type FreeRide struct {
	Seconds int
	Cadence *CadenceBand
}

func (f *FreeRide) Duration() int      { return f.Seconds }
func (f *FreeRide) Band() *CadenceBand { return f.Cadence }
func (f *FreeRide) clone() Treatment {
	return &FreeRide{Seconds: f.Seconds, Cadence: f.Cadence.clone()}
}
func (f *FreeRide) String() string {
	return fmt.Sprintf("free(%ds%s)", f.Seconds, f.Cadence.suffix())
}

// SteadyEffort holds a constant target power.
//
//	1m@150w
type SteadyEffort struct {
	Seconds int
	Watts   int
	Cadence *CadenceBand
}

func (s *SteadyEffort) Duration() int      { return s.Seconds }
func (s *SteadyEffort) Band() *CadenceBand { return s.Cadence }
func (s *SteadyEffort) clone() Treatment {
	return &SteadyEffort{Seconds: s.Seconds, Watts: s.Watts, Cadence: s.Cadence.clone()}
}
func (s *SteadyEffort) String() string {
	return fmt.Sprintf("power(%ds, %dw%s)", s.Seconds, s.Watts, s.Cadence.suffix())
}

// RampEffort changes target power linearly from StartWatts to EndWatts.
// Its direction is decided when rendering.
//
//	10m@200w-250w
type RampEffort struct {
	Seconds    int
	StartWatts int
	EndWatts   int
	Cadence    *CadenceBand
}

func (r *RampEffort) Duration() int      { return r.Seconds }
func (r *RampEffort) Band() *CadenceBand { return r.Cadence }
func (r *RampEffort) clone() Treatment {
	return &RampEffort{Seconds: r.Seconds, StartWatts: r.StartWatts, EndWatts: r.EndWatts, Cadence: r.Cadence.clone()}
}
func (r *RampEffort) String() string {
	return fmt.Sprintf("power(%ds, %dw-%dw%s)", r.Seconds, r.StartWatts, r.EndWatts, r.Cadence.suffix())
}

// Workout is a fully parsed workout: the flattened program and the rider's
// reference power (FTP) in watts. Program entries never alias each other,
// including the copies produced by a repeated group.
type Workout struct {
	Program []Treatment
	FTP     int
}

// TotalSeconds sums the durations of all treatments in playback order.
func (w *Workout) TotalSeconds() int {
	total := 0
	for _, t := range w.Program {
		total += t.Duration()
	}
	return total
}

// Stages returns the debug notation of every treatment.
func (w *Workout) Stages() []string {
	out := make([]string, len(w.Program))
	for i, t := range w.Program {
		out[i] = t.String()
	}
	return out
}
