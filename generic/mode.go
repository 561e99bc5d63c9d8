/*
mode.go - Offline/online mode detection

PURPOSE:
  Decides, per call, whether entity operations route to the local store or
  the remote transport. Two inputs:

  1. An explicit operator-set mode flag ("online"/"offline"), persisted in
     settings and cached in memory here.
  2. A live connectivity signal, maintained by whoever probes the network
     (see transport.Client.Probe).

  Offline iff the flag says offline OR connectivity reports disconnected.

COST:
  IsOffline is called on every single entity operation, so both inputs are
  atomic in-memory reads. No I/O on this path; the settings store is only
  touched when the flag changes.

TESTING:
  Detectors are injected into adapters rather than read from package state,
  so tests exercise both modes deterministically with Fixed(true/false).
*/
package generic

import "sync/atomic"

// Mode is the operator-selected operating mode.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// SettingOperationMode is the settings key the mode flag persists under.
const SettingOperationMode = "operationMode"

// Detector reports the current effective mode. Implementations must be
// cheap enough to consult on every entity operation.
type Detector interface {
	IsOffline() bool
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func() bool

func (f DetectorFunc) IsOffline() bool { return f() }

// Fixed returns a detector pinned to one mode. For tests.
func Fixed(offline bool) Detector {
	return DetectorFunc(func() bool { return offline })
}

// =============================================================================
// FLAG - Cached operator mode setting
// =============================================================================

// Flag holds the operator-set mode in memory. Load it once from settings at
// startup; Set persists nothing (the caller owning the settings store does).
type Flag struct {
	v atomic.Value // Mode
}

func NewFlag(initial Mode) *Flag {
	f := &Flag{}
	f.Set(initial)
	return f
}

func (f *Flag) Set(m Mode) {
	if m != ModeOffline {
		m = ModeOnline
	}
	f.v.Store(m)
}

func (f *Flag) Mode() Mode {
	m, _ := f.v.Load().(Mode)
	if m == "" {
		return ModeOnline
	}
	return m
}

// =============================================================================
// SIGNAL - Live connectivity state
// =============================================================================

// Signal is the live network-connectivity boolean, written by a background
// prober and read on every operation.
type Signal struct {
	disconnected atomic.Bool
}

// NewSignal starts connected; a prober flips it as reachability changes.
func NewSignal() *Signal {
	return &Signal{}
}

func (s *Signal) SetConnected(up bool) {
	s.disconnected.Store(!up)
}

func (s *Signal) Connected() bool {
	return !s.disconnected.Load()
}

// =============================================================================
// MODE DETECTOR - Flag + signal combined
// =============================================================================

// ModeDetector combines the persisted operator flag with the live
// connectivity signal.
type ModeDetector struct {
	Flag   *Flag
	Signal *Signal
}

func NewModeDetector(flag *Flag, signal *Signal) *ModeDetector {
	return &ModeDetector{Flag: flag, Signal: signal}
}

// IsOffline reports offline when the operator flag says so or the network
// signal reports disconnected. No side effects, no I/O.
func (d *ModeDetector) IsOffline() bool {
	return d.Flag.Mode() == ModeOffline || !d.Signal.Connected()
}
