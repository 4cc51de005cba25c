//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"coilstep/core"
)

// RP2040 TIMER peripheral; timeRawL at 0x28 is the unlatched low word of
// the 1MHz counter.
const (
	timerBase     = 0x40054000
	timerTimeRawL = timerBase + 0x28
)

var timerRawL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTimeRawL)))

// HardwareClock reads the RP2040 hardware timer.
type HardwareClock struct{}

func (HardwareClock) Micros() uint32 {
	return timerRawL.Get()
}

// InitClock registers the hardware timer as the core time source.
func InitClock() {
	_ = timerRawL.Get()
	_ = timerRawL.Get()

	core.SetClock(HardwareClock{})
	core.RegisterConstant("MCU", "rp2040")
	core.RegisterConstant("CLOCK_FREQ", uint32(1000000))
}
