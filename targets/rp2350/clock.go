//go:build rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"coilstep/core"
)

// RP2350 timer peripheral memory map. The RP2350 timer lives at a
// different address than the RP2040's (0x40054000):
//
//	timeRawH @ 0x24 - raw read of the upper 32 bits
//	timeRawL @ 0x28 - raw read of the lower 32 bits
const (
	timerBase     = 0x400B0000
	timerTimeRawH = timerBase + 0x24
	timerTimeRawL = timerBase + 0x28
)

var (
	timerRawH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTimeRawH)))
	timerRawL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTimeRawL)))
)

// HardwareClock reads the RP2350's 1MHz hardware timer. The stepping loop
// only needs the low 32 bits; wraparound is handled by unsigned interval
// arithmetic in core.
type HardwareClock struct{}

func (HardwareClock) Micros() uint32 {
	return timerRawL.Get()
}

// Uptime reads the full 64-bit counter, retrying across a low-word
// rollover.
func (HardwareClock) Uptime() uint64 {
	for {
		high1 := timerRawH.Get()
		low := timerRawL.Get()
		high2 := timerRawH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// InitClock registers the hardware timer as the core time source.
// TinyGo's runtime has already started the tick generators by the time
// main runs.
func InitClock() {
	// Discard a few reads so the first real sample is stable.
	_ = timerRawL.Get()
	_ = timerRawL.Get()

	core.SetClock(HardwareClock{})
	core.RegisterConstant("MCU", "rp2350")
	core.RegisterConstant("CLOCK_FREQ", uint32(1000000))
}
