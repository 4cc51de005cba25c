//go:build linux

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"coilstep/core"
)

const (
	gpioBaseDir    = "/sys/class/gpio/"
	gpioExportFile = gpioBaseDir + "export"
)

// SysfsGPIO implements core.GPIODriver through the Linux sysfs GPIO
// interface. Each configured pin keeps its value file open so SetPin is a
// single pwrite.
type SysfsGPIO struct {
	pins map[core.GPIOPin]*sysfsPin
}

type sysfsPin struct {
	value *os.File
	buf   []byte
}

func NewSysfsGPIO() *SysfsGPIO {
	return &SysfsGPIO{pins: make(map[core.GPIOPin]*sysfsPin)}
}

func (g *SysfsGPIO) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := g.pins[pin]; exists {
		return nil
	}

	if err := exportPin(pin); err != nil {
		return err
	}
	if err := writeSysfs(fmt.Sprintf("%sgpio%d/direction", gpioBaseDir, pin), "out"); err != nil {
		return err
	}

	value, err := os.OpenFile(fmt.Sprintf("%sgpio%d/value", gpioBaseDir, pin), os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	g.pins[pin] = &sysfsPin{value: value, buf: make([]byte, 1)}
	return nil
}

func (g *SysfsGPIO) SetPin(pin core.GPIOPin, value bool) error {
	p, exists := g.pins[pin]
	if !exists {
		return fmt.Errorf("gpio%d: not configured", pin)
	}
	p.buf[0] = '0'
	if value {
		p.buf[0] = '1'
	}
	_, err := p.value.WriteAt(p.buf, 0)
	return err
}

func (g *SysfsGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	p, exists := g.pins[pin]
	if !exists {
		return false, fmt.Errorf("gpio%d: not configured", pin)
	}
	if _, err := p.value.ReadAt(p.buf, 0); err != nil {
		return false, err
	}
	return p.buf[0] == '1', nil
}

// Close releases every claimed pin.
func (g *SysfsGPIO) Close() {
	for pin, p := range g.pins {
		p.value.Close()
		delete(g.pins, pin)
	}
}

func exportPin(pin core.GPIOPin) error {
	// Already exported?
	val := fmt.Sprintf("%sgpio%d/value", gpioBaseDir, pin)
	if err := unix.Access(val, unix.W_OK|unix.R_OK); err == nil {
		return nil
	}
	return writeSysfs(gpioExportFile, fmt.Sprintf("%d", pin))
}

func writeSysfs(fname, s string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(s))
	return err
}
