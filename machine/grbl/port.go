package grbl

import (
	"io"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/tarm/serial"
)

// Opener opens a named port.
type Opener interface {
	Open(name string, baud int) (io.ReadWriteCloser, error)
}

// OpenerFunc adapts a func to the Opener interface.
type OpenerFunc func(name string, baud int) (io.ReadWriteCloser, error)

func (fn OpenerFunc) Open(name string, baud int) (io.ReadWriteCloser, error) { return fn(name, baud) }

// SerialOpener opens local serial devices.
type SerialOpener struct{}

func (SerialOpener) Open(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}

// ListPorts returns the serial devices present on this host.
func ListPorts() ([]string, error) {
	var patterns []string
	switch runtime.GOOS {
	case "darwin":
		patterns = []string{"/dev/cu.usbserial*", "/dev/cu.usbmodem*", "/dev/tty.usbserial*", "/dev/tty.usbmodem*"}
	case "windows":
		// tarm/serial accepts COM names but they can not be globbed
		return nil, nil
	default:
		patterns = []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*", "/dev/serial/by-id/*"}
	}

	seen := make(map[string]bool)
	var ports []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			resolved, err := filepath.EvalSymlinks(m)
			if err != nil {
				resolved = m
			}
			if seen[resolved] {
				continue
			}
			seen[resolved] = true
			ports = append(ports, resolved)
		}
	}

	sort.Strings(ports)
	return ports, nil
}
