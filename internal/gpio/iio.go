package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// IIORoot is where the kernel exposes industrial I/O devices.
const IIORoot = "/sys/bus/iio/devices"

// IIOPath returns the raw-sample file of an ADC channel under root.
func IIOPath(root string, device, channel int) string {
	return filepath.Join(root, fmt.Sprintf("iio:device%d", device), fmt.Sprintf("in_voltage%d_raw", channel))
}

// IIOLine reads an ADC channel from IIO sysfs. Samples outside
// [0, 2^bits-1] are clamped; failed reads repeat the last good sample.
type IIOLine struct {
	path    string
	max     uint16
	last    uint16
	failing bool
}

// NewIIOLine opens the raw-sample file at path and takes one reading to
// prove it is usable.
func NewIIOLine(path string, bits uint8) (*IIOLine, error) {
	if bits == 0 || bits > 16 {
		bits = 16
	}
	l := &IIOLine{
		path: path,
		max:  uint16((uint32(1) << bits) - 1),
	}
	v, err := l.sample()
	if err != nil {
		return nil, fmt.Errorf("open adc channel: %w", err)
	}
	l.last = v
	return l, nil
}

func (l *IIOLine) sample() (uint16, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", l.path, err)
	}
	if n < 0 {
		return 0, nil
	}
	if n > int64(l.max) {
		return l.max, nil
	}
	return uint16(n), nil
}

// Read returns the current sample.
func (l *IIOLine) Read() uint16 {
	v, err := l.sample()
	if err != nil {
		if !l.failing {
			log.Warn().Err(err).Str("path", l.path).Msg("adc read failed, holding last sample")
			l.failing = true
		}
		return l.last
	}
	if l.failing {
		log.Info().Str("path", l.path).Msg("adc read recovered")
		l.failing = false
	}
	l.last = v
	return v
}
