package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"spp-print/internal/job"
	"spp-print/internal/platform"
)

// Values describes the possible configuration values that a user can
// modify and supply to the application.
type Values struct {
	Adapter           string        `koanf:"adapter"`
	Transport         string        `koanf:"transport"`
	Channel           int           `koanf:"channel"`
	SerialPort        string        `koanf:"serial-port"`
	BaudRate          int           `koanf:"baud-rate"`
	BLEService        string        `koanf:"ble-service"`
	BLECharacteristic string        `koanf:"ble-characteristic"`
	BLEChunkSize      int           `koanf:"ble-chunk-size"`
	Charset           string        `koanf:"charset"`
	Columns           int           `koanf:"columns"`
	Format            string        `koanf:"format"`
	LabelSize         string        `koanf:"label-size"`
	Density           int           `koanf:"density"`
	FontSize          float64       `koanf:"font-size"`
	SettingsDir       string        `koanf:"settings-dir"`
	LogLevel          string        `koanf:"log-level"`
	EnableTimeout     time.Duration `koanf:"enable-timeout"`
	ConnectTimeout    time.Duration `koanf:"connect-timeout"`
}

// DefaultValues returns the values used for keys absent from every source.
func DefaultValues() Values {
	p := platform.DefaultOptions()

	return Values{
		Transport:         p.Transport,
		Channel:           p.Channel,
		BaudRate:          p.BaudRate,
		BLEService:        p.BLEService,
		BLECharacteristic: p.BLECharacteristic,
		BLEChunkSize:      p.BLEChunkSize,
		Format:            job.FormatText,
		LabelSize:         "40x30mm",
		Density:           8,
		FontSize:          10,
		LogLevel:          logrus.InfoLevel.String(),
		EnableTimeout:     p.EnableTimeout,
		ConnectTimeout:    p.ConnectTimeout,
	}
}

// ValidateValues validates the configuration values.
func (c *Config) ValidateValues() error {
	return c.Values.validateValues()
}

func (v *Values) validateValues() error {
	for _, validate := range []func() error{
		v.validateTransport,
		v.validateRanges,
		v.validateJob,
		v.validateLogLevel,
	} {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

func (v *Values) validateTransport() error {
	v.Transport = strings.ToLower(strings.TrimSpace(v.Transport))
	if v.Transport == "" {
		v.Transport = platform.TransportAuto
	}

	if !slices.Contains(platform.Transports, v.Transport) {
		return fmt.Errorf("%s: the transport must be one of %s", v.Transport, strings.Join(platform.Transports, ", "))
	}

	return nil
}

func (v *Values) validateRanges() error {
	switch {
	case v.Channel < 1 || v.Channel > 30:
		return fmt.Errorf("%d: the RFCOMM channel must be between 1 and 30", v.Channel)

	case v.BaudRate <= 0:
		return fmt.Errorf("%d: the baud rate must be positive", v.BaudRate)

	case v.BLEChunkSize < 1 || v.BLEChunkSize > 512:
		return fmt.Errorf("%d: the BLE chunk size must be between 1 and 512", v.BLEChunkSize)

	case v.Columns < 0:
		return fmt.Errorf("%d: the column count cannot be negative", v.Columns)

	case v.Density < 0 || v.Density > 15:
		return fmt.Errorf("%d: the density must be between 0 and 15", v.Density)

	case v.EnableTimeout < 0 || v.ConnectTimeout < 0:
		return fmt.Errorf("timeouts cannot be negative")
	}

	return nil
}

func (v *Values) validateJob() error {
	_, err := job.New(v.JobOptions())
	return err
}

func (v *Values) validateLogLevel() error {
	if _, err := logrus.ParseLevel(v.LogLevel); err != nil {
		return fmt.Errorf("%s: the log level is invalid", v.LogLevel)
	}

	return nil
}

// Level returns the parsed log level, Info if it cannot be parsed.
func (v *Values) Level() logrus.Level {
	level, err := logrus.ParseLevel(v.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}

	return level
}

// PlatformOptions returns the options for platform.New.
func (v *Values) PlatformOptions() platform.Options {
	return platform.Options{
		Adapter:           v.Adapter,
		Transport:         v.Transport,
		Channel:           v.Channel,
		SerialPort:        v.SerialPort,
		BaudRate:          v.BaudRate,
		BLEService:        v.BLEService,
		BLECharacteristic: v.BLECharacteristic,
		BLEChunkSize:      v.BLEChunkSize,
		EnableTimeout:     v.EnableTimeout,
		ConnectTimeout:    v.ConnectTimeout,
	}
}

// JobOptions returns the options for job.New.
func (v *Values) JobOptions() job.Options {
	return job.Options{
		Format:    v.Format,
		Charset:   v.Charset,
		Columns:   v.Columns,
		LabelSize: v.LabelSize,
		Density:   v.Density,
		FontSize:  v.FontSize,
	}
}
