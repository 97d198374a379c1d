//go:build linux

package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"spp-print/internal/printer"
)

var (
	ErrPrivilegeRequired = errors.New("rfcomm needs pkexec or sudo")
	ErrRFCOMMMissing     = errors.New("rfcomm not found - install with: sudo apt install bluez")
	ErrRFCOMMExited      = errors.New("rfcomm exited before the device appeared")
)

const maxRFCOMMDevices = 10

// ttyOpener binds the printer to /dev/rfcommN with the rfcomm tool and then
// talks to the tty as a serial port.
type ttyOpener struct {
	opts Options
	log  logrus.FieldLogger
}

func newTTYOpener(opts Options, log logrus.FieldLogger) (printer.ChannelOpener, error) {
	if opts.Channel < 1 || opts.Channel > 30 {
		return nil, fmt.Errorf("rfcomm channel %d out of range 1-30", opts.Channel)
	}

	return &ttyOpener{opts: opts, log: log}, nil
}

func (o *ttyOpener) OpenChannel(address string, _ uuid.UUID) (printer.Channel, error) {
	if _, err := parseMAC(address); err != nil {
		return nil, err
	}

	link, err := o.bind(address)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(link.devPath, serialMode(o.opts.BaudRate))
	if err != nil {
		link.release()
		return nil, fmt.Errorf("failed to open port %s: %w", link.devPath, err)
	}

	return &ttyChannel{Port: port, link: link}, nil
}

// rfcommLink is a running "rfcomm connect" process and the tty it created.
// exited is closed once the process has been waited for; stderr is complete
// from then on.
type rfcommLink struct {
	devPath string
	helper  string
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	once    sync.Once

	exited chan struct{}
	stderr strings.Builder
}

func (o *ttyOpener) bind(address string) (*rfcommLink, error) {
	if _, err := exec.LookPath("rfcomm"); err != nil {
		return nil, ErrRFCOMMMissing
	}

	helper := privilegeHelper()
	if helper == "" {
		return nil, ErrPrivilegeRequired
	}

	devPath, devNum, err := freeRFCOMMDevice()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{"rfcomm", "connect", strconv.Itoa(devNum), address, strconv.Itoa(o.opts.Channel)}
	if helper == "sudo" {
		args = append([]string{"-n"}, args...)
	}

	cmd := exec.CommandContext(ctx, helper, args...)
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start rfcomm: %w", err)
	}

	link := &rfcommLink{devPath: devPath, helper: helper, cmd: cmd, cancel: cancel, exited: make(chan struct{})}
	go func() {
		o.relay(stderr, address, &link.stderr)
		cmd.Wait()
		close(link.exited)
	}()

	err = waitForNode(devPath, link.exited, o.opts.ConnectTimeout)
	if errors.Is(err, ErrRFCOMMExited) {
		link.release()
		if out := strings.TrimSpace(link.stderr.String()); out != "" {
			return nil, fmt.Errorf("%w: %s", err, out)
		}
		return nil, err
	}
	if err != nil {
		link.release()
		return nil, err
	}

	// The node shows up slightly before the link accepts data.
	time.Sleep(500 * time.Millisecond)
	o.log.WithField("address", address).WithField("device", devPath).Debug("rfcomm bound")

	return link, nil
}

// waitForNode waits for path to exist. It gives up when exited is closed, or
// after timeout when timeout is positive.
func waitForNode(path string, exited <-chan struct{}, timeout time.Duration) error {
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}

		select {
		case <-exited:
			return ErrRFCOMMExited
		case <-deadline:
			return fmt.Errorf("timeout waiting for %s to appear", path)
		case <-tick.C:
		}
	}
}

// relay logs rfcomm's stderr and keeps a copy in out.
func (o *ttyOpener) relay(r io.Reader, address string, out *strings.Builder) {
	if r == nil {
		return
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		o.log.WithField("address", address).Debug(line)
		out.WriteString(line + "\n")
	}
}

func (l *rfcommLink) release() {
	l.once.Do(func() {
		l.cancel()

		args := []string{"rfcomm", "release", l.devPath}
		if l.helper == "sudo" {
			args = append([]string{"-n"}, args...)
		}
		exec.Command(l.helper, args...).Run()

		if l.cmd.Process != nil {
			l.cmd.Process.Kill()
		}
		<-l.exited
	})
}

// ttyChannel drains the serial port on Flush and unbinds the tty on Close.
type ttyChannel struct {
	serial.Port
	link *rfcommLink
}

func (c *ttyChannel) Flush() error {
	return c.Port.Drain()
}

func (c *ttyChannel) Close() error {
	err := c.Port.Close()
	c.link.release()

	return err
}

func privilegeHelper() string {
	for _, helper := range []string{"pkexec", "sudo"} {
		if _, err := exec.LookPath(helper); err == nil {
			return helper
		}
	}

	return ""
}

func freeRFCOMMDevice() (string, int, error) {
	for i := 0; i < maxRFCOMMDevices; i++ {
		devPath := "/dev/rfcomm" + strconv.Itoa(i)
		out, _ := exec.Command("rfcomm", "show", devPath).CombinedOutput()
		if len(out) == 0 || strings.Contains(string(out), "No such device") {
			return devPath, i, nil
		}
	}

	return "", -1, fmt.Errorf("no available RFCOMM device slots")
}
