package printer

import "go.uber.org/atomic"

// closeOnce makes sure the wrapped channel's Close runs a single time no
// matter how many exit paths reach it.
type closeOnce struct {
	Channel
	closed atomic.Bool
}

func guard(ch Channel) *closeOnce {
	return &closeOnce{Channel: ch}
}

func (c *closeOnce) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.Channel.Close()
}
