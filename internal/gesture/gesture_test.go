package gesture

import (
	"image"
	"sync"
	"testing"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{None, "none"},
		{Up, "up"},
		{Down, "down"},
		{Left, "left"},
		{Tap, "tap"},
		{LongPress, "long_press"},
		{Code(0x0B), "unknown(0x0b)"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, c := range []Code{Up, Down, Left, Tap, LongPress} {
		got, err := Parse(c.String())
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", c.String(), err)
		}
		if got != c {
			t.Errorf("Parse(%q) = %v, want %v", c.String(), got, c)
		}
	}

	if _, err := Parse("swipe_right"); err == nil {
		t.Error("Parse() should reject unknown names")
	}
}

func TestHardwareValues(t *testing.T) {
	if Up != 0x01 || Down != 0x02 || Left != 0x04 || Tap != 0x05 || LongPress != 0x0C {
		t.Error("gesture codes must match the controller's gesture register")
	}
}

func TestCellTakeClears(t *testing.T) {
	var c Cell

	if got := c.Take(); got != None {
		t.Errorf("empty Take() = %v, want none", got)
	}

	c.Store(Down)
	if got := c.Peek(); got != Down {
		t.Errorf("Peek() = %v, want down", got)
	}
	if got := c.Take(); got != Down {
		t.Errorf("Take() = %v, want down", got)
	}
	if got := c.Take(); got != None {
		t.Errorf("second Take() = %v, want none", got)
	}
}

func TestCellOverwrites(t *testing.T) {
	var c Cell

	c.Store(Up)
	c.StoreAt(Tap, image.Pt(120, 150))

	if got := c.Take(); got != Tap {
		t.Errorf("Take() = %v, want tap", got)
	}
	if got := c.Point(); got != image.Pt(120, 150) {
		t.Errorf("Point() = %v, want (120,150)", got)
	}
}

func TestCellConcurrentWriters(t *testing.T) {
	var c Cell
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Store(Up)
				c.Take()
			}
		}()
	}
	wg.Wait()

	if got := c.Peek(); got != None && got != Up {
		t.Errorf("Peek() = %v after concurrent use", got)
	}
}
