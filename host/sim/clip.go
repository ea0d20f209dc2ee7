package sim

import (
	"fmt"

	"github.com/legamerdc/liveremote/host"
)

type clip struct {
	s *Set

	name      string
	length    float64
	playing   bool
	recording bool
	notes     []host.Note
	props     map[string]any
}

func newClip(s *Set, length float64) *clip {
	return &clip{
		s:      s,
		length: length,
		props: map[string]any{
			"color":                 0,
			"warping":               false,
			"gain":                  1.0,
			"pitch_coarse":          0,
			"pitch_fine":            0.0,
			"looping":               true,
			"loop_start":            0.0,
			"loop_end":              length,
			"start_marker":          0.0,
			"end_marker":            length,
			"signature_numerator":   4,
			"signature_denominator": 4,
		},
	}
}

func (c *clip) Name() string {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.name
}

func (c *clip) SetName(name string) error {
	c.s.mu.Lock()
	c.name = name
	c.s.mu.Unlock()
	return nil
}

func (c *clip) Length() float64 {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.length
}

func (c *clip) IsPlaying() bool {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.playing
}

func (c *clip) IsRecording() bool {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.recording
}

func (c *clip) SetNotes(notes []host.Note) error {
	for _, n := range notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return fmt.Errorf("Invalid note pitch %d", n.Pitch)
		}
	}
	c.s.mu.Lock()
	c.notes = append(c.notes, notes...)
	c.s.mu.Unlock()
	return nil
}

// Notes 返回已写入的音符副本
func (c *clip) Notes() []host.Note {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return append([]host.Note(nil), c.notes...)
}

func (c *clip) Property(name string) (any, bool) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	v, ok := c.props[name]
	return v, ok
}

func (c *clip) SetProperty(name string, value any) (any, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if name == "name" {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("Invalid value for clip property name")
		}
		c.name = s
		return c.name, nil
	}
	if _, ok := c.props[name]; !ok {
		return nil, fmt.Errorf("Unknown clip property %s", name)
	}
	c.props[name] = value
	return value, nil
}

// NotesOf 取出 sim 片段中的音符，非 sim 片段返回 nil
func NotesOf(c host.Clip) []host.Note {
	if sc, ok := c.(*clip); ok {
		return sc.Notes()
	}
	return nil
}
