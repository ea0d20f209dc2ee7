package sim

import (
	"fmt"

	"github.com/legamerdc/liveremote/host"
)

type track struct {
	s *Set

	name            string
	audio, midi     bool
	mute, solo, arm bool
	volume, panning float64
	slots           []*clipSlot
	devices         []*device
}

func (t *track) Name() string {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.name
}

func (t *track) SetName(name string) error {
	t.s.mu.Lock()
	t.name = name
	t.s.mu.Unlock()
	return nil
}

func (t *track) HasAudioInput() bool { return t.audio }
func (t *track) HasMIDIInput() bool  { return t.midi }

func (t *track) Mute() bool {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.mute
}

func (t *track) Solo() bool {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.solo
}

func (t *track) Arm() bool {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.arm
}

func (t *track) Mixer() host.Mixer { return mixer{t} }

func (t *track) ClipSlotCount() int { return len(t.slots) }

func (t *track) ClipSlot(index int) (host.ClipSlot, error) {
	if index < 0 || index >= len(t.slots) {
		return nil, host.ErrClipIndex
	}
	return t.slots[index], nil
}

func (t *track) DeviceCount() int {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return len(t.devices)
}

func (t *track) Device(index int) (host.Device, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if index < 0 || index >= len(t.devices) {
		return nil, host.ErrDeviceIndex
	}
	return t.devices[index], nil
}

type mixer struct{ t *track }

func (m mixer) Volume() float64 {
	m.t.s.mu.RLock()
	defer m.t.s.mu.RUnlock()
	return m.t.volume
}

func (m mixer) Panning() float64 {
	m.t.s.mu.RLock()
	defer m.t.s.mu.RUnlock()
	return m.t.panning
}

type clipSlot struct {
	t    *track
	clip *clip
}

func (cs *clipSlot) HasClip() bool {
	cs.t.s.mu.RLock()
	defer cs.t.s.mu.RUnlock()
	return cs.clip != nil
}

func (cs *clipSlot) Clip() (host.Clip, error) {
	cs.t.s.mu.RLock()
	defer cs.t.s.mu.RUnlock()
	if cs.clip == nil {
		return nil, host.ErrNoClip
	}
	return cs.clip, nil
}

func (cs *clipSlot) CreateClip(length float64) error {
	if length <= 0 {
		return fmt.Errorf("Invalid clip length %g", length)
	}
	cs.t.s.mu.Lock()
	defer cs.t.s.mu.Unlock()
	if cs.clip != nil {
		return host.ErrSlotInUse
	}
	cs.clip = newClip(cs.t.s, length)
	return nil
}

func (cs *clipSlot) Fire() error {
	cs.t.s.mu.Lock()
	defer cs.t.s.mu.Unlock()
	if cs.clip == nil {
		return host.ErrNoClip
	}
	cs.clip.playing = true
	return nil
}

// Stop 空槽上也成功，与宿主行为一致
func (cs *clipSlot) Stop() error {
	cs.t.s.mu.Lock()
	defer cs.t.s.mu.Unlock()
	if cs.clip != nil {
		cs.clip.playing = false
	}
	return nil
}
