// Package sim 是 host.Facade 的内存实现，供测试与示例服务器使用。
//
// 整个模型共用一把 RWMutex：getter 取读锁，setter 取写锁。
// 单次调用是原子的，多次读取之间不保证快照一致。
package sim

import (
	"fmt"
	"sync"

	"github.com/legamerdc/liveremote/host"
)

const (
	MinTempo = 20.0
	MaxTempo = 999.0

	defaultSlots = 8
)

// Set 为一个内存中的宿主会话
type Set struct {
	mu sync.RWMutex

	tempo    float64
	num, den int
	playing  bool

	tracks   []*track
	returns  int
	master   *track
	selected *track

	browser *browser
}

var _ host.Facade = (*Set)(nil)

type Option func(*Set)

// WithoutBrowser 模拟浏览器不可用的宿主
func WithoutBrowser() Option { return func(s *Set) { s.browser = nil } }

// WithTempo 设置初始速度（不校验）
func WithTempo(bpm float64) Option { return func(s *Set) { s.tempo = bpm } }

// New 返回一个带默认内容的会话：两条轨道、主轨 Utility、一棵小型浏览器树
func New(opts ...Option) *Set {
	s := &Set{tempo: 120, num: 4, den: 4, returns: 2}
	s.master = s.newTrack("Master", false, true, 0)
	s.master.devices = append(s.master.devices, utility(s))

	midi := s.newTrack("1-MIDI", false, true, defaultSlots)
	midi.devices = append(midi.devices, operator(s))
	audio := s.newTrack("2-Audio", true, false, defaultSlots)
	s.tracks = []*track{midi, audio}
	s.selected = midi

	s.browser = defaultBrowser(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Set) Tempo() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempo
}

func (s *Set) SetTempo(bpm float64) error {
	if bpm < MinTempo || bpm > MaxTempo {
		return fmt.Errorf("Tempo %g out of range [%g, %g]", bpm, MinTempo, MaxTempo)
	}
	s.mu.Lock()
	s.tempo = bpm
	s.mu.Unlock()
	return nil
}

func (s *Set) SignatureNumerator() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.num
}

func (s *Set) SignatureDenominator() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.den
}

func (s *Set) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

func (s *Set) StartPlaying() error {
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	return nil
}

func (s *Set) StopPlaying() error {
	s.mu.Lock()
	s.playing = false
	for _, t := range s.tracks {
		for _, cs := range t.slots {
			if cs.clip != nil {
				cs.clip.playing = false
			}
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Set) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

func (s *Set) ReturnTrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.returns
}

func (s *Set) Track(index int) (host.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.tracks) {
		return nil, host.ErrTrackIndex
	}
	return s.tracks[index], nil
}

func (s *Set) MasterTrack() host.Track { return s.master }

func (s *Set) CreateMIDITrack(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tracks)
	if index == -1 {
		index = n
	}
	if index < 0 || index > n {
		return 0, host.ErrTrackIndex
	}
	t := s.newTrack(fmt.Sprintf("%d-MIDI", n+1), false, true, defaultSlots)
	s.tracks = append(s.tracks, nil)
	copy(s.tracks[index+1:], s.tracks[index:])
	s.tracks[index] = t
	return index, nil
}

func (s *Set) SelectTrack(t host.Track) error {
	tt, ok := t.(*track)
	if !ok || tt.s != s {
		return fmt.Errorf("track does not belong to this set")
	}
	s.mu.Lock()
	s.selected = tt
	s.mu.Unlock()
	return nil
}

// SelectedTrack 返回当前选中的轨道
func (s *Set) SelectedTrack() host.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Set) Browser() (host.Browser, error) {
	if s.browser == nil {
		return nil, host.ErrNoBrowser
	}
	return s.browser, nil
}

func (s *Set) newTrack(name string, audio, midi bool, slots int) *track {
	t := &track{s: s, name: name, audio: audio, midi: midi, volume: 0.85}
	t.slots = make([]*clipSlot, slots)
	for i := range t.slots {
		t.slots[i] = &clipSlot{t: t}
	}
	return t
}
