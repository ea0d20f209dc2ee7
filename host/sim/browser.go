package sim

import (
	"fmt"
	"strings"

	"github.com/legamerdc/liveremote/host"
)

type browser struct {
	s    *Set
	cats []host.Category
}

func (b *browser) Categories() []host.Category { return b.cats }

// Load 在当前选中轨道末尾追加由条目生成的设备
func (b *browser) Load(bi host.BrowserItem) error {
	it, ok := bi.(*item)
	if !ok {
		return fmt.Errorf("Browser item does not belong to this browser")
	}
	if !it.loadable {
		return fmt.Errorf("Browser item %s is not loadable", it.name)
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.selected == nil {
		return fmt.Errorf("No track selected")
	}
	b.s.selected.devices = append(b.s.selected.devices, deviceFor(b.s, it))
	return nil
}

type item struct {
	name     string
	uri      string
	folder   bool
	device   bool
	loadable bool
	children []*item
	parent   *item

	class      string
	instrument bool
	drumPads   bool
	chains     bool
}

func (it *item) Name() string { return it.name }
func (it *item) URI() string { return it.uri }
func (it *item) IsFolder() bool { return it.folder }
func (it *item) IsDevice() bool { return it.device }
func (it *item) IsLoadable() bool { return it.loadable }

func (it *item) Children() []host.BrowserItem {
	out := make([]host.BrowserItem, len(it.children))
	for i, c := range it.children {
		out[i] = c
	}
	return out
}

func (it *item) Parent() host.BrowserItem {
	if it.parent == nil {
		return nil
	}
	return it.parent
}

func folder(name string, children ...*item) *item {
	it := &item{name: name, folder: len(children) > 0, children: children}
	for _, c := range children {
		c.parent = it
	}
	return it
}

func dev(name, class string) *item {
	return &item{name: name, device: true, loadable: true, class: class}
}

func instrument(name, class string) *item {
	it := dev(name, class)
	it.instrument = true
	return it
}

func preset(name, class string) *item {
	return &item{name: name, loadable: true, class: class, chains: true}
}

// assignURIs 按路径生成 URI：query:<root>#<a>:<b>
func assignURIs(root *item, prefix string) {
	var walk func(it *item, parts []string)
	walk = func(it *item, parts []string) {
		if len(parts) == 0 {
			it.uri = "query:" + prefix
		} else {
			it.uri = "query:" + prefix + "#" + strings.Join(parts, ":")
		}
		for _, c := range it.children {
			walk(c, append(parts[:len(parts):len(parts)], strings.ReplaceAll(c.name, " ", "%20")))
		}
	}
	walk(root, nil)
}

func defaultBrowser(s *Set) *browser {
	drumRack := instrument("Drum Rack", "DrumGroupDevice")
	drumRack.drumPads = true
	instRack := instrument("Instrument Rack", "InstrumentGroupDevice")
	instRack.chains = true
	kit := preset("909 Core Kit.adg", "DrumGroupDevice")
	kit.drumPads = true

	cats := []struct {
		key, prefix string
		root        *item
	}{
		{"instruments", "Synths", folder("Instruments",
			instrument("Operator", "Operator"),
			instrument("Wavetable", "InstrumentVector"),
			drumRack,
			instRack,
		)},
		{"sounds", "Sounds", folder("Sounds",
			folder("Bass", preset("Deep Sub Bass.adg", "InstrumentGroupDevice")),
			folder("Pad", preset("Warm Pad.adg", "InstrumentGroupDevice")),
		)},
		{"drums", "Drums", folder("Drums",
			folder("Kits", kit),
		)},
		{"audio_effects", "AudioFx", folder("Audio Effects",
			dev("Reverb", "Reverb"),
			dev("EQ Eight", "Eq8"),
			dev("Compressor", "Compressor2"),
		)},
		{"midi_effects", "MidiFx", folder("MIDI Effects",
			dev("Arpeggiator", "MidiArpeggiator"),
			dev("Chord", "MidiChord"),
		)},
		{"user_library", "UserLibrary", folder("User Library",
			folder("Presets", preset("My Bass.adg", "InstrumentGroupDevice")),
		)},
	}
	b := &browser{s: s}
	for _, c := range cats {
		assignURIs(c.root, c.prefix)
		b.cats = append(b.cats, host.Category{Key: c.key, Item: c.root})
	}
	return b
}
