package router

import (
	"context"

	"github.com/legamerdc/liveremote/host"
	"github.com/legamerdc/liveremote/internal/errs"
)

// DefaultTable 返回完整的命令分类表
func DefaultTable() Table {
	return Table{
		"get_session_info":      {Direct, getSessionInfo},
		"get_track_info":        {Direct, getTrackInfo},
		"get_master_track_info": {Direct, getMasterTrackInfo},
		"get_device_parameters": {Direct, getDeviceParameters},

		"create_midi_track":     {Bridged, createMIDITrack},
		"set_track_name":        {Bridged, setTrackName},
		"create_clip":           {Bridged, createClip},
		"add_notes_to_clip":     {Bridged, addNotesToClip},
		"set_clip_name":         {Bridged, setClipName},
		"set_clip_properties":   {Bridged, setClipProperties},
		"set_tempo":             {Bridged, setTempo},
		"fire_clip":             {Bridged, fireClip},
		"stop_clip":             {Bridged, stopClip},
		"start_playback":        {Bridged, startPlayback},
		"stop_playback":         {Bridged, stopPlayback},
		"set_device_parameter":  {Bridged, setDeviceParameter},
		"set_device_parameters": {Bridged, setDeviceParameters},

		"search_browser_items":      {Direct, searchBrowserItems},
		"get_browser_tree":          {Direct, getBrowserTree},
		"get_browser_items_at_path": {Direct, getBrowserItemsAtPath},
		"get_browser_item":          {Direct, getBrowserItem},
		"get_browser_categories":    {Direct, getBrowserCategories},
		"get_browser_items":         {Direct, getBrowserItems},
		"load_browser_item":         {Bridged, loadBrowserItem},
		"load_instrument_or_effect": {Bridged, loadInstrumentOrEffect},
	}
}

func getSessionInfo(_ context.Context, h host.Facade, _ *Params) (any, error) {
	master := h.MasterTrack().Mixer()
	return map[string]any{
		"tempo":                 h.Tempo(),
		"signature_numerator":   h.SignatureNumerator(),
		"signature_denominator": h.SignatureDenominator(),
		"track_count":           h.TrackCount(),
		"return_track_count":    h.ReturnTrackCount(),
		"master_track": map[string]any{
			"name":    "Master",
			"volume":  master.Volume(),
			"panning": master.Panning(),
		},
	}, nil
}

func getTrackInfo(_ context.Context, h host.Facade, p *Params) (any, error) {
	idx := p.Int("track_index", 0)
	if err := p.Err(); err != nil {
		return nil, err
	}
	t, err := h.Track(idx)
	if err != nil {
		return nil, err
	}
	mixer := t.Mixer()
	return map[string]any{
		"index":          idx,
		"name":           t.Name(),
		"is_audio_track": t.HasAudioInput(),
		"is_midi_track":  t.HasMIDIInput(),
		"mute":           t.Mute(),
		"solo":           t.Solo(),
		"arm":            t.Arm(),
		"volume":         mixer.Volume(),
		"panning":        mixer.Panning(),
		"clip_slots":     clipSlotsInfo(t),
		"devices":        devicesInfo(t),
	}, nil
}

func getMasterTrackInfo(_ context.Context, h host.Facade, _ *Params) (any, error) {
	t := h.MasterTrack()
	mixer := t.Mixer()
	return map[string]any{
		"name":            "Master",
		"volume":          mixer.Volume(),
		"panning":         mixer.Panning(),
		"devices":         devicesInfo(t),
		"clip_slots":      clipSlotsInfo(t),
		"is_master_track": true,
	}, nil
}

func clipSlotsInfo(t host.Track) []any {
	out := make([]any, 0, t.ClipSlotCount())
	for i := 0; i < t.ClipSlotCount(); i++ {
		slot, err := t.ClipSlot(i)
		if err != nil {
			break
		}
		var clip any
		if c, err := slot.Clip(); err == nil {
			clip = map[string]any{
				"name":         c.Name(),
				"length":       c.Length(),
				"is_playing":   c.IsPlaying(),
				"is_recording": c.IsRecording(),
			}
		}
		out = append(out, map[string]any{
			"index":    i,
			"has_clip": clip != nil,
			"clip":     clip,
		})
	}
	return out
}

func devicesInfo(t host.Track) []any {
	out := make([]any, 0, t.DeviceCount())
	for i := 0; i < t.DeviceCount(); i++ {
		d, err := t.Device(i)
		if err != nil {
			break
		}
		out = append(out, map[string]any{
			"index":      i,
			"name":       d.Name(),
			"class_name": d.ClassName(),
			"type":       host.DeviceType(d),
		})
	}
	return out
}

func createMIDITrack(_ context.Context, h host.Facade, p *Params) (any, error) {
	idx := p.Int("index", -1)
	if err := p.Err(); err != nil {
		return nil, err
	}
	created, err := h.CreateMIDITrack(idx)
	if err != nil {
		return nil, err
	}
	t, err := h.Track(created)
	if err != nil {
		return nil, err
	}
	return map[string]any{"index": created, "name": t.Name()}, nil
}

func setTrackName(_ context.Context, h host.Facade, p *Params) (any, error) {
	idx := p.Int("track_index", 0)
	name := p.String("name", "")
	if err := p.Err(); err != nil {
		return nil, err
	}
	t, err := h.Track(idx)
	if err != nil {
		return nil, err
	}
	if err := t.SetName(name); err != nil {
		return nil, err
	}
	return map[string]any{"name": t.Name()}, nil
}

// slotAt 解析 track_index / clip_index
func slotAt(h host.Facade, p *Params) (host.ClipSlot, error) {
	ti := p.Int("track_index", 0)
	ci := p.Int("clip_index", 0)
	if err := p.Err(); err != nil {
		return nil, err
	}
	t, err := h.Track(ti)
	if err != nil {
		return nil, err
	}
	return t.ClipSlot(ci)
}

// clipAt 同 slotAt，空槽返回 "No clip in slot"
func clipAt(h host.Facade, p *Params) (host.Clip, error) {
	slot, err := slotAt(h, p)
	if err != nil {
		return nil, err
	}
	return slot.Clip()
}

func createClip(_ context.Context, h host.Facade, p *Params) (any, error) {
	length := p.Float("length", 4.0)
	slot, err := slotAt(h, p)
	if err != nil {
		return nil, err
	}
	if slot.HasClip() {
		return nil, host.ErrSlotInUse
	}
	if err := slot.CreateClip(length); err != nil {
		return nil, err
	}
	c, err := slot.Clip()
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": c.Name(), "length": c.Length()}, nil
}

func addNotesToClip(_ context.Context, h host.Facade, p *Params) (any, error) {
	raw := p.List("notes")
	notes := make([]host.Note, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errs.New(errs.Validation, "parameter notes must be a list of objects")
		}
		np := NewParams(m)
		n := host.Note{
			Pitch:     np.Int("pitch", 60),
			StartTime: np.Float("start_time", 0),
			Duration:  np.Float("duration", 0.25),
			Velocity:  np.Int("velocity", 100),
			Mute:      np.Bool("mute", false),
		}
		if err := np.Err(); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	c, err := clipAt(h, p)
	if err != nil {
		return nil, err
	}
	if err := c.SetNotes(notes); err != nil {
		return nil, err
	}
	return map[string]any{"note_count": len(notes)}, nil
}

func setClipName(_ context.Context, h host.Facade, p *Params) (any, error) {
	name := p.String("name", "")
	c, err := clipAt(h, p)
	if err != nil {
		return nil, err
	}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	return map[string]any{"name": c.Name()}, nil
}

type propKind int

const (
	propString propKind = iota
	propInt
	propFloat
	propBool
)

// clipProps 可写的片段属性及其类型；表外的键被忽略
var clipProps = map[string]propKind{
	"name":                  propString,
	"color":                 propInt,
	"warping":               propBool,
	"gain":                  propFloat,
	"pitch_coarse":          propInt,
	"pitch_fine":            propFloat,
	"looping":               propBool,
	"loop_start":            propFloat,
	"loop_end":              propFloat,
	"start_marker":          propFloat,
	"end_marker":            propFloat,
	"signature_numerator":   propInt,
	"signature_denominator": propInt,
}

func convertProp(name string, kind propKind, v any) (any, error) {
	var (
		out any
		ok  bool
	)
	switch kind {
	case propString:
		out, ok = v.(string)
	case propInt:
		var f float64
		if f, ok = toFloat(v); ok {
			out = int(f)
		}
	case propFloat:
		out, ok = toFloat(v)
	case propBool:
		out, ok = toBool(v)
	}
	if !ok {
		return nil, errs.Newf(errs.Validation, "invalid value for clip property %s", name)
	}
	return out, nil
}

func setClipProperties(_ context.Context, h host.Facade, p *Params) (any, error) {
	props := p.Object("properties")
	c, err := clipAt(h, p)
	if err != nil {
		return nil, err
	}
	// 先整体校验再写入，避免部分生效
	typed := make(map[string]any, len(props))
	for name, v := range props {
		kind, known := clipProps[name]
		if !known {
			continue
		}
		tv, err := convertProp(name, kind, v)
		if err != nil {
			return nil, err
		}
		typed[name] = tv
	}
	result := map[string]any{"name": c.Name()}
	for name, v := range typed {
		applied, err := c.SetProperty(name, v)
		if err != nil {
			return nil, err
		}
		result[name] = applied
	}
	return result, nil
}

func setTempo(_ context.Context, h host.Facade, p *Params) (any, error) {
	bpm := p.Float("tempo", 120.0)
	if err := p.Err(); err != nil {
		return nil, err
	}
	if err := h.SetTempo(bpm); err != nil {
		return nil, err
	}
	return map[string]any{"tempo": h.Tempo()}, nil
}

func fireClip(_ context.Context, h host.Facade, p *Params) (any, error) {
	slot, err := slotAt(h, p)
	if err != nil {
		return nil, err
	}
	if !slot.HasClip() {
		return nil, host.ErrNoClip
	}
	if err := slot.Fire(); err != nil {
		return nil, err
	}
	return map[string]any{"fired": true}, nil
}

func stopClip(_ context.Context, h host.Facade, p *Params) (any, error) {
	slot, err := slotAt(h, p)
	if err != nil {
		return nil, err
	}
	if err := slot.Stop(); err != nil {
		return nil, err
	}
	return map[string]any{"stopped": true}, nil
}

func startPlayback(_ context.Context, h host.Facade, _ *Params) (any, error) {
	if err := h.StartPlaying(); err != nil {
		return nil, err
	}
	return map[string]any{"playing": h.IsPlaying()}, nil
}

func stopPlayback(_ context.Context, h host.Facade, _ *Params) (any, error) {
	if err := h.StopPlaying(); err != nil {
		return nil, err
	}
	return map[string]any{"playing": h.IsPlaying()}, nil
}
