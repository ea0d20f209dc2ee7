// Package host 定义命令路由所依赖的宿主对象模型。
//
// 所有 getter 可在任意 goroutine 调用（读可能看到写到一半的状态）；
// setter 与创建类方法只能在宿主的协作线程上调用，即经由 bridge 提交。
package host

import "errors"

// 访问器失败时的标准消息，直接作为错误响应返回给客户端
var (
	ErrTrackIndex  = errors.New("Track index out of range")
	ErrClipIndex   = errors.New("Clip index out of range")
	ErrDeviceIndex = errors.New("Device index out of range")
	ErrNoClip      = errors.New("No clip in slot")
	ErrSlotInUse   = errors.New("Clip slot already has a clip")
	ErrNoBrowser   = errors.New("Browser is not available in the Live application")
)

// MasterTrackIndex 设备类命令中以 -1 指代主轨
const MasterTrackIndex = -1

// Facade 为宿主会话（Song）及其应用级对象的入口
type Facade interface {
	Tempo() float64
	// SetTempo 不做钳制，越界由实现返回错误
	SetTempo(bpm float64) error
	SignatureNumerator() int
	SignatureDenominator() int

	IsPlaying() bool
	StartPlaying() error
	StopPlaying() error

	TrackCount() int
	ReturnTrackCount() int
	// Track 越界返回 ErrTrackIndex
	Track(index int) (Track, error)
	MasterTrack() Track
	// CreateMIDITrack 在 index 处插入，-1 表示末尾；返回新轨道索引
	CreateMIDITrack(index int) (int, error)
	// SelectTrack 设置视图中的当前轨道（加载浏览器条目的目标）
	SelectTrack(t Track) error

	// Browser 不可用时返回 ErrNoBrowser
	Browser() (Browser, error)
}

// Mixer 为音量/声像
type Mixer interface {
	Volume() float64
	Panning() float64
}

type Track interface {
	Name() string
	SetName(name string) error
	HasAudioInput() bool
	HasMIDIInput() bool
	Mute() bool
	Solo() bool
	Arm() bool
	Mixer() Mixer

	ClipSlotCount() int
	// ClipSlot 越界返回 ErrClipIndex
	ClipSlot(index int) (ClipSlot, error)
	DeviceCount() int
	// Device 越界返回 ErrDeviceIndex
	Device(index int) (Device, error)
}

type ClipSlot interface {
	HasClip() bool
	// Clip 空槽返回 ErrNoClip
	Clip() (Clip, error)
	// CreateClip 已有片段返回 ErrSlotInUse
	CreateClip(length float64) error
	Fire() error
	Stop() error
}

// Note 为一个 MIDI 音符
type Note struct {
	Pitch     int
	StartTime float64
	Duration  float64
	Velocity  int
	Mute      bool
}

type Clip interface {
	Name() string
	SetName(name string) error
	Length() float64
	IsPlaying() bool
	IsRecording() bool
	SetNotes(notes []Note) error
	// Property / SetProperty 访问 color、looping、loop_start 等可写属性；
	// SetProperty 返回宿主实际生效的值
	Property(name string) (any, bool)
	SetProperty(name string, value any) (any, error)
}

type Device interface {
	Name() string
	ClassName() string
	ClassDisplayName() string
	CanHaveDrumPads() bool
	CanHaveChains() bool
	Parameters() []Parameter
}

// Parameter 为设备参数，SetValue 期望 value 已位于 [Min, Max]
type Parameter interface {
	Name() string
	Value() float64
	Min() float64
	Max() float64
	IsEnabled() bool
	AutomationState() int
	SetValue(v float64) error
}

// Browser 为浏览器根，Categories 返回的顺序即遍历顺序
type Browser interface {
	// Categories 返回全部根类目，键为属性名（instruments、sounds、drums、audio_effects、midi_effects 等）
	Categories() []Category
	// Load 将条目加载到当前选中的轨道
	Load(item BrowserItem) error
}

// Category 为一个命名的浏览器根类目
type Category struct {
	Key  string
	Item BrowserItem
}

// BrowserItem 为浏览器树节点的能力接口
type BrowserItem interface {
	Name() string
	URI() string
	IsFolder() bool
	IsDevice() bool
	IsLoadable() bool
	Children() []BrowserItem
	// Parent 根节点返回 nil
	Parent() BrowserItem
}

// FindParameter 按名称精确查找参数
func FindParameter(d Device, name string) (Parameter, bool) {
	for _, p := range d.Parameters() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// DeviceType 根据设备能力粗略归类
func DeviceType(d Device) string {
	switch {
	case d.CanHaveDrumPads():
		return "drum_machine"
	case d.CanHaveChains():
		return "rack"
	case containsFold(d.ClassDisplayName(), "instrument"):
		return "instrument"
	case containsFold(d.ClassName(), "audio_effect"):
		return "audio_effect"
	case containsFold(d.ClassName(), "midi_effect"):
		return "midi_effect"
	default:
		return "unknown"
	}
}
