package sim

import (
	"fmt"

	"github.com/legamerdc/liveremote/host"
)

type device struct {
	s *Set

	name        string
	className   string
	displayName string
	drumPads    bool
	chains      bool
	parameters  []*parameter
}

func (d *device) Name() string { return d.name }
func (d *device) ClassName() string { return d.className }
func (d *device) ClassDisplayName() string { return d.displayName }
func (d *device) CanHaveDrumPads() bool { return d.drumPads }
func (d *device) CanHaveChains() bool { return d.chains }

func (d *device) Parameters() []host.Parameter {
	out := make([]host.Parameter, len(d.parameters))
	for i, p := range d.parameters {
		out[i] = p
	}
	return out
}

type parameter struct {
	s *Set

	name       string
	value      float64
	min, max   float64
	enabled    bool
	automation int
}

func (p *parameter) Name() string { return p.name }
func (p *parameter) Min() float64 { return p.min }
func (p *parameter) Max() float64 { return p.max }
func (p *parameter) IsEnabled() bool { return p.enabled }
func (p *parameter) AutomationState() int { return p.automation }

func (p *parameter) Value() float64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.value
}

func (p *parameter) SetValue(v float64) error {
	if v < p.min || v > p.max {
		return fmt.Errorf("Invalid value %g for parameter %s", v, p.name)
	}
	p.s.mu.Lock()
	p.value = v
	p.s.mu.Unlock()
	return nil
}

func param(s *Set, name string, value, min, max float64) *parameter {
	return &parameter{s: s, name: name, value: value, min: min, max: max, enabled: true}
}

func operator(s *Set) *device {
	return &device{
		s: s, name: "Operator", className: "Operator", displayName: "Operator Instrument",
		parameters: []*parameter{
			param(s, "Device On", 1, 0, 1),
			param(s, "Volume", 0.5, 0, 1),
			param(s, "Filter Freq", 1000, 20, 20000),
			param(s, "Transpose", 0, -48, 48),
		},
	}
}

func utility(s *Set) *device {
	return &device{
		s: s, name: "Utility", className: "StereoGain", displayName: "Utility",
		parameters: []*parameter{
			param(s, "Device On", 1, 0, 1),
			param(s, "Gain", 0, -35, 35),
			param(s, "Width", 1, 0, 4),
		},
	}
}

// deviceFor 由可加载的浏览器条目生成设备
func deviceFor(s *Set, it *item) *device {
	d := &device{
		s: s, name: it.name, className: it.class, displayName: it.name,
		drumPads: it.drumPads, chains: it.chains,
		parameters: []*parameter{param(s, "Device On", 1, 0, 1)},
	}
	if it.instrument {
		d.displayName = it.name + " Instrument"
	}
	return d
}
