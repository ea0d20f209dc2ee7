package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/legamerdc/liveremote/host"
	"github.com/legamerdc/liveremote/internal/errs"
)

// deviceAt 解析 track_index（-1 为主轨）与 device_index
func deviceAt(h host.Facade, p *Params) (host.Device, error) {
	ti := p.Int("track_index", 0)
	di := p.Int("device_index", 0)
	if err := p.Err(); err != nil {
		return nil, err
	}
	var t host.Track
	if ti == host.MasterTrackIndex {
		t = h.MasterTrack()
	} else {
		var err error
		if t, err = h.Track(ti); err != nil {
			return nil, err
		}
	}
	return t.Device(di)
}

func getDeviceParameters(_ context.Context, h host.Facade, p *Params) (any, error) {
	d, err := deviceAt(h, p)
	if err != nil {
		return nil, err
	}
	params := d.Parameters()
	out := make([]any, 0, len(params))
	for _, prm := range params {
		out = append(out, map[string]any{
			"name":         prm.Name(),
			"value":        prm.Value(),
			"min":          prm.Min(),
			"max":          prm.Max(),
			"is_enabled":   prm.IsEnabled(),
			"is_automated": prm.AutomationState() > 0,
		})
	}
	return map[string]any{"device_name": d.Name(), "parameters": out}, nil
}

// applyClamped 钳制到 [min, max] 后写入，返回实际写入的值
func applyClamped(ctx context.Context, prm host.Parameter, v float64) (float64, error) {
	clamped := host.Clamp(v, prm.Min(), prm.Max())
	if clamped != v {
		zerolog.Ctx(ctx).Debug().
			Str("parameter", prm.Name()).
			Float64("value", v).
			Float64("clamped", clamped).
			Msg("router: parameter value clamped")
	}
	if err := prm.SetValue(clamped); err != nil {
		return 0, err
	}
	return clamped, nil
}

func setDeviceParameter(ctx context.Context, h host.Facade, p *Params) (any, error) {
	if !p.Has("parameter_name") || !p.Has("value") {
		return nil, errs.New(errs.Validation, "Missing parameter_name or value")
	}
	name := p.String("parameter_name", "")
	value := p.Float("value", 0)
	d, err := deviceAt(h, p)
	if err != nil {
		return nil, err
	}
	prm, ok := host.FindParameter(d, name)
	if !ok {
		return nil, fmt.Errorf("Parameter %s not found", name)
	}
	applied, err := applyClamped(ctx, prm, value)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"device_name":    d.Name(),
		"parameter_name": name,
		"value":          applied,
	}, nil
}

func setDeviceParameters(ctx context.Context, h host.Facade, p *Params) (any, error) {
	values := p.Object("parameters")
	d, err := deviceAt(h, p)
	if err != nil {
		return nil, err
	}
	typed := make(map[string]float64, len(values))
	for name, v := range values {
		f, ok := toFloat(v)
		if !ok {
			return nil, errs.Newf(errs.Validation, "parameter %s value must be a number", name)
		}
		typed[name] = f
	}
	lookup := make(map[string]host.Parameter)
	for _, prm := range d.Parameters() {
		if _, dup := lookup[prm.Name()]; !dup {
			lookup[prm.Name()] = prm
		}
	}
	applied := make(map[string]any, len(typed))
	for name, v := range typed {
		prm, ok := lookup[name]
		if !ok {
			// 未知参数跳过
			continue
		}
		got, err := applyClamped(ctx, prm, v)
		if err != nil {
			return nil, err
		}
		applied[name] = map[string]any{"value": got, "min": prm.Min(), "max": prm.Max()}
	}
	return map[string]any{"device_name": d.Name(), "parameters": applied}, nil
}
