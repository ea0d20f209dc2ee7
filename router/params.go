package router

import (
	"encoding/json"
	"math"

	"github.com/legamerdc/liveremote/internal/errs"
)

// Params 按名称读取命令参数：缺失或为 null 时取默认值；
// 存在但类型不符时记录第一个校验错误，由 Err 返回。
type Params struct {
	m   map[string]any
	err error
}

func NewParams(m map[string]any) *Params {
	if m == nil {
		m = map[string]any{}
	}
	return &Params{m: m}
}

// Err 返回读取过程中的第一个校验错误
func (p *Params) Err() error { return p.err }

// Has 参数存在且不为 null
func (p *Params) Has(name string) bool {
	v, ok := p.m[name]
	return ok && v != nil
}

func (p *Params) fail(name, kind string) {
	if p.err == nil {
		p.err = errs.Newf(errs.Validation, "parameter %s must be %s", name, kind)
	}
}

func (p *Params) Int(name string, def int) int {
	v, ok := p.m[name]
	if !ok || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		p.fail(name, "an integer")
		return def
	}
	return n
}

func (p *Params) Float(name string, def float64) float64 {
	v, ok := p.m[name]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		p.fail(name, "a number")
		return def
	}
	return f
}

func (p *Params) String(name, def string) string {
	v, ok := p.m[name]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		p.fail(name, "a string")
		return def
	}
	return s
}

// OptString 区分缺失与空串
func (p *Params) OptString(name string) (string, bool) {
	if !p.Has(name) {
		return "", false
	}
	s := p.String(name, "")
	return s, p.err == nil
}

func (p *Params) Bool(name string, def bool) bool {
	v, ok := p.m[name]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		p.fail(name, "a boolean")
		return def
	}
	return b
}

func (p *Params) Object(name string) map[string]any {
	v, ok := p.m[name]
	if !ok || v == nil {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(name, "an object")
		return map[string]any{}
	}
	return m
}

func (p *Params) List(name string) []any {
	v, ok := p.m[name]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		p.fail(name, "a list")
		return nil
	}
	return l
}

// Raw 返回未经转换的值
func (p *Params) Raw(name string) any { return p.m[name] }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

// toInt 接受整数值，以及小数部分为 0 的浮点数
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case int32:
		return int(n), true
	case uint32:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// toBool 宽松转换：布尔值原样返回，数字以非零为真
func toBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if f, ok := toFloat(v); ok {
		return f != 0, true
	}
	return false, false
}
