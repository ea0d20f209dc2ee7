// Package browse 实现浏览器树上的有界遍历：URI 查找、名称搜索、路径导航。
package browse

import (
	"fmt"
	"strings"

	"github.com/legamerdc/liveremote/host"
)

const (
	// URIDepth URI 查找的最大深度（浏览器根为 0，类目为 1）
	URIDepth = 10
	// CollectDepth 搜索时收集条目的最大深度（类目为 0）
	CollectDepth = 5
)

// 标准类目，按遍历顺序
var standard = []string{"instruments", "sounds", "drums", "audio_effects", "midi_effects"}

var displayNames = map[string]string{
	"instruments":   "Instruments",
	"sounds":        "Sounds",
	"drums":         "Drums",
	"audio_effects": "Audio Effects",
	"midi_effects":  "MIDI Effects",
}

// DisplayName 返回类目的展示名；非标准类目首字母大写
func DisplayName(key string) string {
	if n, ok := displayNames[key]; ok {
		return n
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// IsStandard 判断是否为五个标准类目之一
func IsStandard(key string) bool {
	for _, k := range standard {
		if k == key {
			return true
		}
	}
	return false
}

// Keys 返回浏览器提供的全部类目键
func Keys(b host.Browser) []string {
	cats := b.Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Key
	}
	return out
}

// Select 按 categoryType 过滤类目；"all" 返回全部
func Select(b host.Browser, categoryType string) []host.Category {
	var out []host.Category
	for _, c := range b.Categories() {
		if categoryType == "all" || c.Key == categoryType {
			out = append(out, c)
		}
	}
	return out
}

// Category 按键查找类目，大小写不敏感
func Category(b host.Browser, key string) (host.BrowserItem, bool) {
	for _, c := range b.Categories() {
		if strings.EqualFold(c.Key, key) {
			return c.Item, true
		}
	}
	return nil, false
}

// FindByURI 深度优先查找 URI 完全相等的条目，超过 URIDepth 的层级不访问
func FindByURI(b host.Browser, uri string) host.BrowserItem {
	if uri == "" {
		return nil
	}
	for _, c := range b.Categories() {
		if it := findURI(c.Item, uri, 1); it != nil {
			return it
		}
	}
	return nil
}

func findURI(it host.BrowserItem, uri string, depth int) host.BrowserItem {
	if it.URI() == uri {
		return it
	}
	if depth >= URIDepth {
		return nil
	}
	for _, c := range it.Children() {
		if found := findURI(c, uri, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// Collect 前序收集 root 之下深度小于 maxDepth 的全部后代（不含 root）
func Collect(root host.BrowserItem, maxDepth int) []host.BrowserItem {
	var out []host.BrowserItem
	var walk func(it host.BrowserItem, depth int)
	walk = func(it host.BrowserItem, depth int) {
		if depth >= maxDepth {
			return
		}
		for _, c := range it.Children() {
			out = append(out, c)
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return out
}

// Search 在标准类目中按名称子串（大小写不敏感）搜索，最多返回 limit 个
func Search(b host.Browser, query, categoryType string, limit int) []host.BrowserItem {
	q := strings.ToLower(query)
	var out []host.BrowserItem
	for _, c := range b.Categories() {
		if !IsStandard(c.Key) || (categoryType != "all" && categoryType != c.Key) {
			continue
		}
		for _, it := range Collect(c.Item, CollectDepth) {
			if len(out) >= limit {
				return out
			}
			if strings.Contains(strings.ToLower(it.Name()), q) {
				out = append(out, it)
			}
		}
	}
	return out
}

// ItemPath 沿父链拼出 "Root/Folder/Item"，最多取 URIDepth 段（靠近条目的一端）
func ItemPath(it host.BrowserItem) string {
	var parts []string
	for cur := it; cur != nil && len(parts) < URIDepth; cur = cur.Parent() {
		parts = append(parts, cur.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// PathError 路径导航失败
type PathError struct {
	Part string
}

func (e *PathError) Error() string { return fmt.Sprintf("Path part '%s' not found", e.Part) }

// Navigate 从 root 出发按名称逐级下降（大小写不敏感，空段跳过）
func Navigate(root host.BrowserItem, parts []string) (host.BrowserItem, error) {
	cur := root
	for _, part := range parts {
		if part == "" {
			continue
		}
		var next host.BrowserItem
		for _, c := range cur.Children() {
			if strings.EqualFold(c.Name(), part) {
				next = c
				break
			}
		}
		if next == nil {
			return nil, &PathError{Part: part}
		}
		cur = next
	}
	return cur, nil
}

// SplitPath 拆分 "category/folder/item"
func SplitPath(path string) []string {
	return strings.Split(path, "/")
}

// MatchesType 判断条目是否满足 item_type 过滤：all / folder / device / loadable
func MatchesType(it host.BrowserItem, itemType string) bool {
	switch itemType {
	case "", "all":
		return true
	case "folder", "folders":
		return it.IsFolder()
	case "device", "devices":
		return it.IsDevice()
	case "loadable":
		return it.IsLoadable()
	default:
		return false
	}
}
