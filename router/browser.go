package router

import (
	"context"
	"fmt"

	"github.com/legamerdc/liveremote/host"
	"github.com/legamerdc/liveremote/internal/browse"
)

func itemInfo(it host.BrowserItem) map[string]any {
	return map[string]any{
		"name":        it.Name(),
		"is_folder":   it.IsFolder(),
		"is_device":   it.IsDevice(),
		"is_loadable": it.IsLoadable(),
		"uri":         it.URI(),
	}
}

func childrenInfo(it host.BrowserItem, itemType string) []any {
	children := it.Children()
	out := make([]any, 0, len(children))
	for _, c := range children {
		if browse.MatchesType(c, itemType) {
			out = append(out, itemInfo(c))
		}
	}
	return out
}

func searchBrowserItems(_ context.Context, h host.Facade, p *Params) (any, error) {
	query := p.String("query", "")
	categoryType := p.String("category_type", "all")
	limit := p.Int("max_results", 50)
	if err := p.Err(); err != nil {
		return nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, err
	}
	found := browse.Search(b, query, categoryType, limit)
	results := make([]any, 0, len(found))
	for _, it := range found {
		results = append(results, map[string]any{
			"name":        it.Name(),
			"path":        browse.ItemPath(it),
			"is_loadable": it.IsLoadable(),
			"is_device":   it.IsDevice(),
			"uri":         it.URI(),
		})
	}
	return map[string]any{"total_results": len(results), "results": results}, nil
}

// getBrowserTree 返回所选根类目及其直接子项
func getBrowserTree(_ context.Context, h host.Facade, p *Params) (any, error) {
	categoryType := p.String("category_type", "all")
	if err := p.Err(); err != nil {
		return nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, err
	}
	cats := browse.Select(b, categoryType)
	out := make([]any, 0, len(cats))
	for _, c := range cats {
		node := itemInfo(c.Item)
		node["name"] = browse.DisplayName(c.Key)
		node["children"] = childrenInfo(c.Item, "all")
		out = append(out, node)
	}
	return map[string]any{
		"type":                 categoryType,
		"categories":           out,
		"available_categories": browse.Keys(b),
	}, nil
}

// resolvePath 解析 "category/folder/..."；失败时返回可直接作为 result 的说明
func resolvePath(b host.Browser, path string) (host.BrowserItem, map[string]any) {
	parts := browse.SplitPath(path)
	root, ok := browse.Category(b, parts[0])
	if !ok {
		return nil, map[string]any{
			"path":                 path,
			"error":                fmt.Sprintf("Unknown or unavailable category: %s", parts[0]),
			"available_categories": browse.Keys(b),
			"items":                []any{},
		}
	}
	it, err := browse.Navigate(root, parts[1:])
	if err != nil {
		return nil, map[string]any{"path": path, "error": err.Error(), "items": []any{}}
	}
	return it, nil
}

func getBrowserItemsAtPath(_ context.Context, h host.Facade, p *Params) (any, error) {
	path := p.String("path", "")
	if err := p.Err(); err != nil {
		return nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, err
	}
	it, failure := resolvePath(b, path)
	if failure != nil {
		return failure, nil
	}
	result := itemInfo(it)
	result["path"] = path
	result["items"] = childrenInfo(it, "all")
	return result, nil
}

// getBrowserItem 先按 URI 查找，未命中再按路径导航；路径首段不是类目时从 instruments 开始
func getBrowserItem(_ context.Context, h host.Facade, p *Params) (any, error) {
	uri, hasURI := p.OptString("uri")
	path, hasPath := p.OptString("path")
	if err := p.Err(); err != nil {
		return nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, err
	}
	result := map[string]any{"uri": p.Raw("uri"), "path": p.Raw("path"), "found": false}

	if hasURI && uri != "" {
		if it := browse.FindByURI(b, uri); it != nil {
			result["found"] = true
			result["item"] = itemInfo(it)
			return result, nil
		}
	}
	if !hasPath || path == "" {
		return result, nil
	}

	parts := browse.SplitPath(path)
	root, ok := browse.Category(b, parts[0])
	if ok {
		parts = parts[1:]
	} else if root, ok = browse.Category(b, "instruments"); !ok {
		result["error"] = "Unknown or unavailable category: instruments"
		return result, nil
	}
	it, err := browse.Navigate(root, parts)
	if err != nil {
		result["error"] = err.Error()
		return result, nil
	}
	result["found"] = true
	result["item"] = itemInfo(it)
	return result, nil
}

func getBrowserCategories(_ context.Context, h host.Facade, p *Params) (any, error) {
	categoryType := p.String("category_type", "all")
	if err := p.Err(); err != nil {
		return nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, err
	}
	cats := browse.Select(b, categoryType)
	out := make([]any, 0, len(cats))
	for _, c := range cats {
		out = append(out, map[string]any{
			"key":         c.Key,
			"name":        browse.DisplayName(c.Key),
			"uri":         c.Item.URI(),
			"is_folder":   c.Item.IsFolder(),
			"child_count": len(c.Item.Children()),
		})
	}
	return map[string]any{"type": categoryType, "categories": out}, nil
}

func getBrowserItems(_ context.Context, h host.Facade, p *Params) (any, error) {
	path := p.String("path", "")
	itemType := p.String("item_type", "all")
	if err := p.Err(); err != nil {
		return nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, err
	}
	it, failure := resolvePath(b, path)
	if failure != nil {
		failure["item_type"] = itemType
		return failure, nil
	}
	return map[string]any{
		"path":      path,
		"item_type": itemType,
		"items":     childrenInfo(it, itemType),
	}, nil
}

func loadItem(h host.Facade, trackIndex int, uri string) (host.Track, host.BrowserItem, error) {
	t, err := h.Track(trackIndex)
	if err != nil {
		return nil, nil, err
	}
	b, err := h.Browser()
	if err != nil {
		return nil, nil, err
	}
	it := browse.FindByURI(b, uri)
	if it == nil {
		return nil, nil, fmt.Errorf("Browser item with URI '%s' not found", uri)
	}
	if err := h.SelectTrack(t); err != nil {
		return nil, nil, err
	}
	if err := b.Load(it); err != nil {
		return nil, nil, err
	}
	return t, it, nil
}

func loadBrowserItem(_ context.Context, h host.Facade, p *Params) (any, error) {
	ti := p.Int("track_index", 0)
	uri := p.String("item_uri", "")
	if err := p.Err(); err != nil {
		return nil, err
	}
	t, it, err := loadItem(h, ti, uri)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"loaded":     true,
		"item_name":  it.Name(),
		"track_name": t.Name(),
		"uri":        uri,
	}, nil
}

// loadInstrumentOrEffect 同 loadBrowserItem，额外返回轨道上的设备数
func loadInstrumentOrEffect(_ context.Context, h host.Facade, p *Params) (any, error) {
	ti := p.Int("track_index", 0)
	uri := p.String("uri", "")
	if err := p.Err(); err != nil {
		return nil, err
	}
	t, it, err := loadItem(h, ti, uri)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"loaded":       true,
		"item_name":    it.Name(),
		"track_name":   t.Name(),
		"uri":          uri,
		"device_count": t.DeviceCount(),
	}, nil
}
