package browse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legamerdc/liveremote/host"
	"github.com/legamerdc/liveremote/host/sim"
)

func newBrowser(t *testing.T) host.Browser {
	b, err := sim.New().Browser()
	require.NoError(t, err)
	return b
}

func TestFindByURI(t *testing.T) {
	b := newBrowser(t)
	it := FindByURI(b, "query:Sounds#Bass:Deep%20Sub%20Bass.adg")
	require.NotNil(t, it)
	assert.Equal(t, "Deep Sub Bass.adg", it.Name())
	assert.Equal(t, "Sounds/Bass/Deep Sub Bass.adg", ItemPath(it))

	assert.Nil(t, FindByURI(b, "query:Nope"))
	assert.Nil(t, FindByURI(b, ""))
}

// node 为测试用的最小浏览器条目
type node struct {
	name     string
	children []host.BrowserItem
	parent   host.BrowserItem
}

func (n *node) Name() string { return n.name }
func (n *node) URI() string { return "uri:" + n.name }
func (n *node) IsFolder() bool { return len(n.children) > 0 }
func (n *node) IsDevice() bool { return false }
func (n *node) IsLoadable() bool { return len(n.children) == 0 }
func (n *node) Children() []host.BrowserItem { return n.children }
func (n *node) Parent() host.BrowserItem { return n.parent }

type chainBrowser struct{ root *node }

func (c chainBrowser) Categories() []host.Category {
	return []host.Category{{Key: "instruments", Item: c.root}}
}
func (chainBrowser) Load(host.BrowserItem) error { return nil }

func chain(depth int) chainBrowser {
	root := &node{name: "n0"}
	cur := root
	for i := 1; i <= depth; i++ {
		next := &node{name: fmt.Sprintf("n%d", i), parent: cur}
		cur.children = []host.BrowserItem{next}
		cur = next
	}
	return chainBrowser{root: root}
}

func TestFindByURIDepthBound(t *testing.T) {
	b := chain(15)
	// 类目位于深度 1，n9 位于深度 10
	assert.NotNil(t, FindByURI(b, "uri:n9"))
	assert.Nil(t, FindByURI(b, "uri:n10"))
}

func TestItemPathDepthBound(t *testing.T) {
	b := chain(15)
	deepest := b.root
	for len(deepest.children) > 0 {
		deepest = deepest.children[0].(*node)
	}
	assert.Equal(t, "n6/n7/n8/n9/n10/n11/n12/n13/n14/n15", ItemPath(deepest))

	// 父链成环也必须终止
	a := &node{name: "a"}
	c := &node{name: "c", parent: a}
	a.parent = c
	assert.Equal(t, "a/c/a/c/a/c/a/c/a/c", ItemPath(c))
}

func TestCollectDepthBound(t *testing.T) {
	b := chain(10)
	items := Collect(b.root, CollectDepth)
	require.Len(t, items, CollectDepth)
	assert.Equal(t, "n5", items[len(items)-1].Name())
}

func TestSearch(t *testing.T) {
	b := newBrowser(t)
	res := Search(b, "BASS", "all", 50)
	require.Len(t, res, 2)
	assert.Equal(t, "Bass", res[0].Name())
	assert.Equal(t, "Deep Sub Bass.adg", res[1].Name())

	assert.Len(t, Search(b, "bass", "all", 1), 1)
	assert.Empty(t, Search(b, "bass", "instruments", 50))
	// 非标准类目不参与搜索
	assert.Empty(t, Search(b, "My Bass", "all", 50))
}

func TestNavigate(t *testing.T) {
	b := newBrowser(t)
	root, ok := Category(b, "SOUNDS")
	require.True(t, ok)

	it, err := Navigate(root, SplitPath("bass//deep sub bass.adg"))
	require.NoError(t, err)
	assert.Equal(t, "Deep Sub Bass.adg", it.Name())

	_, err = Navigate(root, []string{"Bass", "Missing"})
	assert.EqualError(t, err, "Path part 'Missing' not found")
}

func TestSelectAndDisplayName(t *testing.T) {
	b := newBrowser(t)
	assert.Len(t, Select(b, "all"), len(b.Categories()))
	assert.Len(t, Select(b, "drums"), 1)
	assert.Empty(t, Select(b, "nothing"))

	assert.Equal(t, "MIDI Effects", DisplayName("midi_effects"))
	assert.Equal(t, "User_library", DisplayName("user_library"))
	assert.Contains(t, Keys(b), "user_library")
}

func TestMatchesType(t *testing.T) {
	b := newBrowser(t)
	root, _ := Category(b, "instruments")
	op := root.Children()[0]
	assert.True(t, MatchesType(op, "all"))
	assert.True(t, MatchesType(op, "device"))
	assert.True(t, MatchesType(op, "loadable"))
	assert.False(t, MatchesType(op, "folder"))
	assert.True(t, MatchesType(root, "folder"))
}
