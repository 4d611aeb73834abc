package topics

import (
	"sort"
	"strings"

	"github.com/mqttscope/mqttscope/internal/broker"
)

// nodeMessageCap bounds the per-topic ring of retained recent messages.
const nodeMessageCap = 100

// Node is one `/`-separated segment in the topic namespace. A node exists iff
// at least one message was routed to it or to one of its descendants.
type Node struct {
	Name     string
	FullPath string
	Children map[string]*Node

	// Messages holds the most recent messages published directly on this
	// exact topic, oldest first, capped at nodeMessageCap.
	Messages []broker.Message

	// MessageCount is cumulative and never reset; it keeps growing after
	// the ring starts evicting.
	MessageCount int

	// Expanded is a UI visibility flag; it has no effect on storage.
	Expanded bool
}

func newNode(name, fullPath string) *Node {
	return &Node{
		Name:     name,
		FullPath: fullPath,
		Children: make(map[string]*Node),
	}
}

// LastMessage returns the most recently inserted message on this node.
func (n *Node) LastMessage() (broker.Message, bool) {
	if len(n.Messages) == 0 {
		return broker.Message{}, false
	}
	return n.Messages[len(n.Messages)-1], true
}

// SortedChildren returns the child nodes in lexicographic name order.
func (n *Node) SortedChildren() []*Node {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	children := make([]*Node, 0, len(names))
	for _, name := range names {
		children = append(children, n.Children[name])
	}
	return children
}

// Tree indexes received messages by topic segment. It is exclusively owned
// by the foreground loop; workers never touch it.
type Tree struct {
	Root          *Node
	TotalMessages int
	TotalTopics   int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Root: newNode("", "")}
}

// Insert routes the message to the node named by its topic, creating path
// nodes as needed. Empty segments are literal path components, so "a//b" is
// three segments deep. Insert never fails.
//
// TotalTopics is recomputed by a full traversal on every insert. That is an
// accepted cost; it keeps the "distinct topics with at least one message"
// semantics trivially correct.
func (t *Tree) Insert(msg broker.Message) {
	node := t.Root
	for i, part := range strings.Split(msg.Topic, "/") {
		child, ok := node.Children[part]
		if !ok {
			// Paths join positionally: a leading empty segment still
			// contributes its separator, so "/a" never aliases "a".
			fullPath := part
			if i > 0 {
				fullPath = node.FullPath + "/" + part
			}
			child = newNode(part, fullPath)
			node.Children[part] = child
		}
		node = child
	}
	node.Messages = append(node.Messages, msg)
	if len(node.Messages) > nodeMessageCap {
		node.Messages = node.Messages[1:]
	}
	node.MessageCount++
	t.TotalMessages++
	t.TotalTopics = countTopics(t.Root)
}

// Latest returns the most recent message published directly on topic.
func (t *Tree) Latest(topic string) (broker.Message, bool) {
	node, ok := t.lookup(topic)
	if !ok {
		return broker.Message{}, false
	}
	return node.LastMessage()
}

// Expand marks the node visible-with-children. No-op when the node does not
// exist.
func (t *Tree) Expand(topic string) {
	if node, ok := t.lookup(topic); ok {
		node.Expanded = true
	}
}

// Collapse clears the node's expanded flag. No-op when the node does not
// exist.
func (t *Tree) Collapse(topic string) {
	if node, ok := t.lookup(topic); ok {
		node.Expanded = false
	}
}

// Clear discards every node and counter.
func (t *Tree) Clear() {
	t.Root = newNode("", "")
	t.TotalMessages = 0
	t.TotalTopics = 0
}

// Topics returns the sorted full paths of every topic with at least one
// message.
func (t *Tree) Topics() []string {
	var paths []string
	collectTopics(t.Root, &paths)
	sort.Strings(paths)
	return paths
}

func (t *Tree) lookup(topic string) (*Node, bool) {
	node := t.Root
	for _, part := range strings.Split(topic, "/") {
		child, ok := node.Children[part]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

func countTopics(node *Node) int {
	count := 0
	if len(node.Messages) > 0 {
		count = 1
	}
	for _, child := range node.Children {
		count += countTopics(child)
	}
	return count
}

func collectTopics(node *Node, paths *[]string) {
	if len(node.Messages) > 0 {
		*paths = append(*paths, node.FullPath)
	}
	for _, child := range node.Children {
		collectTopics(child, paths)
	}
}
