package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rushteam/hybridrec/core"
)

type funcNode struct {
	name string
	fn   func([]*core.Item) ([]*core.Item, error)
}

func (n *funcNode) Name() string { return n.name }
func (n *funcNode) Kind() Kind   { return KindFilter }
func (n *funcNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.fn(items)
}

func TestPipelineRun(t *testing.T) {
	appendItem := func(id string) Node {
		return &funcNode{name: "append." + id, fn: func(items []*core.Item) ([]*core.Item, error) {
			return append(items, core.NewItem(id)), nil
		}}
	}

	p := (&Pipeline{}).Append(appendItem("a"), appendItem("b"))
	out, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(core.IDs(out), ","); got != "a,b" {
		t.Errorf("Run() = %s, want a,b", got)
	}
}

func TestPipelineRunError(t *testing.T) {
	boom := errors.New("boom")
	p := &Pipeline{Nodes: []Node{&funcNode{name: "broken", fn: func([]*core.Item) ([]*core.Item, error) {
		return nil, boom
	}}}}
	_, err := p.Run(context.Background(), nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "filter broken") {
		t.Errorf("error %q should name the node", err)
	}
}

func TestPipelineRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	p := &Pipeline{Nodes: []Node{&funcNode{name: "n", fn: func(items []*core.Item) ([]*core.Item, error) {
		called = true
		return items, nil
	}}}}
	if _, err := p.Run(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v", err)
	}
	if called {
		t.Error("node must not run after cancellation")
	}
}
