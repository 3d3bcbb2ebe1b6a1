package buildctx

import (
	"context"
	"sync"

	"github.com/vk/contentgrid/internal/buildlog"
	"github.com/vk/contentgrid/internal/content"
)

// ErrNoActiveContext is returned by Active when no scope is open.
var ErrNoActiveContext = &content.Error{Kind: content.KindPipeline, Msg: "no active build context"}

// Stack is the set of open scopes of one logical task.
type Stack struct {
	mu      sync.Mutex
	entries []*Context
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Scope is the handle of one open build context.
type Scope struct {
	stack *Stack
	ctx   *Context
	once  sync.Once
}

// Context returns the build context opened by this scope.
func (sc *Scope) Context() *Context {
	return sc.ctx
}

// Release removes the scope from its stack. It is safe to call more than once.
func (sc *Scope) Release() {
	sc.once.Do(func() {
		sc.stack.remove(sc.ctx)
	})
}

// Begin opens a new innermost scope.
func (s *Stack) Begin(identity content.Identity, intermediateDir, outputDir string, logger buildlog.Logger, opts ...Option) (*Scope, error) {
	switch {
	case identity.SourceFilename == "":
		return nil, content.Argumentf("build context requires a source identity")
	case intermediateDir == "":
		return nil, content.Argumentf("build context for %s requires an intermediate directory", identity)
	case outputDir == "":
		return nil, content.Argumentf("build context for %s requires an output directory", identity)
	case logger == nil:
		return nil, content.Argumentf("build context for %s requires a logger", identity)
	}

	c := &Context{
		SourceIdentity:  identity,
		IntermediateDir: intermediateDir,
		OutputDir:       outputDir,
		Logger:          logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	s.mu.Lock()
	s.entries = append(s.entries, c)
	s.mu.Unlock()

	return &Scope{stack: s, ctx: c}, nil
}

// Active returns the innermost open context.
func (s *Stack) Active() (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, ErrNoActiveContext
	}
	return s.entries[len(s.entries)-1], nil
}

// Depth returns the number of open scopes.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Fork returns a copy of the stack for a newly spawned task.
func (s *Stack) Fork() *Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]*Context, len(s.entries))
	copy(entries, s.entries)
	return &Stack{entries: entries}
}

func (s *Stack) remove(c *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i] == c {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

type stackKey struct{}

// WithStack returns a context carrying s.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

// StackFrom returns the stack carried by ctx, or nil.
func StackFrom(ctx context.Context) *Stack {
	s, _ := ctx.Value(stackKey{}).(*Stack)
	return s
}

// Begin opens a scope on the stack carried by ctx, attaching a fresh stack
// when ctx has none. The returned context must be passed to everything that
// runs inside the scope.
func Begin(ctx context.Context, identity content.Identity, intermediateDir, outputDir string, logger buildlog.Logger, opts ...Option) (context.Context, *Scope, error) {
	s := StackFrom(ctx)
	if s == nil {
		s = NewStack()
		ctx = WithStack(ctx, s)
	}
	scope, err := s.Begin(identity, intermediateDir, outputDir, logger, opts...)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, scope, nil
}

// Active returns the innermost context open in ctx's task.
func Active(ctx context.Context) (*Context, error) {
	s := StackFrom(ctx)
	if s == nil {
		return nil, ErrNoActiveContext
	}
	return s.Active()
}

// Spawn prepares ctx for a new logical task: the child gets a snapshot of the
// parent's stack.
func Spawn(ctx context.Context) context.Context {
	if s := StackFrom(ctx); s != nil {
		return WithStack(ctx, s.Fork())
	}
	return WithStack(ctx, NewStack())
}
