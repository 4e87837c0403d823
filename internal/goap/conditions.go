package goap

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	pabtpkg "github.com/joeycumines/go-pabt"
)

// DefaultExprCacheSize is the default maximum number of compiled expressions
// kept by the package-level program cache.
const DefaultExprCacheSize = 1000

var exprCache = NewExprLRUCache(DefaultExprCacheSize)

// SetExprCacheSize bounds the package-level program cache. Values below one
// are raised to one.
func SetExprCacheSize(size int) {
	exprCache.Resize(size)
}

// ExprLRUCache is a thread-safe LRU cache of compiled expr-lang programs,
// keyed by expression source.
type ExprLRUCache struct {
	mu        sync.Mutex
	cache     map[string]*list.Element
	lru       *list.List
	maxSize   int
	hitCount  int64
	missCount int64
}

type exprCacheEntry struct {
	expression string
	program    *vm.Program
}

// NewExprLRUCache creates a cache holding at most maxSize programs.
func NewExprLRUCache(maxSize int) *ExprLRUCache {
	if maxSize < 1 {
		maxSize = DefaultExprCacheSize
	}
	return &ExprLRUCache{
		cache:   make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached program for expression and marks it most recently
// used.
func (c *ExprLRUCache) Get(expression string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.cache[expression]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	c.lru.MoveToFront(elem)
	return elem.Value.(*exprCacheEntry).program, true
}

// Put stores program, evicting the least recently used entries when full.
func (c *ExprLRUCache) Put(expression string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[expression]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*exprCacheEntry).program = program
		return
	}
	c.cache[expression] = c.lru.PushFront(&exprCacheEntry{expression: expression, program: program})
	c.evictLocked()
}

// Resize changes the capacity, evicting immediately if it shrank.
func (c *ExprLRUCache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evictLocked()
}

func (c *ExprLRUCache) evictLocked() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.cache, elem.Value.(*exprCacheEntry).expression)
		c.lru.Remove(elem)
	}
}

// Len returns the number of cached programs.
func (c *ExprLRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the cache size and its hit/miss counters.
func (c *ExprLRUCache) Stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.hitCount, c.missCount
}

// exprEnv is the evaluation environment: the variable's current value is
// bound to the identifier "value".
type exprEnv struct {
	Value any `expr:"value"`
}

func compileExpr(expression string) (*vm.Program, error) {
	if program, ok := exprCache.Get(expression); ok {
		return program, nil
	}
	program, err := expr.Compile(expression,
		expr.Env(exprEnv{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	exprCache.Put(expression, program)
	return program, nil
}

// ExprCondition is a condition evaluated with expr-lang, e.g.
// `value >= 5 && value < 10`. The program is compiled once, at construction,
// and is safe to run from many goroutines.
type ExprCondition struct {
	key        any
	expression string
	program    *vm.Program
}

var _ pabtpkg.Condition = (*ExprCondition)(nil)

// NewExprCondition compiles expression for the variable named by key.
func NewExprCondition(key any, expression string) (*ExprCondition, error) {
	if expression == "" {
		return nil, fmt.Errorf("goap: empty expression for key %v", key)
	}
	program, err := compileExpr(expression)
	if err != nil {
		return nil, fmt.Errorf("goap: compile %q: %w", expression, err)
	}
	return &ExprCondition{key: key, expression: expression, program: program}, nil
}

// MustExprCondition is NewExprCondition that panics on error.
func MustExprCondition(key any, expression string) *ExprCondition {
	c, err := NewExprCondition(key, expression)
	if err != nil {
		panic(err)
	}
	return c
}

// Key implements pabtpkg.Condition.
func (c *ExprCondition) Key() any { return c.key }

// Expression returns the source expression.
func (c *ExprCondition) Expression() string { return c.expression }

// Match implements pabtpkg.Condition. Evaluation errors (e.g. comparing a
// missing variable) count as a non-match.
func (c *ExprCondition) Match(value any) bool {
	result, err := expr.Run(c.program, exprEnv{Value: value})
	if err != nil {
		slog.Debug("goap: expression evaluation failed",
			"key", c.key,
			"expression", c.expression,
			"value", value,
			"error", err)
		return false
	}
	b, _ := result.(bool)
	return b
}

// String implements fmt.Stringer.
func (c *ExprCondition) String() string {
	return fmt.Sprintf("%v: %s", c.key, c.expression)
}

// FuncCondition is a condition backed by a Go predicate.
type FuncCondition struct {
	key   any
	match func(value any) bool
}

var _ pabtpkg.Condition = (*FuncCondition)(nil)

// NewFuncCondition wraps match as a condition on key.
func NewFuncCondition(key any, match func(value any) bool) *FuncCondition {
	return &FuncCondition{key: key, match: match}
}

// Key implements pabtpkg.Condition.
func (c *FuncCondition) Key() any { return c.key }

// Match implements pabtpkg.Condition.
func (c *FuncCondition) Match(value any) bool {
	if c.match == nil {
		return false
	}
	return c.match(value)
}

// Equal is a condition satisfied when the variable equals expected.
func Equal(key, expected any) *FuncCondition {
	return NewFuncCondition(key, func(value any) bool { return value == expected })
}

// NotNil is a condition satisfied by any present, non-nil value.
func NotNil(key any) *FuncCondition {
	return NewFuncCondition(key, func(value any) bool { return value != nil })
}

// Effect is a key/value assignment applied when an action runs.
type Effect struct {
	key   any
	value any
}

var _ pabtpkg.Effect = (*Effect)(nil)

// Set builds an effect assigning value to key.
func Set(key, value any) *Effect {
	return &Effect{key: key, value: value}
}

// Key implements pabtpkg.Effect.
func (e *Effect) Key() any { return e.key }

// Value implements pabtpkg.Effect.
func (e *Effect) Value() any { return e.value }

// Effects is a convenience constructor for pabtpkg.Effects.
func Effects(effects ...*Effect) pabtpkg.Effects {
	out := make(pabtpkg.Effects, len(effects))
	for i, e := range effects {
		out[i] = e
	}
	return out
}

// keyString normalizes a condition or effect key to the blackboard key.
func keyString(key any) (string, error) {
	switch k := key.(type) {
	case nil:
		return "", fmt.Errorf("goap: variable key cannot be nil")
	case string:
		return k, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", k), nil
	case fmt.Stringer:
		return k.String(), nil
	default:
		return "", fmt.Errorf("goap: unsupported key type: %T", key)
	}
}
