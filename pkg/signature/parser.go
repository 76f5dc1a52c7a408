package signature

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed strings a Parser remembers when
// no size is given.
const DefaultCacheSize = 4096

type grammar uint8

const (
	fieldDescriptor grammar = iota
	methodDescriptor
	fieldSignature
	methodSignature
	classSignature
)

type cacheKey struct {
	grammar grammar
	input   string
}

// Parser memoizes parse results. The same descriptor strings recur across
// every class of a program, so mirrors share one Parser per scope. Results
// are shared between callers and must not be modified. Failed parses are
// not cached. A Parser is safe for concurrent use.
type Parser struct {
	cache *lru.Cache[cacheKey, any]
}

// NewParser returns a Parser remembering up to size results.
func NewParser(size int) (*Parser, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, any](size)
	if err != nil {
		return nil, err
	}
	return &Parser{cache: c}, nil
}

func memo[T any](p *Parser, g grammar, s string, parse func(string) (T, error)) (T, error) {
	key := cacheKey{grammar: g, input: s}
	if v, ok := p.cache.Get(key); ok {
		return v.(T), nil
	}
	v, err := parse(s)
	if err != nil {
		return v, err
	}
	// Concurrent misses keep the first stored result.
	if prev, ok, _ := p.cache.PeekOrAdd(key, v); ok {
		return prev.(T), nil
	}
	return v, nil
}

// FieldDescriptor is the memoized ParseFieldDescriptor.
func (p *Parser) FieldDescriptor(s string) (*TypeRef, error) {
	return memo(p, fieldDescriptor, s, ParseFieldDescriptor)
}

// MethodDescriptor is the memoized ParseMethodDescriptor.
func (p *Parser) MethodDescriptor(s string) (*MethodType, error) {
	return memo(p, methodDescriptor, s, ParseMethodDescriptor)
}

// FieldSignature is the memoized ParseFieldSignature.
func (p *Parser) FieldSignature(s string) (*TypeRef, error) {
	return memo(p, fieldSignature, s, ParseFieldSignature)
}

// MethodSignature is the memoized ParseMethodSignature.
func (p *Parser) MethodSignature(s string) (*MethodType, error) {
	return memo(p, methodSignature, s, ParseMethodSignature)
}

// ClassSignature is the memoized ParseClassSignature.
func (p *Parser) ClassSignature(s string) (*ClassSignature, error) {
	return memo(p, classSignature, s, ParseClassSignature)
}

// Len returns the number of cached results.
func (p *Parser) Len() int {
	return p.cache.Len()
}
