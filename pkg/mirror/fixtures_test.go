package mirror_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/classfile/classfiletest"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/mirror"
	"github.com/daimatz/mirror/pkg/signature"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	public   = classfile.AccPublic
	private  = classfile.AccPrivate
	static   = classfile.AccStatic
	abstract = classfile.AccAbstract
	final    = classfile.AccFinal
)

var stringType = signature.Class("java/lang/String")

// javaLang returns the few platform classes the fixtures refer to.
func javaLang() []*classfiletest.Builder {
	return []*classfiletest.Builder{
		classfiletest.New(signature.ObjectName, classfiletest.Extends("")).
			Method(public, "<init>", "()V").
			Method(public, "hashCode", "()I").
			Method(public, "toString", "()Ljava/lang/String;").
			Method(classfile.AccProtected, "clone", "()Ljava/lang/Object;"),
		classfiletest.New("java/lang/String", classfiletest.Flags(public|final|classfile.AccSuper)),
		classfiletest.New("java/lang/Number", classfiletest.Flags(public|abstract|classfile.AccSuper)),
		classfiletest.New("java/lang/Integer", classfiletest.Extends("java/lang/Number")),
	}
}

// box is the classic Box<T>: one field and an accessor pair of
// type T.
func box() *classfiletest.Builder {
	return classfiletest.New("p/Box", classfiletest.ClassSignature("<T:Ljava/lang/Object;>Ljava/lang/Object;")).
		Field(private, "value", "Ljava/lang/Object;", classfiletest.Signature("TT;")).
		Method(public, "<init>", "()V").
		Method(public, "get", "()Ljava/lang/Object;", classfiletest.Signature("()TT;")).
		Method(public, "set", "(Ljava/lang/Object;)V", classfiletest.Signature("(TT;)V"), classfiletest.ParameterNames("value"))
}

type fixture struct {
	loader *loader.MemoryClassLoader
	mirror *mirror.Mirror

	mu      sync.Mutex
	adapted map[string]int
}

func newFixture(t *testing.T, classes []*classfiletest.Builder, opts ...mirror.Option) *fixture {
	t.Helper()
	f := &fixture{
		loader:  loader.NewMemoryClassLoader(nil),
		adapted: make(map[string]int),
	}
	for _, b := range append(javaLang(), classes...) {
		f.define(t, b)
	}
	opts = append([]mirror.Option{
		// Evictions log from the cleanup goroutine, possibly after the test.
		mirror.WithLogger(zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))),
		mirror.WithAdaptHook(func(name string, err error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.adapted[name]++
		}),
	}, opts...)
	m, err := mirror.New(f.loader, opts...)
	require.NoError(t, err)
	f.mirror = m
	return f
}

func (f *fixture) define(t *testing.T, b *classfiletest.Builder) {
	t.Helper()
	_, err := f.loader.DefineBytes(b.Bytes())
	require.NoError(t, err)
}

func (f *fixture) adaptCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adapted[name]
}

func (f *fixture) reflect(t *testing.T, name string, b mirror.Bindings) *mirror.TypeMirror {
	t.Helper()
	tm, err := f.mirror.Reflect(name, b)
	require.NoError(t, err)
	return tm
}

func signatures(refs []*signature.TypeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Signature()
	}
	return out
}
