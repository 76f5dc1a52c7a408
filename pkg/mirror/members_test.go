package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/classfile/classfiletest"
	"github.com/daimatz/mirror/pkg/mirror"
	"github.com/daimatz/mirror/pkg/signature"
)

func service() []*classfiletest.Builder {
	marker := classfiletest.Annotation{Type: "p/Marker"}
	return []*classfiletest.Builder{
		classfiletest.New("p/Marker", classfiletest.Flags(public|classfile.AccInterface|abstract|classfile.AccAnnotation)),
		classfiletest.New("p/Service",
			classfiletest.ClassAnnotation(classfiletest.Annotation{
				Type: "p/Marker",
				Elements: []classfiletest.Element{
					{Name: "value", Value: classfiletest.String("svc")},
					{Name: "n", Value: classfiletest.Int(3)},
					{Name: "level", Value: classfiletest.Enum("p/Level", "HIGH")},
					{Name: "type", Value: classfiletest.Class("Ljava/lang/String;")},
					{Name: "tags", Value: classfiletest.Array(classfiletest.String("a"), classfiletest.String("b"))},
					{Name: "nested", Value: classfiletest.Nested(classfiletest.Annotation{Type: "p/Tag"})},
				},
			})).
			Field(public|static|final, "LIMIT", "I", classfiletest.ConstantInt(10)).
			Field(public|static|final, "NAME", "Ljava/lang/String;", classfiletest.ConstantString("svc")).
			Field(public|static|final, "FLAG", "Z", classfiletest.ConstantInt(1)).
			Field(public|static|final, "INITIAL", "C", classfiletest.ConstantInt('x')).
			Field(private|classfile.AccTransient, "cache", "Ljava/lang/Object;", classfiletest.Annotated(marker)).
			Method(public, "<init>", "(Ljava/lang/String;I)V",
				classfiletest.ParameterNames("name", "size"),
				classfiletest.ParameterAnnotations(nil, []classfiletest.Annotation{marker})).
			Method(public|classfile.AccVarargs, "call", "([Ljava/lang/String;)V",
				classfiletest.Throws("java/io/IOException"),
				classfiletest.Annotated(marker)).
			Method(public|static|classfile.AccSynchronized, "shared", "()V"),
		classfiletest.New("p/Greeter", classfiletest.Interface()).
			Method(public, "greet", "()V").
			Method(public|abstract, "name", "()Ljava/lang/String;").
			Method(public|static, "create", "()Lp/Greeter;"),
		classfiletest.New("p/Level", classfiletest.Flags(public|final|classfile.AccSuper|classfile.AccEnum)),
		classfiletest.New("p/Point", classfiletest.Flags(public|final|classfile.AccSuper), classfiletest.Record()),
	}
}

func TestTypeFacts(t *testing.T) {
	f := newFixture(t, service())

	tests := []struct {
		name                                string
		iface, annotation, enum, record, cl bool
	}{
		{name: "p/Service", cl: true},
		{name: "p/Greeter", iface: true},
		{name: "p/Marker", iface: true, annotation: true},
		{name: "p/Level", cl: true, enum: true},
		{name: "p/Point", cl: true, record: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := f.reflect(t, tt.name, mirror.NoBindings)
			assert.Equal(t, tt.iface, tm.IsInterface())
			assert.Equal(t, tt.annotation, tm.IsAnnotation())
			assert.Equal(t, tt.enum, tm.IsEnum())
			assert.Equal(t, tt.record, tm.IsRecord())
			assert.Equal(t, tt.cl, tm.IsClass())
		})
	}

	svc := f.reflect(t, "p/Service", mirror.NoBindings)
	assert.Equal(t, "p.Service", svc.DottedName())
	assert.Equal(t, "Service", svc.SimpleName())
	assert.Equal(t, "p", svc.PackageName())
	assert.True(t, svc.Modifiers().Has(mirror.Public))
	assert.Empty(t, svc.TypeParameters())
	assert.Equal(t, "Lp/Service;", svc.Type().Signature())
}

func TestAnnotations(t *testing.T) {
	f := newFixture(t, service())
	svc := f.reflect(t, "p/Service", mirror.NoBindings)

	assert.Equal(t, []string{"p/Marker"}, svc.Annotations().Types())
	a, ok := svc.Annotation("p/Marker")
	require.True(t, ok)
	assert.True(t, a.Visible)

	s, ok := a.Str("value")
	require.True(t, ok)
	assert.Equal(t, "svc", s)
	n, ok := a.Int("n")
	require.True(t, ok)
	assert.Equal(t, int32(3), n)
	_, ok = a.Char("n")
	assert.False(t, ok, "int is not char")
	_, ok = a.Long("n")
	assert.False(t, ok)

	level, ok := a.Enum("level")
	require.True(t, ok)
	assert.Equal(t, mirror.EnumConstant{Type: "p/Level", Name: "HIGH"}, level)
	class, ok := a.Class("type")
	require.True(t, ok)
	assert.Equal(t, "java/lang/String", class.Name)
	tags, ok := a.Strings("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, tags)
	single, ok := a.Strings("value")
	require.True(t, ok)
	assert.Equal(t, []string{"svc"}, single)
	nested, ok := a.Nested("nested")
	require.True(t, ok)
	assert.Equal(t, "p/Tag", nested.Type)

	_, ok = a.Str("missing")
	assert.False(t, ok)
	assert.Equal(t,
		`@p.Marker(value="svc", n=3, level=p.Level.HIGH, type=java.lang.String.class, tags={"a", "b"}, nested=@p.Tag)`,
		a.String())

	cache, ok := svc.FindField("cache")
	require.True(t, ok)
	assert.True(t, cache.Annotations().Has("p/Marker"))
	call, ok := svc.FindMethod("call", "")
	require.True(t, ok)
	_, ok = call.Annotation("p/Marker")
	assert.True(t, ok)
}

func TestFields(t *testing.T) {
	f := newFixture(t, service())
	svc := f.reflect(t, "p/Service", mirror.NoBindings)

	tests := []struct {
		name string
		want any
	}{
		{"LIMIT", int32(10)},
		{"NAME", "svc"},
		{"FLAG", true},
		{"INITIAL", 'x'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, ok := svc.FindField(tt.name)
			require.True(t, ok)
			v, ok := field.ConstantValue()
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.True(t, field.Modifiers().Has(mirror.Public, mirror.Static, mirror.Final))
		})
	}

	limit, _ := svc.FindField("LIMIT")
	assert.Equal(t, "public static final int p.Service.LIMIT", limit.String())
	assert.Equal(t, mirror.MemberField, limit.Kind())
	assert.Equal(t, "I", limit.Descriptor())

	cache, ok := svc.FindField("cache")
	require.True(t, ok)
	_, ok = cache.ConstantValue()
	assert.False(t, ok)
	assert.Equal(t, "private transient", cache.Modifiers().String())
	assert.Equal(t, uint16(private|classfile.AccTransient), cache.AccessFlags())

	_, ok = svc.FindField("missing")
	assert.False(t, ok)
}

func TestExecutables(t *testing.T) {
	f := newFixture(t, service())
	svc := f.reflect(t, "p/Service", mirror.NoBindings)

	t.Run("constructor", func(t *testing.T) {
		require.Len(t, svc.Constructors(), 1)
		ctor, ok := svc.FindConstructor("(Ljava/lang/String;I)V")
		require.True(t, ok)
		assert.Equal(t, mirror.MemberConstructor, ctor.Kind())
		assert.Equal(t, "<init>", ctor.Name())
		assert.Equal(t, "public p.Service(java.lang.String, int)", ctor.String())

		params := ctor.Parameters()
		require.Len(t, params, 2)
		assert.Equal(t, "name", params[0].Name())
		assert.Equal(t, 0, params[0].Index())
		assert.Empty(t, params[0].Annotations())
		assert.Equal(t, "size", params[1].Name())
		assert.Equal(t, signature.Primitive('I'), params[1].Type())
		_, ok = params[1].Annotation("p/Marker")
		assert.True(t, ok)

		// Constructors are not methods.
		_, ok = svc.FindMethod("<init>", "")
		assert.False(t, ok)
	})

	t.Run("method", func(t *testing.T) {
		call, ok := svc.FindMethod("call", "")
		require.True(t, ok)
		assert.True(t, call.IsVarargs())
		assert.False(t, call.IsSynthetic())
		assert.True(t, call.ReturnType().IsVoid())
		assert.Equal(t, []string{"Ljava/io/IOException;"}, signatures(call.ExceptionTypes()))

		params := call.Parameters()
		require.Len(t, params, 1)
		assert.Equal(t, "arg0", params[0].Name())
		assert.False(t, params[0].NamePresent())
		assert.Equal(t, "java.lang.String[] arg0", params[0].String())
		assert.Equal(t, "public void p.Service.call(java.lang.String[])", call.String())

		shared, ok := svc.FindMethod("shared", "()V")
		require.True(t, ok)
		assert.True(t, shared.IsStatic())
		assert.Equal(t, []mirror.Modifier{mirror.Public, mirror.Static, mirror.Synchronized}, shared.Modifiers().List())
	})

	t.Run("interface methods", func(t *testing.T) {
		greeter := f.reflect(t, "p/Greeter", mirror.NoBindings)
		greet, ok := greeter.FindMethod("greet", "")
		require.True(t, ok)
		assert.True(t, greet.IsDefault())
		assert.Equal(t, "public default void p.Greeter.greet()", greet.String())

		name, ok := greeter.FindMethod("name", "")
		require.True(t, ok)
		assert.False(t, name.IsDefault())
		assert.True(t, name.IsAbstract())

		create, ok := greeter.FindMethod("create", "")
		require.True(t, ok)
		assert.False(t, create.IsDefault())
		assert.True(t, create.IsStatic())
	})
}
