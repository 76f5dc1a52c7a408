package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/classfile/classfiletest"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/mirror"
	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

func TestAdapt(t *testing.T) {
	a, err := mirror.NewAdapter()
	require.NoError(t, err)

	t.Run("generic class", func(t *testing.T) {
		d, err := a.Adapt(box().Build(t))
		require.NoError(t, err)
		assert.Equal(t, "p/Box", d.Name)
		assert.Equal(t, []string{"T"}, d.TypeParamNames())
		assert.Equal(t, "Ljava/lang/Object;", d.Super.Signature())
		assert.Empty(t, d.Interfaces)
		require.Len(t, d.Fields, 1)
		assert.Equal(t, "TT;", d.Fields[0].Type.Signature())
		assert.Equal(t, "p/Box", d.Fields[0].DeclaringType)
		require.Len(t, d.Constructors, 1)
		assert.True(t, d.Constructors[0].IsConstructor())
		require.Len(t, d.Methods, 2)
		assert.NotNil(t, d.Method("get", "()Ljava/lang/Object;"))
		assert.NotNil(t, d.Method("<init>", "()V"))
		assert.Nil(t, d.Method("get", "()Ljava/lang/String;"))
	})

	t.Run("object has no superclass", func(t *testing.T) {
		d, err := a.Adapt(javaLang()[0].Build(t))
		require.NoError(t, err)
		assert.Nil(t, d.Super)
	})

	t.Run("interface has no superclass", func(t *testing.T) {
		d, err := a.Adapt(classfiletest.New("p/I", classfiletest.Interface()).Build(t))
		require.NoError(t, err)
		assert.Nil(t, d.Super)
		assert.True(t, d.IsInterface())
	})

	t.Run("class initializer is skipped", func(t *testing.T) {
		d, err := a.Adapt(classfiletest.New("p/Init").
			Method(static, "<clinit>", "()V").
			Method(public, "<init>", "()V").Build(t))
		require.NoError(t, err)
		assert.Empty(t, d.Methods)
		assert.Len(t, d.Constructors, 1)
	})

	t.Run("inner constructor signature omits the outer instance", func(t *testing.T) {
		d, err := a.Adapt(classfiletest.New("p/Outer$Inner",
			classfiletest.InnerClass("p/Outer$Inner", "p/Outer", "Inner", public)).
			Method(public, "<init>", "(Lp/Outer;Ljava/util/List;)V",
				classfiletest.Signature("(Ljava/util/List<Ljava/lang/String;>;)V")).Build(t))
		require.NoError(t, err)
		ctor := d.Constructors[0]
		require.Len(t, ctor.Params, 2)
		assert.Equal(t, "Lp/Outer;", ctor.Params[0].Type.Signature())
		assert.Equal(t, "Ljava/util/List<Ljava/lang/String;>;", ctor.Params[1].Type.Signature())
		assert.Equal(t, "p/Outer", d.Enclosing)
		assert.True(t, d.CapturesEnclosing)
	})

	t.Run("signature throws win over the exceptions attribute", func(t *testing.T) {
		d, err := a.Adapt(classfiletest.New("p/Thrower",
			classfiletest.ClassSignature("<X:Ljava/lang/Exception;>Ljava/lang/Object;")).
			Method(public, "run", "()V",
				classfiletest.Signature("()V^TX;"),
				classfiletest.Throws("java/lang/Exception")).
			Method(public, "plain", "()V", classfiletest.Throws("java/io/IOException")).Build(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"TX;"}, signatures(d.Method("run", "()V").Throws))
		assert.Equal(t, []string{"Ljava/io/IOException;"}, signatures(d.Method("plain", "()V").Throws))
	})

	t.Run("parameter names need one per parameter", func(t *testing.T) {
		d, err := a.Adapt(classfiletest.New("p/Names").
			Method(public, "m", "(II)V", classfiletest.ParameterNames("only")).Build(t))
		require.NoError(t, err)
		params := d.Method("m", "(II)V").Params
		assert.Equal(t, "arg0", params[0].Name)
		assert.Equal(t, "arg1", params[1].Name)
		assert.False(t, params[0].NamePresent)
	})
}

func TestAdaptMalformed(t *testing.T) {
	const object = "Ljava/lang/Object;"
	tests := []struct {
		name  string
		class *classfiletest.Builder
	}{
		{
			name:  "interface extending a class",
			class: classfiletest.New("p/I", classfiletest.Interface(), classfiletest.Extends("p/Base")),
		},
		{
			name:  "missing super_class",
			class: classfiletest.New("p/Rootless", classfiletest.Extends("")),
		},
		{
			name: "signature interfaces disagree",
			class: classfiletest.New("p/C",
				classfiletest.Implements("p/A"),
				classfiletest.ClassSignature(object+"Lp/B;")),
		},
		{
			name: "signature lists fewer interfaces",
			class: classfiletest.New("p/C",
				classfiletest.Implements("p/A", "p/B"),
				classfiletest.ClassSignature(object+"Lp/A;")),
		},
		{
			name:  "field signature disagrees with the descriptor",
			class: classfiletest.New("p/F").Field(public, "f", "Ljava/util/List;", classfiletest.Signature("Ljava/util/Set<TT;>;")),
		},
		{
			name:  "bad field descriptor",
			class: classfiletest.New("p/F").Field(public, "f", "Q"),
		},
		{
			name:  "bad method signature",
			class: classfiletest.New("p/M").Method(public, "m", "()V", classfiletest.Signature("(")),
		},
		{
			name: "duplicate method type parameter",
			class: classfiletest.New("p/M").Method(public, "m", "()V",
				classfiletest.Signature("<A:"+object+"A:"+object+">()V")),
		},
		{
			name: "too many parameter annotation lists",
			class: classfiletest.New("p/M").Method(public, "m", "(I)V",
				classfiletest.ParameterAnnotations(nil, nil)),
		},
		{
			name: "string constant on an int field",
			class: classfiletest.New("p/K").
				Field(public|static|final, "K", "I", classfiletest.ConstantString("x")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hooked error
			a, err := mirror.NewAdapter(mirror.WithHook(func(name string, err error) {
				hooked = err
			}))
			require.NoError(t, err)

			d, err := a.Adapt(tt.class.Build(t))
			require.Error(t, err)
			assert.Nil(t, d)
			assert.True(t, mirrorerrors.IsMalformedDescriptor(err), "%v", err)
			assert.Equal(t, err, hooked)
		})
	}
}

func TestAdaptPolicy(t *testing.T) {
	parser, err := signature.NewParser(16)
	require.NoError(t, err)

	var names []string
	a, err := mirror.NewAdapter(
		mirror.WithParser(parser),
		mirror.WithPolicy(loader.DenyPackages("secret")),
		mirror.WithHook(func(name string, err error) { names = append(names, name) }),
	)
	require.NoError(t, err)

	_, err = a.Adapt(classfiletest.New("secret/Key").Build(t))
	assert.True(t, mirrorerrors.IsInaccessibleDescriptor(err))

	_, err = a.Adapt(box().Build(t))
	require.NoError(t, err)
	assert.Positive(t, parser.Len())

	_, err = a.Adapt(nil)
	assert.True(t, mirrorerrors.IsReflectiveOperation(err))
	assert.Equal(t, []string{"secret/Key", "p/Box", ""}, names)
}

func TestTypeDescriptorKinds(t *testing.T) {
	a, err := mirror.NewAdapter()
	require.NoError(t, err)
	d, err := a.Adapt(classfiletest.New("p/E", classfiletest.Flags(public|final|classfile.AccSuper|classfile.AccEnum)).Build(t))
	require.NoError(t, err)
	assert.True(t, d.IsEnum())
	assert.False(t, d.IsInterface())
	assert.False(t, d.IsAnnotation())
	assert.True(t, d.Modifiers.Has(mirror.Public, mirror.Final))
}
