package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/mirror/pkg/classfile/classfiletest"
	"github.com/daimatz/mirror/pkg/mirror"
	"github.com/daimatz/mirror/pkg/signature"
)

// nesting builds
//
//	class Outer<T> {
//	  class Inner { T item; }
//	  <U> void make() { class Local { U seed; T outer; } }
//	}
func nesting() []*classfiletest.Builder {
	const object = "Ljava/lang/Object;"
	inner := classfiletest.InnerClass("p/Outer$Inner", "p/Outer", "Inner", public)
	local := classfiletest.InnerClass("p/Outer$1Local", "", "Local", 0)
	return []*classfiletest.Builder{
		classfiletest.New("p/Outer", classfiletest.ClassSignature("<T:"+object+">"+object), inner).
			Method(public, "make", "()V", classfiletest.Signature("<U:"+object+">()V")),
		classfiletest.New("p/Outer$Inner", inner).
			Field(public, "item", object, classfiletest.Signature("TT;")),
		classfiletest.New("p/Outer$1Local", local, classfiletest.EnclosingMethod("p/Outer", "make", "()V")).
			Field(0, "seed", object, classfiletest.Signature("TU;")).
			Field(0, "outer", object, classfiletest.Signature("TT;")),
	}
}

func TestEnclosingScopes(t *testing.T) {
	f := newFixture(t, nesting())

	t.Run("inner class sees the outer variable", func(t *testing.T) {
		tm := f.reflect(t, "p/Outer$Inner", mirror.Bind("T", stringType))
		item, ok := tm.FindField("item")
		require.True(t, ok)
		assert.Equal(t, "Ljava/lang/String;", item.Type().Signature())

		enclosing, ok := tm.EnclosingType()
		require.True(t, ok)
		assert.Equal(t, "p/Outer", enclosing)
		assert.Equal(t, "Inner", tm.SimpleName())

		open := f.reflect(t, "p/Outer$Inner", mirror.NoBindings)
		item, ok = open.FindField("item")
		require.True(t, ok)
		assert.Equal(t, signature.KindTypeVar, item.Type().Kind)
	})

	t.Run("parameterized owner binds the inner class", func(t *testing.T) {
		ref := &signature.TypeRef{
			Kind:  signature.KindClass,
			Name:  "p/Outer$Inner",
			Owner: signature.Class("p/Outer", stringType),
		}
		tm, err := f.mirror.ReflectType(ref)
		require.NoError(t, err)
		assert.Same(t, f.reflect(t, "p/Outer$Inner", mirror.Bind("T", stringType)), tm)
	})

	t.Run("outer lists member classes", func(t *testing.T) {
		outer := f.reflect(t, "p/Outer", mirror.NoBindings)
		assert.Equal(t, []string{"p/Outer$Inner"}, outer.InnerTypes())
		_, ok := outer.EnclosingType()
		assert.False(t, ok)
	})

	t.Run("local class sees method and class variables", func(t *testing.T) {
		tm := f.reflect(t, "p/Outer$1Local", mirror.Bind("T", stringType))
		seed, ok := tm.FindField("seed")
		require.True(t, ok)
		assert.Equal(t, "TU;", seed.Type().Signature())
		outer, ok := tm.FindField("outer")
		require.True(t, ok)
		assert.Equal(t, "Ljava/lang/String;", outer.Type().Signature())

		enclosing, ok := tm.EnclosingType()
		require.True(t, ok)
		assert.Equal(t, "p/Outer", enclosing)
	})
}

func TestMethodTypeParameters(t *testing.T) {
	const object = "Ljava/lang/Object;"
	f := newFixture(t, []*classfiletest.Builder{
		classfiletest.New("p/Shadow", classfiletest.ClassSignature("<T:"+object+">"+object)).
			Field(public, "f", object, classfiletest.Signature("TT;")).
			Method(public, "id", "(Ljava/lang/Object;)Ljava/lang/Object;",
				classfiletest.Signature("<T:"+object+">(TT;)TT;")).
			Method(public, "max", "(Ljava/util/List;)Ljava/lang/Comparable;",
				classfiletest.Signature("<S::Ljava/lang/Comparable<-TS;>;>(Ljava/util/List<+TS;>;)TS;")),
		classfiletest.New("p/Sorted", classfiletest.ClassSignature("<T::Ljava/lang/Comparable<TT;>;>"+object)),
	})

	t.Run("method variable shadows the class binding", func(t *testing.T) {
		tm := f.reflect(t, "p/Shadow", mirror.Bind("T", stringType))
		field, ok := tm.FindField("f")
		require.True(t, ok)
		assert.Equal(t, "Ljava/lang/String;", field.Type().Signature())

		id, ok := tm.FindMethod("id", "")
		require.True(t, ok)
		assert.Equal(t, "TT;", id.ReturnType().Signature())
		assert.Equal(t, []string{"TT;"}, signatures(id.ParameterTypes()))
		params := id.TypeParameters()
		require.Len(t, params, 1)
		assert.Equal(t, "T", params[0].Name)
	})

	t.Run("bounds and wildcards", func(t *testing.T) {
		tm := f.reflect(t, "p/Shadow", mirror.NoBindings)
		largest, ok := tm.FindMethod("max", "")
		require.True(t, ok)
		params := largest.TypeParameters()
		require.Len(t, params, 1)
		assert.Equal(t, []string{"Ljava/lang/Comparable<-TS;>;"}, signatures(params[0].Bounds))
		assert.Equal(t, "S extends java.lang.Comparable<? super S>", params[0].String())
		assert.Equal(t, []string{"Ljava/util/List<+TS;>;"}, signatures(largest.ParameterTypes()))
		assert.Equal(t, "public <S extends java.lang.Comparable<? super S>> S p.Shadow.max(java.util.List<? extends S>)", largest.String())
	})

	t.Run("class bounds follow the bindings", func(t *testing.T) {
		open := f.reflect(t, "p/Sorted", mirror.NoBindings)
		assert.Equal(t, []string{"Ljava/lang/Comparable<TT;>;"}, signatures(open.TypeParameters()[0].Bounds))

		bound := f.reflect(t, "p/Sorted", mirror.Bind("T", stringType))
		assert.Equal(t, []string{"Ljava/lang/Comparable<Ljava/lang/String;>;"}, signatures(bound.TypeParameters()[0].Bounds))
	})
}
