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

// collections is a small generic hierarchy:
//
//	interface Collection<E> { int size(); boolean add(E) }
//	interface List<E> extends Collection<E> { E get(int) }
//	abstract class AbstractList<E> implements List<E> { int size() }
//	interface Named { String name() }
//	class StringList extends AbstractList<String> implements Named
func collections() []*classfiletest.Builder {
	const object = "Ljava/lang/Object;"
	return []*classfiletest.Builder{
		classfiletest.New("p/Collection",
			classfiletest.Interface(),
			classfiletest.ClassSignature("<E:"+object+">"+object)).
			Method(public|abstract, "size", "()I").
			Method(public|abstract, "add", "(Ljava/lang/Object;)Z", classfiletest.Signature("(TE;)Z")),
		classfiletest.New("p/List",
			classfiletest.Interface(),
			classfiletest.Implements("p/Collection"),
			classfiletest.ClassSignature("<E:"+object+">"+object+"Lp/Collection<TE;>;")).
			Method(public|abstract, "get", "(I)Ljava/lang/Object;", classfiletest.Signature("(I)TE;")),
		classfiletest.New("p/AbstractList",
			classfiletest.Flags(public|abstract|classfile.AccSuper),
			classfiletest.Implements("p/List"),
			classfiletest.ClassSignature("<E:"+object+">"+object+"Lp/List<TE;>;")).
			Method(public, "<init>", "()V").
			Method(public, "size", "()I"),
		classfiletest.New("p/Named", classfiletest.Interface()).
			Method(public|abstract, "name", "()Ljava/lang/String;"),
		classfiletest.New("p/StringList",
			classfiletest.Extends("p/AbstractList"),
			classfiletest.Implements("p/Named"),
			classfiletest.ClassSignature("Lp/AbstractList<Ljava/lang/String;>;Lp/Named;")).
			Method(public, "<init>", "()V").
			Method(public, "get", "(I)Ljava/lang/String;").
			Method(public|classfile.AccBridge|classfile.AccSynthetic, "get", "(I)Ljava/lang/Object;").
			Method(public, "add", "(Ljava/lang/String;)Z").
			Method(public, "name", "()Ljava/lang/String;"),
	}
}

func TestSupertypes(t *testing.T) {
	f := newFixture(t, collections())

	t.Run("substituted through the hierarchy", func(t *testing.T) {
		tm := f.reflect(t, "p/StringList", mirror.NoBindings)
		want := []string{
			"Lp/AbstractList<Ljava/lang/String;>;",
			"Ljava/lang/Object;",
			"Lp/Named;",
			"Lp/List<Ljava/lang/String;>;",
			"Lp/Collection<Ljava/lang/String;>;",
		}
		assert.Equal(t, want, signatures(tm.Supertypes()))

		super, ok := tm.Superclass()
		require.True(t, ok)
		assert.Equal(t, "Lp/AbstractList<Ljava/lang/String;>;", super.Signature())
		assert.Equal(t, []string{"Lp/Named;"}, signatures(tm.Interfaces()))

		d, err := f.mirror.Resolver().Describe("p/StringList")
		require.NoError(t, err)
		sts, err := f.mirror.Resolver().Supertypes(d, mirror.NoBindings)
		require.NoError(t, err)
		assert.Equal(t, want, signatures(sts))
	})

	t.Run("under bindings", func(t *testing.T) {
		tm := f.reflect(t, "p/AbstractList", mirror.Bind("E", signature.Class("java/lang/Integer")))
		assert.Equal(t, []string{
			"Ljava/lang/Object;",
			"Lp/List<Ljava/lang/Integer;>;",
			"Lp/Collection<Ljava/lang/Integer;>;",
		}, signatures(tm.Supertypes()))
	})

	t.Run("open variables stay open", func(t *testing.T) {
		tm := f.reflect(t, "p/List", mirror.NoBindings)
		assert.Equal(t, []string{"Lp/Collection<TE;>;"}, signatures(tm.Supertypes()))
		_, ok := tm.Superclass()
		assert.False(t, ok)
	})

	t.Run("object has none", func(t *testing.T) {
		tm := f.reflect(t, signature.ObjectName, mirror.NoBindings)
		assert.Empty(t, tm.Supertypes())
		_, ok := tm.Superclass()
		assert.False(t, ok)
	})
}

func TestIsAssignableFrom(t *testing.T) {
	f := newFixture(t, collections())
	object := f.reflect(t, signature.ObjectName, mirror.NoBindings)
	collection := f.reflect(t, "p/Collection", mirror.NoBindings)
	named := f.reflect(t, "p/Named", mirror.NoBindings)
	list := f.reflect(t, "p/StringList", mirror.NoBindings)

	assert.True(t, collection.IsAssignableFrom(list))
	assert.True(t, named.IsAssignableFrom(list))
	assert.True(t, object.IsAssignableFrom(named))
	assert.True(t, list.IsAssignableFrom(list))
	assert.False(t, list.IsAssignableFrom(collection))
	assert.False(t, named.IsAssignableFrom(collection))
	assert.False(t, list.IsAssignableFrom(nil))

	sub, err := f.mirror.Resolver().IsSubtype("p/StringList", "p/Collection")
	require.NoError(t, err)
	assert.True(t, sub)
	sub, err = f.mirror.Resolver().IsSubtype("p/Collection", "p/List")
	require.NoError(t, err)
	assert.False(t, sub)
}

func TestOverrides(t *testing.T) {
	f := newFixture(t, collections())
	stringList := f.reflect(t, "p/StringList", mirror.NoBindings)
	list := f.reflect(t, "p/List", mirror.NoBindings)
	listGet, ok := list.FindMethod("get", "")
	require.True(t, ok)

	t.Run("generic method with bridge", func(t *testing.T) {
		get, ok := stringList.FindMethod("get", "(I)Ljava/lang/String;")
		require.True(t, ok)
		bridge, ok := stringList.FindMethod("get", "(I)Ljava/lang/Object;")
		require.True(t, ok)
		assert.True(t, bridge.IsBridge())

		for _, m := range []*mirror.MethodMirror{get, bridge} {
			ok, err := m.Overrides(listGet)
			require.NoError(t, err)
			assert.True(t, ok, m.Descriptor())
		}

		overridden, err := get.Overridden()
		require.NoError(t, err)
		require.Len(t, overridden, 1)
		assert.Equal(t, "p/List", overridden[0].DeclaringTypeName())
		// Seen through List<String>.
		assert.Equal(t, "Ljava/lang/String;", overridden[0].ReturnType().Signature())
	})

	t.Run("parameter of the bound type", func(t *testing.T) {
		add, ok := stringList.FindMethod("add", "")
		require.True(t, ok)
		overridden, err := add.Overridden()
		require.NoError(t, err)
		require.Len(t, overridden, 1)
		assert.Equal(t, "p/Collection", overridden[0].DeclaringTypeName())

		// The raw Collection.add takes Object, which add(String) does not.
		collection := f.reflect(t, "p/Collection", mirror.NoBindings)
		rawAdd, ok := collection.FindMethod("add", "")
		require.True(t, ok)
		ok, err = add.Overrides(rawAdd)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not itself", func(t *testing.T) {
		ok, err := listGet.Overrides(listGet)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = listGet.Overrides(nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("overriders of", func(t *testing.T) {
		named := f.reflect(t, "p/Named", mirror.NoBindings)
		got, err := f.mirror.OverridersOf(listGet, []*mirror.TypeMirror{stringList, named})
		require.NoError(t, err)
		var descs []string
		for _, m := range got {
			descs = append(descs, m.Descriptor())
		}
		assert.Equal(t, []string{"(I)Ljava/lang/String;", "(I)Ljava/lang/Object;"}, descs)
	})
}

func TestOverrideRules(t *testing.T) {
	f := newFixture(t, []*classfiletest.Builder{
		classfiletest.New("p/Shape").
			Method(public, "copy", "()Lp/Shape;").
			Method(public, "count", "()I").
			Method(public|static, "help", "()V").
			Method(private, "hide", "()V").
			Method(0, "pkg", "()V").
			Method(public, "area", "()D"),
		classfiletest.New("p/Circle", classfiletest.Extends("p/Shape")).
			Method(public, "copy", "()Lp/Circle;").
			Method(public, "count", "()J").
			Method(public|static, "help", "()V").
			Method(public, "hide", "()V").
			Method(public, "pkg", "()V").
			Method(public|static, "area", "()D"),
		classfiletest.New("q/Square", classfiletest.Extends("p/Shape")).
			Method(public, "copy", "()Ljava/lang/String;").
			Method(public, "pkg", "()V").
			Method(public, "area", "()D"),
	})
	shape := f.reflect(t, "p/Shape", mirror.NoBindings)
	circle := f.reflect(t, "p/Circle", mirror.NoBindings)
	square := f.reflect(t, "q/Square", mirror.NoBindings)

	tests := []struct {
		name string
		sub  *mirror.TypeMirror
		meth string
		want bool
	}{
		{"covariant return", circle, "copy", true},
		{"unrelated return", square, "copy", false},
		{"primitive return differs", circle, "count", false},
		{"static hides", circle, "help", false},
		{"private is not inherited", circle, "hide", false},
		{"package-private in the same package", circle, "pkg", true},
		{"package-private from another package", square, "pkg", false},
		{"static cannot override", circle, "area", false},
		{"plain override", square, "area", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, ok := tt.sub.FindMethod(tt.meth, "")
			require.True(t, ok)
			super, ok := shape.FindMethod(tt.meth, "")
			require.True(t, ok)
			got, err := sub.Overrides(super)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInheritedMethods(t *testing.T) {
	f := newFixture(t, []*classfiletest.Builder{
		classfiletest.New("p/Runner", classfiletest.Interface()).
			Method(public|abstract, "run", "()V"),
		classfiletest.New("p/Walker", classfiletest.Interface()).
			Method(public|abstract, "run", "()V").
			Method(public|static, "of", "()Lp/Walker;"),
		classfiletest.New("p/FastRunner", classfiletest.Interface(), classfiletest.Implements("p/Runner")).
			Method(public|abstract, "run", "()V"),
		classfiletest.New("p/Both", classfiletest.Flags(public|abstract|classfile.AccSuper),
			classfiletest.Implements("p/Runner", "p/Walker")),
		classfiletest.New("p/Sprinter", classfiletest.Flags(public|abstract|classfile.AccSuper),
			classfiletest.Implements("p/FastRunner", "p/Runner")),
		classfiletest.New("p/Engine").
			Method(public, "run", "()V"),
		classfiletest.New("p/Car", classfiletest.Extends("p/Engine"), classfiletest.Implements("p/Runner")),
		classfiletest.New("p/Impl", classfiletest.Implements("p/Runner", "p/Walker")).
			Method(public, "run", "()V"),
	})

	inherited := func(t *testing.T, name string) map[string]*mirror.InheritedMethod {
		t.Helper()
		ims, err := f.reflect(t, name, mirror.NoBindings).InheritedMethods()
		require.NoError(t, err)
		out := make(map[string]*mirror.InheritedMethod, len(ims))
		for _, im := range ims {
			out[im.Method.Name()] = im
		}
		return out
	}

	t.Run("unrelated interfaces", func(t *testing.T) {
		run := inherited(t, "p/Both")["run"]
		require.NotNil(t, run)
		assert.True(t, run.MultiplyInherited)
		assert.Equal(t, []string{"p/Runner", "p/Walker"}, run.DeclaringTypes)
		assert.Len(t, run.Methods, 2)
	})

	t.Run("subinterface wins", func(t *testing.T) {
		run := inherited(t, "p/Sprinter")["run"]
		require.NotNil(t, run)
		assert.False(t, run.MultiplyInherited)
		assert.Equal(t, []string{"p/FastRunner"}, run.DeclaringTypes)
	})

	t.Run("class wins", func(t *testing.T) {
		run := inherited(t, "p/Car")["run"]
		require.NotNil(t, run)
		assert.False(t, run.MultiplyInherited)
		assert.Equal(t, []string{"p/Engine"}, run.DeclaringTypes)
	})

	t.Run("declared methods are not inherited", func(t *testing.T) {
		ims := inherited(t, "p/Impl")
		assert.NotContains(t, ims, "run")
		// Static interface methods are not inherited either.
		assert.NotContains(t, ims, "of")
		assert.Contains(t, ims, "hashCode")
		assert.Contains(t, ims, "clone")
	})
}

func TestAllMembers(t *testing.T) {
	f := newFixture(t, []*classfiletest.Builder{box()})
	tm := f.reflect(t, "p/Box", mirror.Bind("T", stringType))

	collect := func() []string {
		var out []string
		for m, err := range tm.AllMembers() {
			require.NoError(t, err)
			out = append(out, m.Kind().String()+" "+m.DeclaringTypeName()+"."+m.Name())
		}
		return out
	}
	want := []string{
		"field p/Box.value",
		"constructor p/Box.<init>",
		"method p/Box.get",
		"method p/Box.set",
		"method java/lang/Object.hashCode",
		"method java/lang/Object.toString",
		"method java/lang/Object.clone",
	}
	assert.Equal(t, want, collect())
	// 何度でも列挙できる
	assert.Equal(t, want, collect())

	n := 0
	for range tm.AllMembers() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	t.Run("find member", func(t *testing.T) {
		m, ok, err := tm.FindMember("hashCode", "")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, signature.ObjectName, m.DeclaringTypeName())
		assert.Equal(t, mirror.MemberMethod, m.Kind())

		m, ok, err = tm.FindMember("get", "()Ljava/lang/Object;")
		require.NoError(t, err)
		require.True(t, ok)
		get, isMethod := m.(*mirror.MethodMirror)
		require.True(t, isMethod)
		assert.Equal(t, "Ljava/lang/String;", get.ReturnType().Signature())

		_, ok, err = tm.FindMember("get", "()Ljava/lang/String;")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = tm.FindMember("missing", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("supertype failure ends the sequence", func(t *testing.T) {
		g := newFixture(t, []*classfiletest.Builder{
			classfiletest.New("p/Sub", classfiletest.Extends("p/Base")).
				Field(public, "x", "I"),
			classfiletest.New("p/Base"),
		})
		sub := g.reflect(t, "p/Sub", mirror.NoBindings)
		// Base is dropped after Sub is built, so it fails on the walk.
		require.True(t, g.loader.Unload("p/Base"))

		var (
			names []string
			errs  []error
		)
		for m, err := range sub.AllMembers() {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			names = append(names, m.Name())
		}
		assert.Equal(t, []string{"x"}, names)
		require.Len(t, errs, 1)
	})
}
