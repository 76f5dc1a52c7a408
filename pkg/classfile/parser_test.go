package classfile_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/classfile/classfiletest"
)

func TestParseClassFile(t *testing.T) {
	data := classfiletest.New("Hello").
		Method(classfile.AccPublic, "<init>", "()V").
		Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V").
		Bytes()

	cf, err := classfile.Parse(bytes.NewReader(data))
	require.NoError(t, err)

	// メジャーバージョンの検証 (Java 17 = 61)
	if cf.MajorVersion != 61 {
		t.Errorf("major version: got %d, want %d", cf.MajorVersion, 61)
	}

	// this_class が "Hello" を指すこと
	className, err := cf.ClassName()
	require.NoError(t, err)
	if className != "Hello" {
		t.Errorf("this_class: got %q, want %q", className, "Hello")
	}
	if got := cf.SuperClassName(); got != "java/lang/Object" {
		t.Errorf("super_class: got %q, want %q", got, "java/lang/Object")
	}

	mainMethod := cf.FindMethod("main", "([Ljava/lang/String;)V")
	require.NotNil(t, mainMethod, "main method not found")
	assert.False(t, mainMethod.IsConstructor())

	ctor := cf.FindMethod("<init>", "()V")
	require.NotNil(t, ctor)
	assert.True(t, ctor.IsConstructor())
	assert.Nil(t, cf.FindMethod("main", "()V"))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Add.class")
	data := classfiletest.New("Add").
		Method(classfile.AccPublic|classfile.AccStatic, "add", "(II)I").
		Bytes()
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cf, err := classfile.ParseFile(path)
	require.NoError(t, err)

	// add メソッドが (II)I ディスクリプタで存在すること
	if cf.FindMethod("add", "(II)I") == nil {
		t.Error("add(II)I method not found")
	}
	assert.Nil(t, cf.FindMethod("add", "(JJ)J"))

	t.Run("missing file keeps the os error", func(t *testing.T) {
		_, err := classfile.ParseFile(filepath.Join(dir, "Missing.class"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))

		var fe *classfile.FormatError
		assert.False(t, errors.As(err, &fe))
	})
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "bad magic", data: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{name: "empty", data: nil},
		{name: "truncated", data: classfiletest.New("Trunc").Bytes()[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classfile.ParseBytes(tt.data)
			require.Error(t, err)

			var fe *classfile.FormatError
			assert.True(t, errors.As(err, &fe), "want *FormatError, got %T", err)
		})
	}
}

func TestParseOversizedAttribute(t *testing.T) {
	data := classfiletest.New("p/Huge", classfiletest.ClassSignature("Ljava/lang/Object;")).Bytes()
	// クラス属性は末尾の Signature だけ: name(2) length(4) body(2)
	binary.BigEndian.PutUint32(data[len(data)-6:], 0xF0000000)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := classfile.ParseBytes(data)
	runtime.ReadMemStats(&after)

	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	var fe *classfile.FormatError
	assert.True(t, errors.As(err, &fe), "want *FormatError, got %T", err)
	// 宣言された長さではなく実際に読めた分だけ確保する
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestParseHeader(t *testing.T) {
	t.Run("interface without superclass entry", func(t *testing.T) {
		cf := classfiletest.New("p/Runnable", classfiletest.Interface(), classfiletest.Extends("")).Build(t)
		assert.Equal(t, "", cf.SuperClassName())
		assert.NotZero(t, cf.AccessFlags&classfile.AccInterface)
	})

	t.Run("interfaces in declaration order", func(t *testing.T) {
		cf := classfiletest.New("p/Impl", classfiletest.Implements("p/A", "p/B", "p/C")).Build(t)
		names, err := cf.InterfaceNames()
		require.NoError(t, err)
		assert.Equal(t, []string{"p/A", "p/B", "p/C"}, names)
	})
}

func TestParseAttributes(t *testing.T) {
	deprecated := classfiletest.Annotation{Type: "java/lang/Deprecated"}
	named := classfiletest.Annotation{
		Type: "p/Named",
		Elements: []classfiletest.Element{
			{Name: "value", Value: classfiletest.String("box")},
			{Name: "order", Value: classfiletest.Int(3)},
			{Name: "scope", Value: classfiletest.Enum("p/Scope", "SINGLETON")},
			{Name: "type", Value: classfiletest.Class("Ljava/lang/String;")},
			{Name: "tags", Value: classfiletest.Array(classfiletest.String("a"), classfiletest.String("b"))},
			{Name: "inner", Value: classfiletest.Nested(deprecated)},
			{Name: "enabled", Value: classfiletest.Bool(true)},
			{Name: "weight", Value: classfiletest.Double(1.5)},
			{Name: "big", Value: classfiletest.Long(1 << 40)},
		},
	}

	cf := classfiletest.New("p/Box",
		classfiletest.ClassSignature("<T:Ljava/lang/Object;>Ljava/lang/Object;"),
		classfiletest.ClassAnnotation(named),
		classfiletest.InnerClass("p/Box$Entry", "p/Box", "Entry", classfile.AccPublic|classfile.AccStatic),
		classfiletest.Record(),
	).
		Field(classfile.AccPrivate, "value", "Ljava/lang/Object;", classfiletest.Signature("TT;")).
		Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "SIZE", "I", classfiletest.ConstantInt(42)).
		Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "NAME", "Ljava/lang/String;", classfiletest.ConstantString("box")).
		Method(classfile.AccPublic, "set", "(Ljava/lang/Object;)V",
			classfiletest.Signature("(TT;)V"),
			classfiletest.ParameterNames("v"),
			classfiletest.Throws("java/io/IOException"),
			classfiletest.Annotated(deprecated),
			classfiletest.ParameterAnnotations([]classfiletest.Annotation{named}),
		).
		Build(t)

	t.Run("class", func(t *testing.T) {
		assert.Equal(t, "<T:Ljava/lang/Object;>Ljava/lang/Object;", cf.Signature)
		assert.True(t, cf.IsRecord)
		require.Len(t, cf.InnerClasses, 1)
		assert.Equal(t, classfile.InnerClass{
			InnerClass:  "p/Box$Entry",
			OuterClass:  "p/Box",
			InnerName:   "Entry",
			AccessFlags: classfile.AccPublic | classfile.AccStatic,
		}, cf.InnerClasses[0])
	})

	t.Run("annotation element values", func(t *testing.T) {
		require.Len(t, cf.Annotations, 1)
		a := cf.Annotations[0]
		assert.Equal(t, "Lp/Named;", a.Type)
		assert.True(t, a.Visible)
		require.Len(t, a.Elements, 9)

		got := make(map[string]classfile.ElementValue)
		for _, e := range a.Elements {
			got[e.Name] = e.Value
		}
		assert.Equal(t, "box", got["value"].Const)
		assert.Equal(t, int32(3), got["order"].Const)
		assert.Equal(t, "Lp/Scope;", got["scope"].EnumType)
		assert.Equal(t, "SINGLETON", got["scope"].EnumConst)
		assert.Equal(t, "Ljava/lang/String;", got["type"].Class)
		require.Len(t, got["tags"].Array, 2)
		assert.Equal(t, "b", got["tags"].Array[1].Const)
		require.NotNil(t, got["inner"].Annotation)
		assert.Equal(t, "Ljava/lang/Deprecated;", got["inner"].Annotation.Type)
		assert.Equal(t, true, got["enabled"].Const)
		assert.Equal(t, 1.5, got["weight"].Const)
		assert.Equal(t, int64(1<<40), got["big"].Const)
	})

	t.Run("fields", func(t *testing.T) {
		value := cf.FindField("value")
		require.NotNil(t, value)
		assert.Equal(t, "TT;", value.Signature)
		assert.Nil(t, value.ConstantValue)

		size := cf.FindField("SIZE")
		require.NotNil(t, size)
		c, ok := size.ConstantValue.(*classfile.ConstantInteger)
		require.True(t, ok, "got %T", size.ConstantValue)
		assert.Equal(t, int32(42), c.Value)

		name := cf.FindField("NAME")
		require.NotNil(t, name)
		assert.Equal(t, uint8(classfile.TagString), name.ConstantValue.Tag())

		assert.Nil(t, cf.FindField("missing"))
	})

	t.Run("methods", func(t *testing.T) {
		set := cf.FindMethod("set", "(Ljava/lang/Object;)V")
		require.NotNil(t, set)
		assert.Equal(t, "(TT;)V", set.Signature)
		assert.Equal(t, []string{"java/io/IOException"}, set.Exceptions)
		assert.Equal(t, []classfile.MethodParameter{{Name: "v"}}, set.Parameters)
		require.Len(t, set.Annotations, 1)
		assert.Equal(t, "Ljava/lang/Deprecated;", set.Annotations[0].Type)
		require.Len(t, set.ParameterAnnotations, 1)
		require.Len(t, set.ParameterAnnotations[0], 1)
		assert.Equal(t, "Lp/Named;", set.ParameterAnnotations[0][0].Type)
	})
}

func TestGetConstant(t *testing.T) {
	pool := []classfile.ConstantPoolEntry{
		nil,
		&classfile.ConstantUtf8{Value: "hello"},
		&classfile.ConstantString{StringIndex: 1},
		&classfile.ConstantInteger{Value: 7},
		&classfile.ConstantClass{NameIndex: 1},
	}

	v, err := classfile.GetConstant(pool, 2)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = classfile.GetConstant(pool, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)

	_, err = classfile.GetConstant(pool, 4)
	assert.Error(t, err)

	_, err = classfile.GetConstant(pool, 99)
	assert.Error(t, err)
}
