package java_debugger

import (
	"testing"

	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotBuilder_Build(t *testing.T) {
	conn := newLoadedAppConn()
	conn.addClass(200, "java.lang.Thread", "Thread.java")
	conn.addMethod(200, 9, "run", []jdwp.LineEntry{{CodeIndex: 0, Line: 833}})
	conn.variableTables[methodKey{100, 1}] = &jdwp.VariableTable{
		ArgCount: 1,
		Slots: []jdwp.SlotInfo{
			{Name: "this", Signature: "Lcom/example/App;", CodeIndex: 0, Length: 100, Slot: 0},
			{Name: "count", Signature: "I", CodeIndex: 0, Length: 100, Slot: 1},
			{Name: "name", Signature: "Ljava/lang/String;", CodeIndex: 0, Length: 100, Slot: 2},
			// 可见区间不覆盖当前位置的变量不出现在快照里
			{Name: "later", Signature: "I", CodeIndex: 9, Length: 10, Slot: 3},
		},
	}
	conn.frameValues = []jdwp.Value{
		{Tag: jdwp.TagInt, Int: 42},
		{Tag: jdwp.TagString, Object: 500},
	}
	conn.strings[500] = "hello"
	conn.frames[1] = []jdwp.Frame{
		{ID: 1, Location: jdwp.Location{TypeTag: 1, Class: 100, Method: 1, Index: 4}},
		{ID: 2, Location: jdwp.Location{TypeTag: 1, Class: 200, Method: 9, Index: 0}},
	}

	snapshot, err := NewSnapshotBuilder(conn).Build(1)
	assert.Nil(t, err)

	// 位置取栈顶帧，字节码偏移映射到源码行
	assert.Equal(t, 10, snapshot.Location.Line)
	assert.Equal(t, "App.java", snapshot.Location.FileName)
	assert.Equal(t, appSourcePath, *snapshot.Location.SourcePath)

	// this和不可见的变量被过滤
	assert.Equal(t, 2, len(snapshot.Variables))
	assert.Equal(t, "count", snapshot.Variables[0].Name)
	assert.Equal(t, "int", snapshot.Variables[0].Type)
	assert.Equal(t, "42", snapshot.Variables[0].Value)
	assert.Equal(t, "name", snapshot.Variables[1].Name)
	assert.Equal(t, "java.lang.String", snapshot.Variables[1].Type)
	assert.Equal(t, `"hello"`, snapshot.Variables[1].Value)

	// 调用栈包含全部栈帧
	assert.Equal(t, 2, len(snapshot.CallStack))
	assert.Equal(t, "main", snapshot.CallStack[0].MethodName)
	assert.Equal(t, 10, snapshot.CallStack[0].Line)
	assert.Equal(t, "run", snapshot.CallStack[1].MethodName)
	assert.Equal(t, "Thread.java", snapshot.CallStack[1].FileName)
}

func TestSnapshotBuilder_BuildInJDKFrame(t *testing.T) {
	conn := newLoadedAppConn()
	conn.addClass(200, "java.util.ArrayList", "ArrayList.java")
	conn.addMethod(200, 9, "add", []jdwp.LineEntry{{CodeIndex: 0, Line: 480}})
	conn.frames[1] = []jdwp.Frame{
		{ID: 1, Location: jdwp.Location{TypeTag: 1, Class: 200, Method: 9, Index: 0}},
	}

	snapshot, err := NewSnapshotBuilder(conn).Build(1)
	assert.Nil(t, err)
	// 运行库内部的类没有可跳转的源文件
	assert.Nil(t, snapshot.Location.SourcePath)
	assert.Equal(t, "ArrayList.java", snapshot.Location.FileName)
}

func TestSnapshotBuilder_BuildWithoutFrames(t *testing.T) {
	conn := newLoadedAppConn()
	_, err := NewSnapshotBuilder(conn).Build(1)
	assert.NotNil(t, err)
}

func TestSnapshotBuilder_RenderValue(t *testing.T) {
	conn := newFakeConn()
	conn.strings[500] = "hello"
	conn.objectSignatures[600] = "Lcom/example/App;"
	b := NewSnapshotBuilder(conn)

	assert.Equal(t, "true", b.renderValue(jdwp.Value{Tag: jdwp.TagBoolean, Int: 1}))
	assert.Equal(t, "false", b.renderValue(jdwp.Value{Tag: jdwp.TagBoolean, Int: 0}))
	assert.Equal(t, "'a'", b.renderValue(jdwp.Value{Tag: jdwp.TagChar, Int: 'a'}))
	assert.Equal(t, "42", b.renderValue(jdwp.Value{Tag: jdwp.TagInt, Int: 42}))
	assert.Equal(t, "3.14", b.renderValue(jdwp.Value{Tag: jdwp.TagDouble, Float: 3.14}))
	assert.Equal(t, `"hello"`, b.renderValue(jdwp.Value{Tag: jdwp.TagString, Object: 500}))
	assert.Equal(t, "null", b.renderValue(jdwp.Value{Tag: jdwp.TagString, Object: 0}))
	assert.Equal(t, "null", b.renderValue(jdwp.Value{Tag: jdwp.TagObject, Object: 0}))
	assert.Equal(t, "com.example.App (id=600)", b.renderValue(jdwp.Value{Tag: jdwp.TagObject, Object: 600}))
}
