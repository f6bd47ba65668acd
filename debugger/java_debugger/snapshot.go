package java_debugger

import (
	"errors"
	"fmt"

	"github.com/fansqz/java-debugger/debugger"
	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
	"github.com/sirupsen/logrus"
)

// SnapshotBuilder 把暂停线程的现场转换成可序列化的快照
// 快照每次暂停重新构建，不跨暂停保留
type SnapshotBuilder struct {
	conn Conn

	// 同一次构建内的缓存，避免对同一个类重复发起请求
	signatures  map[jdwp.ReferenceTypeID]string
	sourceFiles map[jdwp.ReferenceTypeID]string
	methods     map[jdwp.ReferenceTypeID][]jdwp.MethodInfo
}

func NewSnapshotBuilder(conn Conn) *SnapshotBuilder {
	return &SnapshotBuilder{
		conn:        conn,
		signatures:  make(map[jdwp.ReferenceTypeID]string),
		sourceFiles: make(map[jdwp.ReferenceTypeID]string),
		methods:     make(map[jdwp.ReferenceTypeID][]jdwp.MethodInfo),
	}
}

// Build 构建暂停快照：位置、调用栈、顶层栈帧的局部变量
func (b *SnapshotBuilder) Build(thread jdwp.ThreadID) (*debugger.PausedSnapshot, error) {
	frames, err := b.conn.ThreadFrames(thread)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.New("暂停线程没有栈帧")
	}
	top := frames[0]

	location, err := b.buildLocation(top.Location)
	if err != nil {
		return nil, err
	}

	callStack := make([]*debugger.StackFrame, 0, len(frames))
	for _, frame := range frames {
		callStack = append(callStack, &debugger.StackFrame{
			MethodName: b.methodName(frame.Location),
			FileName:   b.sourceFileName(frame.Location.Class),
			Line:       b.lineNumber(frame.Location),
		})
	}

	variables, err := b.buildVariables(thread, top)
	if err != nil {
		// 变量读取失败不影响位置和调用栈
		logrus.Warnf("[Build] 读取局部变量失败, err = %v", err)
		variables = []*debugger.Variable{}
	}

	return &debugger.PausedSnapshot{
		Location:  location,
		Variables: variables,
		CallStack: callStack,
	}, nil
}

// buildLocation 构建位置信息
// 运行库内部的类没有可跳转的源文件，sourcePath为nil
func (b *SnapshotBuilder) buildLocation(loc jdwp.Location) (*debugger.Location, error) {
	signature, err := b.signature(loc.Class)
	if err != nil {
		return nil, err
	}
	className := ClassNameFromSignature(signature)
	location := &debugger.Location{
		FileName: b.sourceFileName(loc.Class),
		Line:     b.lineNumber(loc),
	}
	if !IsJDKClass(className) {
		sourcePath := GuessFilePathFromClassName(className)
		location.SourcePath = &sourcePath
	}
	return location, nil
}

// buildVariables 读取顶层栈帧中当前可见的局部变量
func (b *SnapshotBuilder) buildVariables(thread jdwp.ThreadID, frame jdwp.Frame) ([]*debugger.Variable, error) {
	table, err := b.conn.VariableTable(frame.Location.Class, frame.Location.Method)
	if err != nil {
		if jdwp.IsAbsentInformation(err) {
			return []*debugger.Variable{}, nil
		}
		return nil, err
	}

	// 按可见区间过滤出当前位置可见的槽位
	visible := make([]jdwp.SlotInfo, 0, len(table.Slots))
	for _, slot := range table.Slots {
		if slot.Signature == "" || slot.Name == "this" {
			continue
		}
		if frame.Location.Index >= slot.CodeIndex &&
			frame.Location.Index < slot.CodeIndex+uint64(slot.Length) {
			visible = append(visible, slot)
		}
	}
	if len(visible) == 0 {
		return []*debugger.Variable{}, nil
	}

	values, err := b.conn.FrameValues(thread, frame.ID, visible)
	if err != nil {
		return nil, err
	}
	variables := make([]*debugger.Variable, 0, len(visible))
	for i, slot := range visible {
		if i >= len(values) {
			break
		}
		variables = append(variables, &debugger.Variable{
			Name:  slot.Name,
			Type:  TypeNameFromSignature(slot.Signature),
			Value: b.renderValue(values[i]),
		})
	}
	return variables, nil
}

// renderValue 把一个值渲染成简短的字符串
// 字符串带引号，原始类型输出字面量，对象输出类型加id
// 不会递归展开对象图
func (b *SnapshotBuilder) renderValue(v jdwp.Value) string {
	switch v.Tag {
	case jdwp.TagBoolean:
		if v.Int != 0 {
			return "true"
		}
		return "false"
	case jdwp.TagChar:
		return fmt.Sprintf("'%c'", rune(v.Int))
	case jdwp.TagByte, jdwp.TagShort, jdwp.TagInt, jdwp.TagLong:
		return fmt.Sprintf("%d", v.Int)
	case jdwp.TagFloat, jdwp.TagDouble:
		return fmt.Sprintf("%g", v.Float)
	case jdwp.TagVoid:
		return "void"
	case jdwp.TagString:
		if v.Object == 0 {
			return "null"
		}
		value, err := b.conn.StringValue(v.Object)
		if err != nil {
			logrus.Warnf("[renderValue] 读取字符串失败, err = %v", err)
			return "N/A"
		}
		return fmt.Sprintf("%q", value)
	}
	if v.Tag.IsObject() {
		if v.Object == 0 {
			return "null"
		}
		signature, err := b.conn.ObjectSignature(v.Object)
		if err != nil {
			logrus.Warnf("[renderValue] 读取对象类型失败, err = %v", err)
			return "N/A"
		}
		return fmt.Sprintf("%s (id=%d)", TypeNameFromSignature(signature), v.Object)
	}
	return "N/A"
}

// lineNumber 把字节码偏移映射为源码行号
// 取行号表中不超过当前偏移的最后一项
func (b *SnapshotBuilder) lineNumber(loc jdwp.Location) int {
	table, err := b.conn.LineTable(loc.Class, loc.Method)
	if err != nil {
		return -1
	}
	line := -1
	for _, entry := range table.Lines {
		if entry.CodeIndex > loc.Index {
			break
		}
		line = entry.Line
	}
	return line
}

func (b *SnapshotBuilder) methodName(loc jdwp.Location) string {
	methods, ok := b.methods[loc.Class]
	if !ok {
		var err error
		methods, err = b.conn.Methods(loc.Class)
		if err != nil {
			return "<unknown>"
		}
		b.methods[loc.Class] = methods
	}
	for _, method := range methods {
		if method.ID == loc.Method {
			return method.Name
		}
	}
	return "<unknown>"
}

func (b *SnapshotBuilder) signature(class jdwp.ReferenceTypeID) (string, error) {
	if signature, ok := b.signatures[class]; ok {
		return signature, nil
	}
	signature, err := b.conn.Signature(class)
	if err != nil {
		return "", err
	}
	b.signatures[class] = signature
	return signature, nil
}

// sourceFileName 类上报的源文件名，缺少调试信息时返回Unknown Source
func (b *SnapshotBuilder) sourceFileName(class jdwp.ReferenceTypeID) string {
	if name, ok := b.sourceFiles[class]; ok {
		return name
	}
	name, err := b.conn.SourceFile(class)
	if err != nil {
		name = "Unknown Source"
	}
	b.sourceFiles[class] = name
	return name
}
