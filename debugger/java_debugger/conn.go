package java_debugger

import (
	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
)

// Conn 调试引擎用到的协议连接操作
// 真实实现是jdwp.Connection，抽成接口便于在测试中替换
type Conn interface {
	// EventQueue 阻塞式事件队列，连接断开时被关闭
	EventQueue() <-chan *jdwp.EventSet
	Resume() error
	Dispose() error
	Close() error

	ClassesBySignature(signature string) ([]jdwp.ClassInfo, error)
	Signature(ref jdwp.ReferenceTypeID) (string, error)
	SourceFile(ref jdwp.ReferenceTypeID) (string, error)
	Methods(ref jdwp.ReferenceTypeID) ([]jdwp.MethodInfo, error)
	LineTable(ref jdwp.ReferenceTypeID, method jdwp.MethodID) (*jdwp.LineTable, error)
	VariableTable(ref jdwp.ReferenceTypeID, method jdwp.MethodID) (*jdwp.VariableTable, error)

	AllThreads() ([]jdwp.ThreadID, error)
	ThreadSuspended(thread jdwp.ThreadID) (bool, error)
	ThreadFrames(thread jdwp.ThreadID) ([]jdwp.Frame, error)
	FrameValues(thread jdwp.ThreadID, frame jdwp.FrameID, slots []jdwp.SlotInfo) ([]jdwp.Value, error)
	ObjectSignature(object jdwp.ObjectID) (string, error)
	StringValue(object jdwp.ObjectID) (string, error)

	SetClassPrepareWatch(pattern string) (jdwp.RequestID, error)
	SetBreakpoint(loc jdwp.Location) (jdwp.RequestID, error)
	SetStep(thread jdwp.ThreadID, depth jdwp.StepDepth) (jdwp.RequestID, error)
	ClearRequest(kind jdwp.EventKind, id jdwp.RequestID) error
	ClearAllBreakpoints() error
}

var _ Conn = (*jdwp.Connection)(nil)
