package jdwp

import "fmt"

// JDWP协议中的各类id，线上长度由IDSizes命令协商，读写时按协商长度处理
type (
	ObjectID        uint64
	ThreadID        uint64
	ReferenceTypeID uint64
	MethodID        uint64
	FrameID         uint64
	RequestID       int32
)

// IDSizes 目标虚拟机上各类id的字节长度
type IDSizes struct {
	FieldID         int
	MethodID        int
	ObjectID        int
	ReferenceTypeID int
	FrameID         int
}

// EventKind 事件类型
type EventKind byte

const (
	EventKindSingleStep   EventKind = 1
	EventKindBreakpoint   EventKind = 2
	EventKindClassPrepare EventKind = 8
	EventKindVMStart      EventKind = 90
	EventKindVMDeath      EventKind = 99
)

// SuspendPolicy 事件触发时的挂起策略
type SuspendPolicy byte

const (
	SuspendPolicyNone        SuspendPolicy = 0
	SuspendPolicyEventThread SuspendPolicy = 1
	SuspendPolicyAll         SuspendPolicy = 2
)

// StepDepth 单步方向
type StepDepth int32

const (
	StepInto StepDepth = 0
	StepOver StepDepth = 1
	StepOut  StepDepth = 2
)

// 单步粒度固定为源码行
const stepSizeLine int32 = 1

// 事件请求的modifier类型
const (
	modKindCount        byte = 1
	modKindClassMatch   byte = 5
	modKindLocationOnly byte = 7
	modKindStep         byte = 10
)

// Tag 值类型标记
type Tag byte

const (
	TagArray       Tag = '['
	TagByte        Tag = 'B'
	TagChar        Tag = 'C'
	TagObject      Tag = 'L'
	TagFloat       Tag = 'F'
	TagDouble      Tag = 'D'
	TagInt         Tag = 'I'
	TagLong        Tag = 'J'
	TagShort       Tag = 'S'
	TagVoid        Tag = 'V'
	TagBoolean     Tag = 'Z'
	TagString      Tag = 's'
	TagThread      Tag = 't'
	TagThreadGroup Tag = 'g'
	TagClassLoader Tag = 'l'
	TagClassObject Tag = 'c'
)

// IsObject 该tag是否为对象引用类型
func (t Tag) IsObject() bool {
	switch t {
	case TagArray, TagObject, TagString, TagThread, TagThreadGroup, TagClassLoader, TagClassObject:
		return true
	}
	return false
}

// Location 可执行代码位置
type Location struct {
	TypeTag byte
	Class   ReferenceTypeID
	Method  MethodID
	Index   uint64
}

// ClassInfo ClassesBySignature返回的类信息
type ClassInfo struct {
	TypeTag byte
	TypeID  ReferenceTypeID
	Status  int32
}

// MethodInfo 类中的方法信息
type MethodInfo struct {
	ID        MethodID
	Name      string
	Signature string
	ModBits   int32
}

// LineEntry 行号表的一项，记录字节码偏移到源码行的映射
type LineEntry struct {
	CodeIndex uint64
	Line      int
}

// LineTable 方法的行号表
type LineTable struct {
	Start int64
	End   int64
	Lines []LineEntry
}

// SlotInfo 方法中一个局部变量的槽位信息
type SlotInfo struct {
	CodeIndex uint64 // 变量可见的起始偏移
	Name      string
	Signature string
	Length    int32 // 变量可见区间长度
	Slot      int32
}

// VariableTable 方法的局部变量表
type VariableTable struct {
	ArgCount int32
	Slots    []SlotInfo
}

// Frame 线程的一个栈帧
type Frame struct {
	ID       FrameID
	Location Location
}

// Value 栈帧中读取到的值
// 原始类型的值存放在Int/Float中，对象引用存放在Object中
type Value struct {
	Tag    Tag
	Int    int64
	Float  float64
	Object ObjectID
}

// Error JDWP应答中的错误码
type Error uint16

const (
	ErrInvalidThread      Error = 10
	ErrThreadNotSuspended Error = 13
	ErrInvalidObject      Error = 20
	ErrAbsentInformation  Error = 101
	ErrVMDead             Error = 112
)

func (e Error) Error() string {
	return fmt.Sprintf("jdwp error %d", uint16(e))
}

// IsVMDead 目标虚拟机已死亡，调用方应按正常终止处理
func IsVMDead(err error) bool {
	e, ok := err.(Error)
	return ok && e == ErrVMDead
}

// IsAbsentInformation 目标类缺少调试信息（编译时未带-g）
func IsAbsentInformation(err error) bool {
	e, ok := err.(Error)
	return ok && e == ErrAbsentInformation
}
