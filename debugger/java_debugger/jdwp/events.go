package jdwp

import "fmt"

// 调试代理把相关联的事件打包成一个原子的事件集合
// 集合内的事件共享同一个挂起策略

// EventSet 一个事件集合
type EventSet struct {
	SuspendPolicy SuspendPolicy
	Events        []Event
}

// Event 事件的标签联合，由事件循环穷举匹配
type Event interface {
	Kind() EventKind
}

// VMStartEvent 目标虚拟机初始化完成
type VMStartEvent struct {
	Request RequestID
	Thread  ThreadID
}

func (*VMStartEvent) Kind() EventKind { return EventKindVMStart }

// VMDeathEvent 目标虚拟机终止
type VMDeathEvent struct {
	Request RequestID
}

func (*VMDeathEvent) Kind() EventKind { return EventKindVMDeath }

// ClassPrepareEvent 某个类首次加载完成，可以对其进行introspect
type ClassPrepareEvent struct {
	Request   RequestID
	Thread    ThreadID
	TypeTag   byte
	TypeID    ReferenceTypeID
	Signature string
	Status    int32
}

func (*ClassPrepareEvent) Kind() EventKind { return EventKindClassPrepare }

// BreakpointEvent 命中断点
type BreakpointEvent struct {
	Request  RequestID
	Thread   ThreadID
	Location Location
}

func (*BreakpointEvent) Kind() EventKind { return EventKindBreakpoint }

// StepEvent 单步完成
type StepEvent struct {
	Request  RequestID
	Thread   ThreadID
	Location Location
}

func (*StepEvent) Kind() EventKind { return EventKindSingleStep }

// parseEventSet 解析Event.Composite命令包
func parseEventSet(data []byte, sizes IDSizes) (*EventSet, error) {
	r := newPacketReader(data, sizes)
	set := &EventSet{SuspendPolicy: SuspendPolicy(r.readByte())}
	count := int(r.readInt())
	for i := 0; i < count; i++ {
		kind := EventKind(r.readByte())
		switch kind {
		case EventKindVMStart:
			set.Events = append(set.Events, &VMStartEvent{
				Request: RequestID(r.readInt()),
				Thread:  r.readThreadID(),
			})
		case EventKindVMDeath:
			set.Events = append(set.Events, &VMDeathEvent{
				Request: RequestID(r.readInt()),
			})
		case EventKindClassPrepare:
			set.Events = append(set.Events, &ClassPrepareEvent{
				Request:   RequestID(r.readInt()),
				Thread:    r.readThreadID(),
				TypeTag:   r.readByte(),
				TypeID:    r.readRefTypeID(),
				Signature: r.readString(),
				Status:    r.readInt(),
			})
		case EventKindBreakpoint:
			set.Events = append(set.Events, &BreakpointEvent{
				Request:  RequestID(r.readInt()),
				Thread:   r.readThreadID(),
				Location: r.readLocation(),
			})
		case EventKindSingleStep:
			set.Events = append(set.Events, &StepEvent{
				Request:  RequestID(r.readInt()),
				Thread:   r.readThreadID(),
				Location: r.readLocation(),
			})
		default:
			// 未订阅的事件类型无法确定长度，整个集合只能放弃
			return nil, fmt.Errorf("jdwp: unexpected event kind %d", kind)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return set, nil
}
