package protocol

import (
	"github.com/fansqz/java-debugger/constants"
	"github.com/fansqz/java-debugger/debugger"
)

// Notification 推送给前端的统一消息结构
// topic与原web端的WebSocket主题保持一致
type Notification struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

// DebugEvent 调试事件
// data的内容由event决定，PAUSED事件携带暂停快照
type DebugEvent struct {
	Event constants.DebugEventType `json:"event"`
	Data  interface{}              `json:"data"`
}

// PausedEventData PAUSED事件的数据
type PausedEventData struct {
	Location  *debugger.Location     `json:"location"`
	Variables []*debugger.Variable   `json:"variables"`
	CallStack []*debugger.StackFrame `json:"callStack"`
}

func NewDebugEvent(event constants.DebugEventType, data interface{}) *DebugEvent {
	return &DebugEvent{Event: event, Data: data}
}
