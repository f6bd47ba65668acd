package constants

type DebugMessageType string

const (
	RequestMessage  DebugMessageType = "request"
	ResponseMessage DebugMessageType = "response"
	EventMessage    DebugMessageType = "event"
)

// RequestType 调试请求操作类型
type RequestType string

const (
	// StartDebug 开始调试过程，返回可能出现的错误。
	StartDebug RequestType = "start"
	// SendToConsole 输入数据到被调试程序的控制台，返回可能出现的错误。
	SendToConsole RequestType = "sendToConsole"
	// Step 执行单步操作，具体行为由stepType决定（stepIn/stepOver/stepOut）。
	Step RequestType = "step"
	// Continue 继续执行程序，直到遇到下一个断点或程序结束，返回可能出现的错误。
	Continue RequestType = "continue"
	// ToggleBreakpoint 启用或禁用某个文件某一行的断点。
	ToggleBreakpoint RequestType = "toggleBreakpoint"
	// Terminate 终止当前的调试会话，之后可以重新调用start开始新的会话。
	Terminate RequestType = "terminate"
)

type DebugEventType string

const (
	StartedEvent    DebugEventType = "STARTED"
	PausedEvent     DebugEventType = "PAUSED"
	ResumedEvent    DebugEventType = "RESUMED"
	TerminatedEvent DebugEventType = "TERMINATED"
	BuildOutput     DebugEventType = "buildOutput"
	RunOutput       DebugEventType = "runOutput"
)

// 通知推送的topic，和原web端保持一致
const (
	TopicDebugEvents = "debug-events"
	TopicBuildLog    = "build-log"
	TopicRunLog      = "run-log"
)

// StepType 单步调试类型
type StepType string

const (
	StepIn   StepType = "stepIn"
	StepOut  StepType = "stepOut"
	StepOver StepType = "stepOver"
)

// StoppedReasonType 程序停止类型
type StoppedReasonType string

const (
	BreakpointStopped StoppedReasonType = "breakpoint"
	StepStopped       StoppedReasonType = "step"
)
