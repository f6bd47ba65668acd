package debugger

// StartOption 启动调试的参数
type StartOption struct {
	// ProjectPath 项目相对于工作区根目录的路径
	ProjectPath string
	// MainClass 程序入口类的全限定名，如com.example.App
	MainClass string
	// Callback 事件回调
	Callback NotificationCallback
}

// Breakpoint 表示用户的断点意图
type Breakpoint struct {
	SourcePath string `json:"sourcePath"` // 源文件路径
	Line       int    `json:"line"`       // 行号
	Enabled    bool   `json:"enabled"`
}

func NewBreakpoint(sourcePath string, line int, enabled bool) *Breakpoint {
	return &Breakpoint{sourcePath, line, enabled}
}

// Location 暂停位置
// SourcePath为nil说明暂停在运行库内部代码，前端无法跳转到源码
type Location struct {
	SourcePath *string `json:"sourcePath"`
	FileName   string  `json:"fileName"`
	Line       int     `json:"line"`
}

// StackFrame 栈帧
type StackFrame struct {
	MethodName string `json:"methodName"` // 方法名称
	FileName   string `json:"fileName"`   // 目标程序上报的文件名
	Line       int    `json:"line"`
}

// Variable 变量
type Variable struct {
	Name  string `json:"name"`
	Type  string `json:"type"`  // 声明类型
	Value string `json:"value"` // 渲染后的值，不会深入展开对象
}

// PausedSnapshot 每次暂停时重新构建的快照，不跨暂停保留
type PausedSnapshot struct {
	Location  *Location     `json:"location"`
	Variables []*Variable   `json:"variables"`
	CallStack []*StackFrame `json:"callStack"`
}

// StartedEvent 调试器附加成功，会话可用
type StartedEvent struct {
}

func NewStartedEvent() *StartedEvent {
	return &StartedEvent{}
}

// PausedEvent
// 该event表明，由于某些原因，被调试进程的执行已经停止。
// 这可能是由先前设置的断点、完成的步进请求等引起的。
type PausedEvent struct {
	Snapshot *PausedSnapshot
}

func NewPausedEvent(snapshot *PausedSnapshot) *PausedEvent {
	return &PausedEvent{Snapshot: snapshot}
}

// ContinuedEvent
// 该event表明debug的执行已经继续。
type ContinuedEvent struct {
}

func NewContinuedEvent() *ContinuedEvent {
	return &ContinuedEvent{}
}

// TerminatedEvent
// 该event表明调试会话已经结束，被调试进程已被释放
type TerminatedEvent struct {
}

func NewTerminatedEvent() *TerminatedEvent {
	return &TerminatedEvent{}
}

// BuildOutputEvent 构建日志
type BuildOutputEvent struct {
	Output string // 输出内容
}

func NewBuildOutputEvent(output string) *BuildOutputEvent {
	return &BuildOutputEvent{Output: output}
}

// RunOutputEvent 被调试程序的运行输出
type RunOutputEvent struct {
	Output string // 输出内容
}

func NewRunOutputEvent(output string) *RunOutputEvent {
	return &RunOutputEvent{Output: output}
}
