package protocol

import "github.com/fansqz/java-debugger/constants"

// StartDebugRequest 启动调试请求
type StartDebugRequest struct {
	Type     constants.RequestType `json:"type"`
	Sequence uint                  `json:"sequence"`
	// ProjectPath 项目相对工作区根目录的路径
	ProjectPath string `json:"projectPath"`
	// MainClass 入口类全限定名
	MainClass string `json:"mainClass"`
}

// SendToConsoleRequest 控制台输入请求
type SendToConsoleRequest struct {
	Type     constants.RequestType `json:"type"`
	Sequence uint                  `json:"sequence"`
	Content  string                `json:"content"`
}

// StepRequest 单步调试请求
type StepRequest struct {
	Type     constants.RequestType `json:"type"`
	Sequence uint                  `json:"sequence"`
	StepType constants.StepType    `json:"stepType"`
}

// ContinueRequest 继续执行请求
type ContinueRequest struct {
	Type     constants.RequestType `json:"type"`
	Sequence uint                  `json:"sequence"`
}

// ToggleBreakpointRequest 切换断点请求
type ToggleBreakpointRequest struct {
	Type       constants.RequestType `json:"type"`
	Sequence   uint                  `json:"sequence"`
	SourcePath string                `json:"sourcePath"`
	Line       int                   `json:"line"`
	Enabled    bool                  `json:"enabled"`
}

// TerminateRequest 终止调试请求
type TerminateRequest struct {
	Type     constants.RequestType `json:"type"`
	Sequence uint                  `json:"sequence"`
}
