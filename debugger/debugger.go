package debugger

import (
	"context"
)

type NotificationCallback func(interface{})

// Debugger
// 用户的一次调试过程处理
// 同一时间只允许存在一个活动会话，需要保证并发安全
type Debugger interface {
	// Start
	// 开始调试，构建并启动被调试进程，callback用来异步接收调试事件和日志
	// 如果已经存在活动会话，会先同步清理旧会话再启动新会话
	Start(ctx context.Context, option *StartOption) error
	// Send 输入数据到被调试程序的标准输入
	Send(ctx context.Context, input string) error
	// ToggleBreakpoint 启用或禁用某个源文件某一行的断点
	// 目标类未加载时先记录意图，等类加载事件到达后再应用
	ToggleBreakpoint(ctx context.Context, sourcePath string, line int, enabled bool) error
	// StepOver 下一步，不会进入函数内部
	StepOver(ctx context.Context) error
	// StepIn 下一步，会进入函数内部
	StepIn(ctx context.Context) error
	// StepOut 单步退出
	StepOut(ctx context.Context) error
	// Continue 忽略继续执行
	Continue(ctx context.Context) error
	// Terminate 终止调试
	// 调用完该命令以后可以重新Start
	Terminate(ctx context.Context) error
}
