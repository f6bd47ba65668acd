package java_debugger

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fansqz/java-debugger/config"
	"github.com/fansqz/java-debugger/debugger"
	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
	e "github.com/fansqz/java-debugger/error"
	"github.com/fansqz/java-debugger/utils"
	"github.com/fansqz/java-debugger/utils/gosync"
	"github.com/sirupsen/logrus"
)

const (
	// AttachTimeout socket附加的超时时间
	AttachTimeout = time.Second * 10

	// cleanupGrace 清理旧会话后等待资源释放的时间
	cleanupGrace = 500 * time.Millisecond

	// loopJoinTimeout 等待事件循环退出的上限
	loopJoinTimeout = time.Second
)

// Session 一次调试会话
// 进程句柄和协议连接由会话独占，清理后不允许再访问
type Session struct {
	ID        string
	conn      Conn
	process   *launchedProcess
	mainClass string

	// mainBreakpointArmed 入口断点是否已经设置并恢复执行
	mainBreakpointArmed atomic.Bool

	stopOnce    sync.Once
	stopChannel chan struct{}
	// loopDone 事件循环退出时关闭
	loopDone chan struct{}

	stepMutex    sync.Mutex
	stepRequests []jdwp.RequestID
}

func newSession(conn Conn, process *launchedProcess, mainClass string) *Session {
	return &Session{
		ID:          utils.GetUUID(),
		conn:        conn,
		process:     process,
		mainClass:   mainClass,
		stopChannel: make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
}

// JavaDebugger 基于JDWP的Java调试器
// 同一时间最多存在一个活动会话，生命周期操作都在mutex保护下串行化
type JavaDebugger struct {
	startOption *debugger.StartOption

	// 事件产生时，触发该回调
	// 事件循环读取回调的同时新的Start可能在替换它，读写都经过callbackMutex
	callbackMutex sync.RWMutex
	callback      debugger.NotificationCallback

	// statusManager 调试的状态管理
	statusManager *utils.StatusManager

	settings *config.Config

	// builder 构建协作方
	builder Builder

	// attach 附加函数，测试中可替换
	attach func(addr string, timeout time.Duration) (Conn, error)

	// mutex 会话生命周期锁，start和cleanup互斥
	mutex       sync.Mutex
	session     *Session
	startCancel context.CancelFunc

	// breakpoints 断点意图表，跨会话保留
	breakpoints *BreakpointTable
}

func NewJavaDebugger(settings *config.Config) *JavaDebugger {
	return &JavaDebugger{
		settings:      settings,
		statusManager: utils.NewStatusManager(),
		breakpoints:   NewBreakpointTable(),
		builder:       NewMavenBuilder(settings.MavenHome),
		attach: func(addr string, timeout time.Duration) (Conn, error) {
			return jdwp.Attach(addr, timeout)
		},
	}
}

var _ debugger.Debugger = (*JavaDebugger)(nil)

// Start 开始调试
// 已存在活动会话时先同步清理旧会话，保证任何时刻最多一个会话
// 构建、启动和附加在后台执行，结果通过事件回调通知
func (d *JavaDebugger) Start(ctx context.Context, option *debugger.StartOption) error {
	if option == nil || option.MainClass == "" {
		return fmt.Errorf("main class cannot be empty")
	}
	logrus.Infof("[Start] 请求启动调试会话，项目: %s, 主类: %s", option.ProjectPath, option.MainClass)

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.startCancel != nil {
		d.startCancel()
	}
	if d.session != nil {
		logrus.Warnf("[Start] 检测到活动的调试会话，将先进行清理")
		d.cleanupLocked(d.session, true)
		time.Sleep(cleanupGrace)
	}
	d.startOption = option
	d.setCallback(option.Callback)
	d.statusManager.Set(utils.Launching)

	startCtx, cancel := context.WithCancel(context.Background())
	d.startCancel = cancel
	gosync.Go(startCtx, func(ctx context.Context) {
		d.start(ctx, option)
	})
	return nil
}

// start 同步执行构建、启动、附加、配置
func (d *JavaDebugger) start(ctx context.Context, option *debugger.StartOption) {
	projectDir, err := filepath.Abs(filepath.Join(d.settings.Workspace.Root, option.ProjectPath))
	if err != nil {
		d.sendBuildLog("[错误] 解析项目路径失败: " + err.Error())
		d.statusManager.Set(utils.Finish)
		return
	}

	// 构建失败直接中止，不会启动任何进程
	exitCode, err := d.builder.Build(ctx, projectDir, d.sendBuildLog)
	if err != nil {
		d.sendBuildLog("[错误] 执行构建失败: " + err.Error())
		d.statusManager.Set(utils.Finish)
		return
	}
	if exitCode != 0 {
		d.sendBuildLog(fmt.Sprintf("[错误] Maven 编译失败，退出码: %d。已终止调试启动。", exitCode))
		d.statusManager.Set(utils.Finish)
		return
	}

	launcher := newProcessLauncher(d.settings, d.sendRunLog, d.sendBuildLog)
	process, err := launcher.Launch(ctx, projectDir, option.MainClass)
	if err != nil {
		d.sendBuildLog("[错误] 启动调试失败: " + err.Error())
		d.statusManager.Set(utils.Finish)
		return
	}
	logrus.Infof("[start] 被调试进程已启动并准备好附加，PID: %d", process.cmd.Process.Pid)

	conn, err := d.attach(fmt.Sprintf("localhost:%d", JDWPPort), AttachTimeout)
	if err != nil {
		_ = process.cmd.Process.Kill()
		d.sendBuildLog("[错误] 附加调试器失败: " + err.Error())
		d.statusManager.Set(utils.Finish)
		return
	}

	// 在恢复目标之前先注册match-all的类加载监听
	// 保证入口类的首次加载一定会被观察到
	if _, err = conn.SetClassPrepareWatch("*"); err != nil {
		_ = conn.Close()
		_ = process.cmd.Process.Kill()
		d.sendBuildLog("[错误] 附加调试器失败: " + err.Error())
		d.statusManager.Set(utils.Finish)
		return
	}

	session := newSession(conn, process, option.MainClass)
	d.mutex.Lock()
	if ctx.Err() != nil {
		// 启动过程中收到了stop，放弃这次会话
		d.mutex.Unlock()
		_ = conn.Close()
		_ = process.cmd.Process.Kill()
		return
	}
	d.session = session
	d.mutex.Unlock()

	gosync.Go(context.Background(), func(ctx context.Context) {
		d.processEvents(ctx, session)
	})
	d.statusManager.Set(utils.Running)
	d.notify(debugger.NewStartedEvent())
	logrus.Infof("[start] 调试器已附加，等待类加载事件以设置断点并开始执行")
}

// Send 输入数据到被调试程序的标准输入
func (d *JavaDebugger) Send(ctx context.Context, input string) error {
	session := d.currentSession()
	if session == nil {
		return e.ErrNoActiveSession
	}
	if session.process == nil || session.process.stdin == nil {
		return nil
	}
	_, err := io.WriteString(session.process.stdin, input)
	return err
}

// ToggleBreakpoint 更新断点意图
// 会话活动且目标类已加载时立即生效，否则等类加载事件再应用
func (d *JavaDebugger) ToggleBreakpoint(ctx context.Context, sourcePath string, line int, enabled bool) error {
	if sourcePath == "" {
		return e.ErrSourcePathIsRequired
	}
	d.breakpoints.Toggle(sourcePath, line, enabled)

	session := d.currentSession()
	if session == nil {
		// 没有活动会话，只更新意图表
		return nil
	}
	return d.breakpoints.ApplyChange(session.conn, sourcePath, line, enabled, d.sendBuildLog)
}

func (d *JavaDebugger) StepOver(ctx context.Context) error {
	return d.step(jdwp.StepOver)
}

func (d *JavaDebugger) StepIn(ctx context.Context) error {
	return d.step(jdwp.StepInto)
}

func (d *JavaDebugger) StepOut(ctx context.Context) error {
	return d.step(jdwp.StepOut)
}

func (d *JavaDebugger) step(depth jdwp.StepDepth) error {
	session := d.currentSession()
	if session == nil {
		return e.ErrNoActiveSession
	}
	// 只有目标处于暂停状态才允许单步
	if !d.statusManager.Is(utils.Stopped) {
		return e.ErrProgramIsRunning
	}
	thread, err := findSuspendedThread(session.conn)
	if err != nil {
		return err
	}
	if thread == 0 {
		logrus.Warnf("[step] 无法执行单步操作：没有找到已暂停的线程")
		return e.ErrProgramIsRunning
	}
	return d.stepThread(session, thread, depth)
}

// stepThread 对指定线程创建单步请求并恢复执行
// 先清理之前注册的单步请求，单步请求是一次性的，只触发一次
func (d *JavaDebugger) stepThread(session *Session, thread jdwp.ThreadID, depth jdwp.StepDepth) error {
	d.clearStepRequests(session)
	requestID, err := session.conn.SetStep(thread, depth)
	if err != nil {
		return err
	}
	session.stepMutex.Lock()
	session.stepRequests = append(session.stepRequests, requestID)
	session.stepMutex.Unlock()

	if err = session.conn.Resume(); err != nil {
		return err
	}
	d.statusManager.Set(utils.Running)
	d.notify(debugger.NewContinuedEvent())
	return nil
}

func (d *JavaDebugger) clearStepRequests(session *Session) {
	session.stepMutex.Lock()
	defer session.stepMutex.Unlock()
	for _, requestID := range session.stepRequests {
		if err := session.conn.ClearRequest(jdwp.EventKindSingleStep, requestID); err != nil {
			logrus.Warnf("[clearStepRequests] 删除单步请求失败, err = %v", err)
		}
	}
	session.stepRequests = session.stepRequests[:0]
}

// Continue 继续执行
func (d *JavaDebugger) Continue(ctx context.Context) error {
	session := d.currentSession()
	if session == nil {
		return e.ErrNoActiveSession
	}
	if !d.statusManager.Is(utils.Stopped) {
		return e.ErrProgramIsRunning
	}
	if err := session.conn.Resume(); err != nil {
		return err
	}
	d.statusManager.Set(utils.Running)
	d.notify(debugger.NewContinuedEvent())
	return nil
}

// Terminate 终止调试
func (d *JavaDebugger) Terminate(ctx context.Context) error {
	logrus.Infof("[Terminate] 收到手动停止调试请求")
	d.mutex.Lock()
	if d.startCancel != nil {
		d.startCancel()
	}
	if d.session != nil {
		d.cleanupLocked(d.session, true)
	}
	d.mutex.Unlock()
	d.statusManager.Set(utils.Finish)
	d.notify(debugger.NewTerminatedEvent())
	return nil
}

// cleanupLocked 同步清理会话，调用方必须持有mutex
// wait为true时会有界等待事件循环退出，事件循环内部触发的清理不等待自己
func (d *JavaDebugger) cleanupLocked(session *Session, wait bool) {
	logrus.Infof("[cleanup] 开始清理调试会话 %s", session.ID)
	session.stopOnce.Do(func() {
		close(session.stopChannel)
	})

	// 清理断点并释放连接，清理时连接可能已经断开，失败只记日志
	d.breakpoints.ClearLive(session.conn)
	if err := session.conn.Dispose(); err != nil {
		logrus.Infof("[cleanup] 连接释放失败（可能已断开）, err = %v", err)
	}
	_ = session.conn.Close()

	if session.process != nil && session.process.cmd.Process != nil {
		if err := session.process.cmd.Process.Kill(); err == nil {
			logrus.Infof("[cleanup] 被调试的进程已被强制终止")
		}
		cmd := session.process.cmd
		gosync.Go(context.Background(), func(ctx context.Context) {
			_ = cmd.Wait()
		})
	}

	if wait {
		select {
		case <-session.loopDone:
		case <-time.After(loopJoinTimeout):
			logrus.Warnf("[cleanup] 等待事件循环退出超时")
		}
	}

	if d.session == session {
		d.session = nil
	}
	d.statusManager.Set(utils.Finish)
	logrus.Infof("[cleanup] 调试会话清理完成")
}

// currentSession 获取当前会话的快照
// 操作过程中只读取一次，避免中途session被清理后访问到空引用
func (d *JavaDebugger) currentSession() *Session {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.session
}

func (d *JavaDebugger) setCallback(callback debugger.NotificationCallback) {
	d.callbackMutex.Lock()
	defer d.callbackMutex.Unlock()
	d.callback = callback
}

// notify 把事件投递给当前回调
func (d *JavaDebugger) notify(event interface{}) {
	d.callbackMutex.RLock()
	callback := d.callback
	d.callbackMutex.RUnlock()
	if callback != nil {
		callback(event)
	}
}

func (d *JavaDebugger) sendBuildLog(line string) {
	d.notify(debugger.NewBuildOutputEvent(line))
}

func (d *JavaDebugger) sendRunLog(line string) {
	d.notify(debugger.NewRunOutputEvent(line))
}

// findSuspendedThread 找到第一个处于挂起状态的线程
func findSuspendedThread(conn Conn) (jdwp.ThreadID, error) {
	threads, err := conn.AllThreads()
	if err != nil {
		return 0, err
	}
	for _, thread := range threads {
		suspended, err := conn.ThreadSuspended(thread)
		if err != nil {
			continue
		}
		if suspended {
			return thread, nil
		}
	}
	return 0, nil
}
