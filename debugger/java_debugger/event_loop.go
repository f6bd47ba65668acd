package java_debugger

import (
	"context"
	"fmt"

	"github.com/fansqz/java-debugger/debugger"
	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
	"github.com/fansqz/java-debugger/utils"
	"github.com/sirupsen/logrus"
)

// processEvents 事件分发循环，每个会话一个协程
// 一批事件中只要有一个处理者显式决定了恢复与否，就不再默认恢复
// 事件队列关闭意味着连接断开，循环负责收尾并广播终止事件
func (d *JavaDebugger) processEvents(ctx context.Context, session *Session) {
	defer close(session.loopDone)
	queue := session.conn.EventQueue()
	for {
		var set *jdwp.EventSet
		var ok bool
		select {
		case <-session.stopChannel:
			return
		case set, ok = <-queue:
		}
		if !ok {
			select {
			case <-session.stopChannel:
				// 清理方已经接管，循环直接退出
				return
			default:
			}
			logrus.Infof("[processEvents] 与目标虚拟机的连接已断开，开始清理")
			d.finishSession(session)
			return
		}

		suppressResume := false
		terminated := false
		for _, event := range set.Events {
			handled, dead := d.handleEvent(session, event)
			suppressResume = suppressResume || handled
			terminated = terminated || dead
		}
		if terminated {
			d.finishSession(session)
			return
		}
		if !suppressResume {
			// 这一批事件没有任何处理者接管恢复，默认恢复目标执行
			if err := session.conn.Resume(); err != nil {
				logrus.Infof("[processEvents] 默认恢复失败（连接可能已断开）, err = %v", err)
			}
		}
	}
}

// finishSession 事件循环内部触发的会话终结
func (d *JavaDebugger) finishSession(session *Session) {
	d.mutex.Lock()
	d.cleanupLocked(session, false)
	d.mutex.Unlock()
	d.notify(debugger.NewTerminatedEvent())
}

// handleEvent 处理单个JDWP事件
// 返回值：handled表示该处理者已经决定了是否恢复，dead表示会话应当终结
func (d *JavaDebugger) handleEvent(session *Session, event jdwp.Event) (handled bool, dead bool) {
	switch event := event.(type) {
	case *jdwp.VMStartEvent:
		logrus.Infof("[handleEvent] 目标虚拟机已启动")
		return false, false
	case *jdwp.VMDeathEvent:
		logrus.Infof("[handleEvent] 检测到VM死亡事件，程序执行完毕")
		return true, true
	case *jdwp.ClassPrepareEvent:
		return d.handleClassPrepare(session, event)
	case *jdwp.BreakpointEvent:
		return d.handlePausedEvent(session, event.Thread, event.Location), false
	case *jdwp.StepEvent:
		d.clearStepRequests(session)
		return d.handlePausedEvent(session, event.Thread, event.Location), false
	}
	logrus.Warnf("[handleEvent] 忽略未处理的事件类型: %d", event.Kind())
	return false, false
}

// handleClassPrepare 类加载事件
// 入口类首次加载时，在main方法的第一条可执行位置设置断点
// 入口断点和该类上暂存的用户断点在同一个事件里一并应用，之后才恢复执行
func (d *JavaDebugger) handleClassPrepare(session *Session, event *jdwp.ClassPrepareEvent) (handled bool, dead bool) {
	className := ClassNameFromSignature(event.Signature)
	if className == session.mainClass && !session.mainBreakpointArmed.Load() {
		logrus.Infof("[handleClassPrepare] 主类 %s 已加载，准备设置入口断点", className)
		if err := d.armEntryBreakpoint(session, event); err != nil {
			logrus.Errorf("[handleClassPrepare] 为%s设置入口断点失败，中止调试, err = %v", className, err)
			d.sendBuildLog("[错误] 无法设置初始断点: " + err.Error())
			return true, true
		}
		d.breakpoints.ApplyDeferred(session.conn, GuessFilePathFromClassName(className), d.sendBuildLog)
		if err := session.conn.Resume(); err != nil {
			logrus.Errorf("[handleClassPrepare] 恢复执行失败, err = %v", err)
			return true, true
		}
		session.mainBreakpointArmed.Store(true)
		logrus.Infof("[handleClassPrepare] 入口断点已设置，恢复VM以命中该断点")
		return true, false
	}

	// 普通类加载：只应用暂存的断点意图，恢复交给默认逻辑
	d.breakpoints.ApplyDeferred(session.conn, GuessFilePathFromClassName(className), d.sendBuildLog)
	return false, false
}

// armEntryBreakpoint 在入口类的main方法第一条可执行位置设置断点
func (d *JavaDebugger) armEntryBreakpoint(session *Session, event *jdwp.ClassPrepareEvent) error {
	methods, err := session.conn.Methods(event.TypeID)
	if err != nil {
		return err
	}
	var mainMethod *jdwp.MethodInfo
	for i := range methods {
		if methods[i].Name == "main" {
			mainMethod = &methods[i]
			break
		}
	}
	if mainMethod == nil {
		return fmt.Errorf("在类%s中找不到main方法", session.mainClass)
	}

	table, err := session.conn.LineTable(event.TypeID, mainMethod.ID)
	if err != nil {
		return err
	}
	if len(table.Lines) == 0 {
		return fmt.Errorf("无法为main方法的入口找到有效位置")
	}
	loc := jdwp.Location{
		TypeTag: event.TypeTag,
		Class:   event.TypeID,
		Method:  mainMethod.ID,
		Index:   table.Lines[0].CodeIndex,
	}
	if _, err = session.conn.SetBreakpoint(loc); err != nil {
		return err
	}
	return nil
}

// handlePausedEvent 断点或单步命中
// 停在运行库内部时自动步出而不是暂停，用户只会停在自己的代码里
// 快照构建失败时恢复执行，宁可丢一次现场也不让目标一直挂起
func (d *JavaDebugger) handlePausedEvent(session *Session, thread jdwp.ThreadID, loc jdwp.Location) bool {
	signature, err := session.conn.Signature(loc.Class)
	if err != nil {
		logrus.Errorf("[handlePausedEvent] 读取暂停位置的类型失败, err = %v", err)
		if err = session.conn.Resume(); err != nil {
			logrus.Errorf("[handlePausedEvent] 恢复执行失败, err = %v", err)
		}
		return true
	}
	className := ClassNameFromSignature(signature)
	if IsJDKClass(className) {
		logrus.Infof("[handlePausedEvent] 调试器暂停在外部代码 %s 中，将自动执行步出", className)
		if err = d.stepThread(session, thread, jdwp.StepOut); err != nil {
			logrus.Errorf("[handlePausedEvent] 自动步出失败, err = %v", err)
			_ = session.conn.Resume()
		}
		return true
	}

	snapshot, err := NewSnapshotBuilder(session.conn).Build(thread)
	if err != nil {
		logrus.Errorf("[handlePausedEvent] 处理暂停事件时出错, err = %v", err)
		if err = session.conn.Resume(); err != nil {
			logrus.Errorf("[handlePausedEvent] 恢复执行失败, err = %v", err)
		}
		return true
	}
	d.statusManager.Set(utils.Stopped)
	d.notify(debugger.NewPausedEvent(snapshot))
	return true
}
