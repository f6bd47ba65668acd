package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fansqz/java-debugger/constants"
	. "github.com/fansqz/java-debugger/debugger"
	"github.com/fansqz/java-debugger/protocol"
	"github.com/sirupsen/logrus"
)

// DebuggerHandler 把控制协议请求转发给调试引擎
// 引擎全局只有一个实例，同一时间最多存在一个调试会话
type DebuggerHandler struct {
	debugger Debugger
	server   *Server
}

func NewDebuggerHandler(debugger Debugger, server *Server) *DebuggerHandler {
	return &DebuggerHandler{debugger: debugger, server: server}
}

func (d *DebuggerHandler) handle(client *Client, req []byte) {
	ctx := context.Background()
	type reqStruct struct {
		Type     constants.RequestType `json:"type"`
		Sequence uint                  `json:"sequence"`
	}
	r := &reqStruct{}
	// 判断请求类型
	if err := json.Unmarshal(req, &r); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		return
	}
	switch r.Type {
	case constants.StartDebug:
		// 启动调试
		d.handleStartDebugRequest(ctx, client, req)
	case constants.SendToConsole:
		// 发送数据到被调试程序的控制台
		d.handleSendToConsoleRequest(ctx, client, req)
	case constants.Step:
		// 单步调试
		d.handleStepRequest(ctx, client, req)
	case constants.Continue:
		// continue
		d.handleContinueRequest(ctx, client, req)
	case constants.ToggleBreakpoint:
		d.handleToggleBreakpointRequest(ctx, client, req)
	case constants.Terminate:
		d.handleTerminalRequest(ctx, client, req)
	default:
		d.sendResponse(client, r.Sequence, false, "request type not support", nil)
	}
}

func (d *DebuggerHandler) sendResponse(client *Client, sequence uint, success bool, message string, body interface{}) {
	response := &protocol.Response{
		Sequence: sequence,
		Success:  success,
		Message:  message,
		Data:     body,
	}
	answer, err := json.Marshal(response)
	if err != nil {
		logrus.Warnf("marshal reponse fail, err = %v", err)
		return
	}
	client.sendMessage(answer)
}

// broadcastEvent 调试事件的回调
// 按事件类型拆分到不同的topic广播出去
func (d *DebuggerHandler) broadcastEvent(event interface{}) {
	var notification *protocol.Notification
	switch event := event.(type) {
	case *StartedEvent:
		notification = &protocol.Notification{
			Topic:   constants.TopicDebugEvents,
			Payload: protocol.NewDebugEvent(constants.StartedEvent, nil),
		}
	case *PausedEvent:
		notification = &protocol.Notification{
			Topic: constants.TopicDebugEvents,
			Payload: protocol.NewDebugEvent(constants.PausedEvent, &protocol.PausedEventData{
				Location:  event.Snapshot.Location,
				Variables: event.Snapshot.Variables,
				CallStack: event.Snapshot.CallStack,
			}),
		}
	case *ContinuedEvent:
		notification = &protocol.Notification{
			Topic:   constants.TopicDebugEvents,
			Payload: protocol.NewDebugEvent(constants.ResumedEvent, nil),
		}
	case *TerminatedEvent:
		notification = &protocol.Notification{
			Topic:   constants.TopicDebugEvents,
			Payload: protocol.NewDebugEvent(constants.TerminatedEvent, nil),
		}
	case *BuildOutputEvent:
		notification = &protocol.Notification{
			Topic:   constants.TopicBuildLog,
			Payload: event.Output,
		}
	case *RunOutputEvent:
		notification = &protocol.Notification{
			Topic:   constants.TopicRunLog,
			Payload: event.Output,
		}
	default:
		logrus.Warnf("[broadcastEvent] unknown event type: %T", event)
		return
	}
	d.server.Broadcast(notification)
}

func (d *DebuggerHandler) handleStartDebugRequest(ctx context.Context, client *Client, req []byte) {
	startReq := protocol.StartDebugRequest{}
	if err := json.Unmarshal(req, &startReq); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		d.sendResponse(client, startReq.Sequence, false, err.Error(), nil)
		return
	}
	// 启动调试，构建和附加是异步的，结果通过事件广播
	err := d.debugger.Start(ctx, &StartOption{
		ProjectPath: startReq.ProjectPath,
		MainClass:   startReq.MainClass,
		Callback:    d.broadcastEvent,
	})
	if err != nil {
		d.sendResponse(client, startReq.Sequence, false, err.Error(), nil)
		return
	}
	d.sendResponse(client, startReq.Sequence, true, "", nil)
}

func (d *DebuggerHandler) handleSendToConsoleRequest(ctx context.Context, client *Client, req []byte) {
	sendToConsoleReq := protocol.SendToConsoleRequest{}
	if err := json.Unmarshal(req, &sendToConsoleReq); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		d.sendResponse(client, sendToConsoleReq.Sequence, false, err.Error(), nil)
		return
	}
	if err := d.debugger.Send(ctx, sendToConsoleReq.Content); err != nil {
		d.sendResponse(client, sendToConsoleReq.Sequence, false, err.Error(), nil)
		return
	}
	d.sendResponse(client, sendToConsoleReq.Sequence, true, "", nil)
}

func (d *DebuggerHandler) handleStepRequest(ctx context.Context, client *Client, req []byte) {
	stepReq := protocol.StepRequest{}
	if err := json.Unmarshal(req, &stepReq); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		d.sendResponse(client, stepReq.Sequence, false, err.Error(), nil)
		return
	}
	var err error
	if stepReq.StepType == constants.StepIn {
		err = d.debugger.StepIn(ctx)
	} else if stepReq.StepType == constants.StepOver {
		err = d.debugger.StepOver(ctx)
	} else if stepReq.StepType == constants.StepOut {
		err = d.debugger.StepOut(ctx)
	} else {
		err = fmt.Errorf("step type not support")
	}
	if err != nil {
		d.sendResponse(client, stepReq.Sequence, false, err.Error(), nil)
		return
	}
	d.sendResponse(client, stepReq.Sequence, true, "", nil)
}

func (d *DebuggerHandler) handleContinueRequest(ctx context.Context, client *Client, req []byte) {
	continueReq := protocol.ContinueRequest{}
	if err := json.Unmarshal(req, &continueReq); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		d.sendResponse(client, continueReq.Sequence, false, err.Error(), nil)
		return
	}
	if err := d.debugger.Continue(ctx); err != nil {
		d.sendResponse(client, continueReq.Sequence, false, err.Error(), nil)
		return
	}
	d.sendResponse(client, continueReq.Sequence, true, "", nil)
}

func (d *DebuggerHandler) handleToggleBreakpointRequest(ctx context.Context, client *Client, req []byte) {
	toggleReq := protocol.ToggleBreakpointRequest{}
	if err := json.Unmarshal(req, &toggleReq); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		d.sendResponse(client, toggleReq.Sequence, false, err.Error(), nil)
		return
	}
	if err := d.debugger.ToggleBreakpoint(ctx, toggleReq.SourcePath, toggleReq.Line, toggleReq.Enabled); err != nil {
		d.sendResponse(client, toggleReq.Sequence, false, err.Error(), nil)
		return
	}
	d.sendResponse(client, toggleReq.Sequence, true, "", nil)
}

func (d *DebuggerHandler) handleTerminalRequest(ctx context.Context, client *Client, req []byte) {
	terminalReq := protocol.TerminateRequest{}
	if err := json.Unmarshal(req, &terminalReq); err != nil {
		logrus.Warnf("parse request error, err = %v", err)
		d.sendResponse(client, terminalReq.Sequence, false, err.Error(), nil)
		return
	}
	if err := d.debugger.Terminate(ctx); err != nil {
		d.sendResponse(client, terminalReq.Sequence, false, err.Error(), nil)
		return
	}
	d.sendResponse(client, terminalReq.Sequence, true, "", nil)
}
