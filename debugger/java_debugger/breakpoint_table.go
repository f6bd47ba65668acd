package java_debugger

import (
	"fmt"
	"path"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/fansqz/java-debugger/debugger"
	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
	"github.com/sirupsen/logrus"
)

// BreakpointTable 断点意图表
// 记录用户针对源文件某一行的启用/禁用意图，会话之间不清空
// 意图在类加载事件到达时才被物化成协议层的断点请求
type BreakpointTable struct {
	mutex sync.RWMutex
	// intents 源文件路径 -> 按行号有序的意图表
	intents map[string]*treemap.Map
	// live 已物化的断点，位置 -> 协议请求id
	live map[jdwp.Location]jdwp.RequestID
}

func NewBreakpointTable() *BreakpointTable {
	return &BreakpointTable{
		intents: make(map[string]*treemap.Map),
		live:    make(map[jdwp.Location]jdwp.RequestID),
	}
}

// Toggle 更新某一行的断点意图
// 同一行的旧意图会被替换，意图不会被自动删除
func (t *BreakpointTable) Toggle(sourcePath string, line int, enabled bool) *debugger.Breakpoint {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	fileIntents, ok := t.intents[sourcePath]
	if !ok {
		fileIntents = treemap.NewWithIntComparator()
		t.intents[sourcePath] = fileIntents
	}
	intent := debugger.NewBreakpoint(sourcePath, line, enabled)
	fileIntents.Put(line, intent)
	return intent
}

// IntentsFor 某个源文件的全部意图，按行号升序
func (t *BreakpointTable) IntentsFor(sourcePath string) []*debugger.Breakpoint {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	fileIntents, ok := t.intents[sourcePath]
	if !ok {
		return nil
	}
	answer := make([]*debugger.Breakpoint, 0, fileIntents.Size())
	for _, v := range fileIntents.Values() {
		answer = append(answer, v.(*debugger.Breakpoint))
	}
	return answer
}

// LiveCount 当前已物化的断点数量
func (t *BreakpointTable) LiveCount() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.live)
}

// ApplyChange 尝试把一个意图物化到连接上
// 目标类未加载时直接返回，等类加载事件再应用
// 同一位置先删后加，enable/disable是幂等的，后写的意图生效
func (t *BreakpointTable) ApplyChange(conn Conn, sourcePath string, line int, enabled bool, warn func(string)) error {
	className := GuessClassNameFromFilePath(sourcePath)
	classes, err := conn.ClassesBySignature(SignatureFromClassName(className))
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		logrus.Warnf("[ApplyChange] 类'%s'尚未加载，断点延迟应用", className)
		return nil
	}
	class := classes[0]

	loc, found, err := resolveLineLocation(conn, class, line)
	if err != nil {
		if jdwp.IsAbsentInformation(err) {
			warn(fmt.Sprintf("[警告] 无法在 %s:%d 设置断点。请确认编译时包含了调试信息。", sourcePath, line))
			return nil
		}
		return err
	}
	if !found {
		warn(fmt.Sprintf("[警告] 无法在 %s:%d 设置断点，该行可能没有可执行的代码。", path.Base(sourcePath), line))
		return nil
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	if requestID, ok := t.live[loc]; ok {
		// 忽略删除失败，位置上的旧请求可能已随连接失效
		if err = conn.ClearRequest(jdwp.EventKindBreakpoint, requestID); err != nil {
			logrus.Warnf("[ApplyChange] 删除旧断点失败, err = %v", err)
		}
		delete(t.live, loc)
	}
	if enabled {
		requestID, err := conn.SetBreakpoint(loc)
		if err != nil {
			return err
		}
		t.live[loc] = requestID
		logrus.Infof("[ApplyChange] 动态应用断点于 %s:%d", sourcePath, line)
	} else {
		logrus.Infof("[ApplyChange] 动态移除断点于 %s:%d", sourcePath, line)
	}
	return nil
}

// ApplyDeferred 类加载后应用该类源文件上暂存的所有启用意图
func (t *BreakpointTable) ApplyDeferred(conn Conn, sourcePath string, warn func(string)) {
	intents := t.IntentsFor(sourcePath)
	if len(intents) == 0 {
		return
	}
	logrus.Infof("[ApplyDeferred] '%s'已加载，找到%d个关联断点", sourcePath, len(intents))
	for _, intent := range intents {
		if !intent.Enabled {
			continue
		}
		if err := t.ApplyChange(conn, intent.SourcePath, intent.Line, true, warn); err != nil {
			logrus.Errorf("[ApplyDeferred] 应用断点失败, err = %v", err)
		}
	}
}

// ClearLive 清空所有已物化的断点，会话清理时调用
// 意图表保留，下次会话可以继续使用
func (t *BreakpointTable) ClearLive(conn Conn) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if len(t.live) != 0 {
		if err := conn.ClearAllBreakpoints(); err != nil {
			logrus.Infof("[ClearLive] 清理断点失败（连接可能已断开）, err = %v", err)
		}
	}
	t.live = make(map[jdwp.Location]jdwp.RequestID)
}

// resolveLineLocation 把源码行解析成可执行代码位置
// 遍历类的方法行号表，找到行号完全匹配的第一个位置
func resolveLineLocation(conn Conn, class jdwp.ClassInfo, line int) (jdwp.Location, bool, error) {
	methods, err := conn.Methods(class.TypeID)
	if err != nil {
		return jdwp.Location{}, false, err
	}
	for _, method := range methods {
		table, err := conn.LineTable(class.TypeID, method.ID)
		if err != nil {
			if jdwp.IsAbsentInformation(err) {
				continue
			}
			return jdwp.Location{}, false, err
		}
		for _, entry := range table.Lines {
			if entry.Line == line {
				return jdwp.Location{
					TypeTag: class.TypeTag,
					Class:   class.TypeID,
					Method:  method.ID,
					Index:   entry.CodeIndex,
				}, true, nil
			}
		}
	}
	return jdwp.Location{}, false, nil
}
