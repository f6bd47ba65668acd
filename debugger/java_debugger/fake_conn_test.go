package java_debugger

import (
	"sync"

	"github.com/fansqz/java-debugger/debugger/java_debugger/jdwp"
)

type methodKey struct {
	class  jdwp.ReferenceTypeID
	method jdwp.MethodID
}

type stepRecord struct {
	thread jdwp.ThreadID
	depth  jdwp.StepDepth
}

// fakeConn 测试用的假连接，数据由测试用例预置
// 记录所有写操作，供断言检查
type fakeConn struct {
	mutex  sync.Mutex
	events chan *jdwp.EventSet

	classes        map[string][]jdwp.ClassInfo
	signatures     map[jdwp.ReferenceTypeID]string
	sourceFiles    map[jdwp.ReferenceTypeID]string
	methods        map[jdwp.ReferenceTypeID][]jdwp.MethodInfo
	lineTables     map[methodKey]*jdwp.LineTable
	variableTables map[methodKey]*jdwp.VariableTable

	threads     []jdwp.ThreadID
	suspended   map[jdwp.ThreadID]bool
	frames      map[jdwp.ThreadID][]jdwp.Frame
	frameValues []jdwp.Value

	objectSignatures map[jdwp.ObjectID]string
	strings          map[jdwp.ObjectID]string

	nextRequestID jdwp.RequestID
	resumeCount   int
	watches       []string
	breakpoints   []jdwp.Location
	steps         []stepRecord
	cleared       []jdwp.RequestID
	clearAllCount int
	disposed      bool
	closed        bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events:           make(chan *jdwp.EventSet, 16),
		classes:          make(map[string][]jdwp.ClassInfo),
		signatures:       make(map[jdwp.ReferenceTypeID]string),
		sourceFiles:      make(map[jdwp.ReferenceTypeID]string),
		methods:          make(map[jdwp.ReferenceTypeID][]jdwp.MethodInfo),
		lineTables:       make(map[methodKey]*jdwp.LineTable),
		variableTables:   make(map[methodKey]*jdwp.VariableTable),
		suspended:        make(map[jdwp.ThreadID]bool),
		frames:           make(map[jdwp.ThreadID][]jdwp.Frame),
		objectSignatures: make(map[jdwp.ObjectID]string),
		strings:          make(map[jdwp.ObjectID]string),
	}
}

// addClass 注册一个类和它的方法行号表
func (f *fakeConn) addClass(id jdwp.ReferenceTypeID, className, sourceFile string) {
	signature := SignatureFromClassName(className)
	f.classes[signature] = []jdwp.ClassInfo{{TypeTag: 1, TypeID: id, Status: 7}}
	f.signatures[id] = signature
	f.sourceFiles[id] = sourceFile
}

func (f *fakeConn) addMethod(class jdwp.ReferenceTypeID, id jdwp.MethodID, name string, lines []jdwp.LineEntry) {
	f.methods[class] = append(f.methods[class], jdwp.MethodInfo{ID: id, Name: name})
	f.lineTables[methodKey{class, id}] = &jdwp.LineTable{Lines: lines}
}

func (f *fakeConn) pushEvents(policy jdwp.SuspendPolicy, events ...jdwp.Event) {
	f.events <- &jdwp.EventSet{SuspendPolicy: policy, Events: events}
}

func (f *fakeConn) disconnect() {
	close(f.events)
}

func (f *fakeConn) EventQueue() <-chan *jdwp.EventSet {
	return f.events
}

func (f *fakeConn) Resume() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.resumeCount++
	return nil
}

func (f *fakeConn) Dispose() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.disposed = true
	return nil
}

func (f *fakeConn) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) ClassesBySignature(signature string) ([]jdwp.ClassInfo, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.classes[signature], nil
}

func (f *fakeConn) Signature(ref jdwp.ReferenceTypeID) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.signatures[ref], nil
}

func (f *fakeConn) SourceFile(ref jdwp.ReferenceTypeID) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.sourceFiles[ref], nil
}

func (f *fakeConn) Methods(ref jdwp.ReferenceTypeID) ([]jdwp.MethodInfo, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.methods[ref], nil
}

func (f *fakeConn) LineTable(ref jdwp.ReferenceTypeID, method jdwp.MethodID) (*jdwp.LineTable, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	table, ok := f.lineTables[methodKey{ref, method}]
	if !ok {
		return nil, jdwp.ErrAbsentInformation
	}
	return table, nil
}

func (f *fakeConn) VariableTable(ref jdwp.ReferenceTypeID, method jdwp.MethodID) (*jdwp.VariableTable, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	table, ok := f.variableTables[methodKey{ref, method}]
	if !ok {
		return nil, jdwp.ErrAbsentInformation
	}
	return table, nil
}

func (f *fakeConn) AllThreads() ([]jdwp.ThreadID, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.threads, nil
}

func (f *fakeConn) ThreadSuspended(thread jdwp.ThreadID) (bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.suspended[thread], nil
}

func (f *fakeConn) ThreadFrames(thread jdwp.ThreadID) ([]jdwp.Frame, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.frames[thread], nil
}

func (f *fakeConn) FrameValues(thread jdwp.ThreadID, frame jdwp.FrameID, slots []jdwp.SlotInfo) ([]jdwp.Value, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.frameValues, nil
}

func (f *fakeConn) ObjectSignature(object jdwp.ObjectID) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.objectSignatures[object], nil
}

func (f *fakeConn) StringValue(object jdwp.ObjectID) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.strings[object], nil
}

func (f *fakeConn) SetClassPrepareWatch(pattern string) (jdwp.RequestID, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.watches = append(f.watches, pattern)
	f.nextRequestID++
	return f.nextRequestID, nil
}

func (f *fakeConn) SetBreakpoint(loc jdwp.Location) (jdwp.RequestID, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.breakpoints = append(f.breakpoints, loc)
	f.nextRequestID++
	return f.nextRequestID, nil
}

func (f *fakeConn) SetStep(thread jdwp.ThreadID, depth jdwp.StepDepth) (jdwp.RequestID, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.steps = append(f.steps, stepRecord{thread: thread, depth: depth})
	f.nextRequestID++
	return f.nextRequestID, nil
}

func (f *fakeConn) ClearRequest(kind jdwp.EventKind, id jdwp.RequestID) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fakeConn) ClearAllBreakpoints() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.clearAllCount++
	return nil
}

func (f *fakeConn) resumes() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.resumeCount
}

func (f *fakeConn) setBreakpoints() []jdwp.Location {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	answer := make([]jdwp.Location, len(f.breakpoints))
	copy(answer, f.breakpoints)
	return answer
}

func (f *fakeConn) setSteps() []stepRecord {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	answer := make([]stepRecord, len(f.steps))
	copy(answer, f.steps)
	return answer
}

var _ Conn = (*fakeConn)(nil)
