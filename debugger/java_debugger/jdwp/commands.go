package jdwp

// 本文件封装了调试引擎用到的JDWP命令子集
// 命令集和命令号参考JDWP协议文档

// Version 目标虚拟机的版本描述，附加成功后用于日志
func (c *Connection) Version() (string, error) {
	r, err := c.roundTrip(1, 1, nil)
	if err != nil {
		return "", err
	}
	description := r.readString()
	return description, r.err
}

// ClassesBySignature 按JNI签名查询已加载的类
// 类未加载时返回空列表，不报错
func (c *Connection) ClassesBySignature(signature string) ([]ClassInfo, error) {
	w := c.newWriter()
	w.writeString(signature)
	r, err := c.roundTrip(1, 2, w.bytes())
	if err != nil {
		return nil, err
	}
	count := int(r.readInt())
	classes := make([]ClassInfo, 0, count)
	for i := 0; i < count; i++ {
		classes = append(classes, ClassInfo{
			TypeTag: r.readByte(),
			TypeID:  r.readRefTypeID(),
			Status:  r.readInt(),
		})
	}
	return classes, r.err
}

// AllThreads 目标虚拟机中的所有线程
func (c *Connection) AllThreads() ([]ThreadID, error) {
	r, err := c.roundTrip(1, 4, nil)
	if err != nil {
		return nil, err
	}
	count := int(r.readInt())
	threads := make([]ThreadID, 0, count)
	for i := 0; i < count; i++ {
		threads = append(threads, r.readThreadID())
	}
	return threads, r.err
}

// Dispose 释放连接，目标虚拟机恢复自由运行
func (c *Connection) Dispose() error {
	_, err := c.roundTrip(1, 6, nil)
	c.shutdown()
	return err
}

// Resume 恢复目标虚拟机中所有被挂起的线程
func (c *Connection) Resume() error {
	_, err := c.roundTrip(1, 9, nil)
	return err
}

// Signature 引用类型的JNI签名，如Lcom/example/App;
func (c *Connection) Signature(ref ReferenceTypeID) (string, error) {
	w := c.newWriter()
	w.writeRefTypeID(ref)
	r, err := c.roundTrip(2, 1, w.bytes())
	if err != nil {
		return "", err
	}
	signature := r.readString()
	return signature, r.err
}

// Methods 引用类型声明的方法列表
func (c *Connection) Methods(ref ReferenceTypeID) ([]MethodInfo, error) {
	w := c.newWriter()
	w.writeRefTypeID(ref)
	r, err := c.roundTrip(2, 5, w.bytes())
	if err != nil {
		return nil, err
	}
	count := int(r.readInt())
	methods := make([]MethodInfo, 0, count)
	for i := 0; i < count; i++ {
		methods = append(methods, MethodInfo{
			ID:        r.readMethodID(),
			Name:      r.readString(),
			Signature: r.readString(),
			ModBits:   r.readInt(),
		})
	}
	return methods, r.err
}

// SourceFile 引用类型上报的源文件名，缺少调试信息时报ABSENT_INFORMATION
func (c *Connection) SourceFile(ref ReferenceTypeID) (string, error) {
	w := c.newWriter()
	w.writeRefTypeID(ref)
	r, err := c.roundTrip(2, 7, w.bytes())
	if err != nil {
		return "", err
	}
	sourceFile := r.readString()
	return sourceFile, r.err
}

// LineTable 方法的行号表
func (c *Connection) LineTable(ref ReferenceTypeID, method MethodID) (*LineTable, error) {
	w := c.newWriter()
	w.writeRefTypeID(ref)
	w.writeMethodID(method)
	r, err := c.roundTrip(6, 1, w.bytes())
	if err != nil {
		return nil, err
	}
	table := &LineTable{
		Start: int64(r.readLong()),
		End:   int64(r.readLong()),
	}
	count := int(r.readInt())
	for i := 0; i < count; i++ {
		table.Lines = append(table.Lines, LineEntry{
			CodeIndex: r.readLong(),
			Line:      int(r.readInt()),
		})
	}
	return table, r.err
}

// VariableTable 方法的局部变量表
func (c *Connection) VariableTable(ref ReferenceTypeID, method MethodID) (*VariableTable, error) {
	w := c.newWriter()
	w.writeRefTypeID(ref)
	w.writeMethodID(method)
	r, err := c.roundTrip(6, 2, w.bytes())
	if err != nil {
		return nil, err
	}
	table := &VariableTable{ArgCount: r.readInt()}
	count := int(r.readInt())
	for i := 0; i < count; i++ {
		table.Slots = append(table.Slots, SlotInfo{
			CodeIndex: r.readLong(),
			Name:      r.readString(),
			Signature: r.readString(),
			Length:    r.readInt(),
			Slot:      r.readInt(),
		})
	}
	return table, r.err
}

// ObjectSignature 对象实际类型的JNI签名
func (c *Connection) ObjectSignature(object ObjectID) (string, error) {
	w := c.newWriter()
	w.writeObjectID(object)
	r, err := c.roundTrip(9, 1, w.bytes())
	if err != nil {
		return "", err
	}
	_ = r.readByte() // refTypeTag
	ref := r.readRefTypeID()
	if r.err != nil {
		return "", r.err
	}
	return c.Signature(ref)
}

// StringValue 读取字符串对象的内容
func (c *Connection) StringValue(object ObjectID) (string, error) {
	w := c.newWriter()
	w.writeObjectID(object)
	r, err := c.roundTrip(10, 1, w.bytes())
	if err != nil {
		return "", err
	}
	value := r.readString()
	return value, r.err
}

// ThreadSuspended 线程当前是否处于挂起状态
func (c *Connection) ThreadSuspended(thread ThreadID) (bool, error) {
	w := c.newWriter()
	w.writeThreadID(thread)
	r, err := c.roundTrip(11, 4, w.bytes())
	if err != nil {
		return false, err
	}
	_ = r.readInt() // threadStatus
	suspendStatus := r.readInt()
	return suspendStatus&1 != 0, r.err
}

// ThreadFrames 线程的全部栈帧，栈顶在前
func (c *Connection) ThreadFrames(thread ThreadID) ([]Frame, error) {
	w := c.newWriter()
	w.writeThreadID(thread)
	w.writeInt(0)  // startFrame
	w.writeInt(-1) // 全部栈帧
	r, err := c.roundTrip(11, 6, w.bytes())
	if err != nil {
		return nil, err
	}
	count := int(r.readInt())
	frames := make([]Frame, 0, count)
	for i := 0; i < count; i++ {
		frames = append(frames, Frame{
			ID:       r.readFrameID(),
			Location: r.readLocation(),
		})
	}
	return frames, r.err
}

// FrameValues 读取栈帧中指定槽位的值
// 每个槽位需要带上期望的tag（取自变量签名首字节）
func (c *Connection) FrameValues(thread ThreadID, frame FrameID, slots []SlotInfo) ([]Value, error) {
	w := c.newWriter()
	w.writeThreadID(thread)
	w.writeFrameID(frame)
	w.writeInt(int32(len(slots)))
	for _, slot := range slots {
		w.writeInt(slot.Slot)
		w.writeByte(slot.Signature[0])
	}
	r, err := c.roundTrip(16, 1, w.bytes())
	if err != nil {
		return nil, err
	}
	count := int(r.readInt())
	values := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		values = append(values, r.readValue())
	}
	return values, r.err
}

// SetClassPrepareWatch 注册类加载监听，pattern支持通配符，如"*"
func (c *Connection) SetClassPrepareWatch(pattern string) (RequestID, error) {
	w := c.newWriter()
	w.writeByte(byte(EventKindClassPrepare))
	w.writeByte(byte(SuspendPolicyAll))
	w.writeInt(1)
	w.writeByte(modKindClassMatch)
	w.writeString(pattern)
	return c.setEventRequest(w)
}

// SetBreakpoint 在指定位置创建断点请求
func (c *Connection) SetBreakpoint(loc Location) (RequestID, error) {
	w := c.newWriter()
	w.writeByte(byte(EventKindBreakpoint))
	w.writeByte(byte(SuspendPolicyAll))
	w.writeInt(1)
	w.writeByte(modKindLocationOnly)
	w.writeLocation(loc)
	return c.setEventRequest(w)
}

// SetStep 创建单步请求，粒度为源码行
// count filter为1，请求只触发一次
func (c *Connection) SetStep(thread ThreadID, depth StepDepth) (RequestID, error) {
	w := c.newWriter()
	w.writeByte(byte(EventKindSingleStep))
	w.writeByte(byte(SuspendPolicyAll))
	w.writeInt(2)
	w.writeByte(modKindStep)
	w.writeThreadID(thread)
	w.writeInt(stepSizeLine)
	w.writeInt(int32(depth))
	w.writeByte(modKindCount)
	w.writeInt(1)
	return c.setEventRequest(w)
}

func (c *Connection) setEventRequest(w *packetWriter) (RequestID, error) {
	r, err := c.roundTrip(15, 1, w.bytes())
	if err != nil {
		return 0, err
	}
	requestID := RequestID(r.readInt())
	return requestID, r.err
}

// ClearRequest 删除一个事件请求
func (c *Connection) ClearRequest(kind EventKind, id RequestID) error {
	w := c.newWriter()
	w.writeByte(byte(kind))
	w.writeInt(int32(id))
	_, err := c.roundTrip(15, 2, w.bytes())
	return err
}

// ClearAllBreakpoints 删除所有断点请求
func (c *Connection) ClearAllBreakpoints() error {
	_, err := c.roundTrip(15, 3, nil)
	return err
}
