package jdwp

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeAgent 测试用的假调试代理
// 在真实的TCP端口上完成握手并按脚本应答命令
type fakeAgent struct {
	listener net.Listener
	conn     net.Conn
	// handle 收到命令后返回错误码和应答体
	handle func(cmdSet, cmd byte, body []byte) (uint16, []byte)
}

func startFakeAgent(t *testing.T, handle func(cmdSet, cmd byte, body []byte) (uint16, []byte)) *fakeAgent {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	agent := &fakeAgent{listener: listener, handle: handle}
	go agent.serve()
	t.Cleanup(func() { listener.Close() })
	return agent
}

func (a *fakeAgent) serve() {
	conn, err := a.listener.Accept()
	if err != nil {
		return
	}
	a.conn = conn
	// 握手：原样回显
	buf := make([]byte, len(handshake))
	if _, err = io.ReadFull(conn, buf); err != nil {
		return
	}
	if _, err = conn.Write(buf); err != nil {
		return
	}
	for {
		id, cmdSet, cmd, body, err := readCommand(conn)
		if err != nil {
			return
		}
		if cmdSet == 1 && cmd == 7 {
			// IDSizes固定应答8字节
			w := newPacketWriter(IDSizes{})
			for i := 0; i < 5; i++ {
				w.writeInt(8)
			}
			writeReply(conn, id, 0, w.bytes())
			continue
		}
		errCode, data := a.handle(cmdSet, cmd, body)
		writeReply(conn, id, errCode, data)
	}
}

// sendEvent 主动推送一个composite事件包
func (a *fakeAgent) sendEvent(data []byte) {
	header := make([]byte, 11)
	binary.BigEndian.PutUint32(header[0:4], uint32(11+len(data)))
	binary.BigEndian.PutUint32(header[4:8], 9999)
	header[8] = 0
	header[9] = cmdSetEvent
	header[10] = cmdCompositeEvnt
	a.conn.Write(header)
	a.conn.Write(data)
}

func readCommand(conn net.Conn) (uint32, byte, byte, []byte, error) {
	header := make([]byte, 11)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, 0, 0, nil, err
	}
	length := binary.BigEndian.Uint32(header[0:4])
	body := make([]byte, length-11)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, 0, 0, nil, err
	}
	return binary.BigEndian.Uint32(header[4:8]), header[9], header[10], body, nil
}

func writeReply(conn net.Conn, id uint32, errCode uint16, data []byte) {
	header := make([]byte, 11)
	binary.BigEndian.PutUint32(header[0:4], uint32(11+len(data)))
	binary.BigEndian.PutUint32(header[4:8], id)
	header[8] = flagReply
	binary.BigEndian.PutUint16(header[9:11], errCode)
	conn.Write(header)
	conn.Write(data)
}

func TestAttachAndRoundTrip(t *testing.T) {
	agent := startFakeAgent(t, func(cmdSet, cmd byte, body []byte) (uint16, []byte) {
		switch {
		case cmdSet == 1 && cmd == 1:
			w := newPacketWriter(testSizes(8))
			w.writeString("Fake VM 17.0.1")
			return 0, w.bytes()
		case cmdSet == 2 && cmd == 1:
			// 按请求中的类id应答签名
			return 0, func() []byte {
				w := newPacketWriter(testSizes(8))
				w.writeString("Lcom/example/App;")
				return w.bytes()
			}()
		case cmdSet == 1 && cmd == 9:
			return 0, nil
		}
		return uint16(ErrVMDead), nil
	})

	conn, err := Attach(agent.listener.Addr().String(), time.Second*5)
	assert.Nil(t, err)
	defer conn.Close()

	description, err := conn.Version()
	assert.Nil(t, err)
	assert.Equal(t, "Fake VM 17.0.1", description)

	signature, err := conn.Signature(100)
	assert.Nil(t, err)
	assert.Equal(t, "Lcom/example/App;", signature)

	assert.Nil(t, conn.Resume())

	// 未脚本化的命令返回VM_DEAD错误码
	_, err = conn.AllThreads()
	assert.True(t, IsVMDead(err))
}

func TestAttachBadHandshake(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, len(handshake))
		io.ReadFull(conn, buf)
		conn.Write([]byte("NOT-A-JDWP-VM!"))
		conn.Close()
	}()

	_, err = Attach(listener.Addr().String(), time.Second*5)
	assert.NotNil(t, err)
}

func TestEventDelivery(t *testing.T) {
	agent := startFakeAgent(t, func(cmdSet, cmd byte, body []byte) (uint16, []byte) {
		return 0, nil
	})

	conn, err := Attach(agent.listener.Addr().String(), time.Second*5)
	assert.Nil(t, err)
	defer conn.Close()

	w := newPacketWriter(testSizes(8))
	w.writeByte(byte(SuspendPolicyAll))
	w.writeInt(1)
	w.writeByte(byte(EventKindClassPrepare))
	w.writeInt(3)
	w.writeThreadID(1)
	w.writeByte(1)
	w.writeRefTypeID(100)
	w.writeString("Lcom/example/App;")
	w.writeInt(7)
	agent.sendEvent(w.bytes())

	select {
	case set := <-conn.EventQueue():
		assert.Equal(t, SuspendPolicyAll, set.SuspendPolicy)
		assert.Equal(t, 1, len(set.Events))
		prepare, ok := set.Events[0].(*ClassPrepareEvent)
		assert.True(t, ok)
		assert.Equal(t, "Lcom/example/App;", prepare.Signature)
	case <-time.After(time.Second * 5):
		t.Fatal("event not delivered")
	}
}

func TestCloseDuringEventFlood(t *testing.T) {
	agent := startFakeAgent(t, func(cmdSet, cmd byte, body []byte) (uint16, []byte) {
		return 0, nil
	})

	conn, err := Attach(agent.listener.Addr().String(), time.Second*5)
	assert.Nil(t, err)

	w := newPacketWriter(testSizes(8))
	w.writeByte(byte(SuspendPolicyNone))
	w.writeInt(1)
	w.writeByte(byte(EventKindClassPrepare))
	w.writeInt(3)
	w.writeThreadID(1)
	w.writeByte(1)
	w.writeRefTypeID(100)
	w.writeString("Lcom/example/App;")
	w.writeInt(7)
	payload := w.bytes()

	// 代理持续推送事件的同时关闭连接
	// 投递和关闭并发执行，队列必须干净地关闭而不是panic
	go func() {
		for i := 0; i < 2000; i++ {
			agent.sendEvent(payload)
		}
	}()

	select {
	case <-conn.EventQueue():
	case <-time.After(time.Second * 5):
		t.Fatal("event not delivered")
	}
	assert.Nil(t, conn.Close())

	drained := 0
	for range conn.EventQueue() {
		drained++
	}
	// 队列最终被关闭，残留在缓冲里的事件可以被读完
	assert.LessOrEqual(t, drained, 2000)
}

func TestDisconnect(t *testing.T) {
	agent := startFakeAgent(t, func(cmdSet, cmd byte, body []byte) (uint16, []byte) {
		return 0, nil
	})

	conn, err := Attach(agent.listener.Addr().String(), time.Second*5)
	assert.Nil(t, err)

	// 代理断开后事件队列被关闭，后续请求返回断开错误
	agent.conn.Close()
	select {
	case _, ok := <-conn.EventQueue():
		assert.False(t, ok)
	case <-time.After(time.Second * 5):
		t.Fatal("event queue not closed")
	}
	err = conn.Resume()
	assert.Equal(t, ErrDisconnected, err)
}
